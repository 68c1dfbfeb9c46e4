package identity_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	identity "github.com/mledezma/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestRepositoryManager(t *testing.T) {
	db := setupTestDB(t)
	repo := identity.NewRepositoryManager(db, nil)

	t.Run("validates its stores", func(t *testing.T) {
		require.NoError(t, repo.Validate())
		assert.NotPanics(t, repo.MustValidate)
		assert.NotNil(t, repo.Credentials())
		assert.NotNil(t, repo.Profiles())
	})

	t.Run("runs work in a transaction", func(t *testing.T) {
		ctx := context.Background()

		err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.NewInsert().Model(&identity.UserProfile{
				ID:    uuid.New(),
				Name:  "Tx User",
				Email: "tx@example.com",
			}).Exec(ctx)
			return err
		})
		require.NoError(t, err)

		records, err := repo.Profiles().List(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("refuses work on a done context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
