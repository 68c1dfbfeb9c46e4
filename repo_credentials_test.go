package identity_test

import (
	"context"
	"testing"
	"time"

	identity "github.com/mledezma/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialStore_Register(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clock := &stubClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := identity.NewCredentialStore(db, clock)

	t.Run("creates a credential with a hashed password", func(t *testing.T) {
		cred, err := store.Register(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		require.NotNil(t, cred)

		assert.NotEqual(t, "", cred.ID.String())
		assert.Equal(t, "alice@example.com", cred.Email)
		assert.NotEmpty(t, cred.PasswordHash)
		assert.NotEqual(t, "password123", cred.PasswordHash)

		assert.NoError(t, store.VerifyPassword(cred, "password123"))
		assert.ErrorIs(t, store.VerifyPassword(cred, "nope"), identity.ErrMismatchedHashAndPassword)
	})

	t.Run("rejects a duplicate email as a conflict", func(t *testing.T) {
		_, err := store.Register(ctx, "alice@example.com", "password456")
		require.Error(t, err)
		assert.True(t, identity.IsConflict(err))
	})

	t.Run("rejects a malformed email via policy", func(t *testing.T) {
		_, err := store.Register(ctx, "not-an-email", "password123")
		require.Error(t, err)
		assert.True(t, identity.IsBadInput(err))
	})

	t.Run("rejects a short password via policy", func(t *testing.T) {
		_, err := store.Register(ctx, "bob@example.com", "short")
		require.Error(t, err)
		assert.True(t, identity.IsBadInput(err))
	})
}

func TestCredentialStore_GetByEmail(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := identity.NewCredentialStore(db, nil)

	created, err := store.Register(ctx, "carol@example.com", "password123")
	require.NoError(t, err)

	t.Run("finds an existing credential", func(t *testing.T) {
		got, err := store.GetByEmail(ctx, "carol@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		_, err := store.GetByEmail(ctx, "ghost@example.com")
		require.Error(t, err)
		assert.True(t, identity.IsNotFound(err))
	})
}

func TestCredentialStore_ClaimsAndRoles(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := identity.NewCredentialStore(db, nil)

	cred, err := store.Register(ctx, "dave@example.com", "password123")
	require.NoError(t, err)

	t.Run("claims come back in attachment order", func(t *testing.T) {
		require.NoError(t, store.AddClaim(ctx, cred.ID, identity.Claim{
			Type: identity.ClaimSubject, Value: cred.ID.String(),
		}))
		require.NoError(t, store.AddClaim(ctx, cred.ID, identity.Claim{
			Type: "tenant", Value: "acme",
		}))

		claims, err := store.PermanentClaims(ctx, cred.ID)
		require.NoError(t, err)
		require.Len(t, claims, 2)
		assert.Equal(t, cred.ID.String(), claims.Subject())
		assert.True(t, claims.HasValue("tenant", "acme"))
	})

	t.Run("roles accumulate per grant", func(t *testing.T) {
		roles, err := store.Roles(ctx, cred.ID)
		require.NoError(t, err)
		assert.Empty(t, roles)

		require.NoError(t, store.GrantRole(ctx, cred.ID, identity.RoleAdmin))
		require.NoError(t, store.GrantRole(ctx, cred.ID, "auditor"))

		roles, err = store.Roles(ctx, cred.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{identity.RoleAdmin, "auditor"}, roles)
	})
}
