package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// RepositoryManager exposes the stores both services are built from.
type RepositoryManager interface {
	Credentials() CredentialStore
	Profiles() Profiles
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Validate() error
	MustValidate()
}

type mngr struct {
	db          *bun.DB
	credentials CredentialStore
	profiles    Profiles
}

// NewRepositoryManager wires the credential and profile stores over a single
// bun handle.
func NewRepositoryManager(db *bun.DB, clock Clock) RepositoryManager {
	return &mngr{
		db:          db,
		credentials: NewCredentialStore(db, clock),
		profiles:    NewProfilesRepository(db, clock),
	}
}

func (m mngr) Validate() error {
	if m.credentials == nil {
		return errors.New("repository credentials should be initialized")
	}

	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Credentials() CredentialStore {
	return m.credentials
}

func (m mngr) Profiles() Profiles {
	return m.profiles
}

// isUniqueViolation recognizes a storage-level uniqueness failure from either
// supported driver: SQLSTATE 23505 on postgres, the UNIQUE constraint message
// on sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
