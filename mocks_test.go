package identity_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	identity "github.com/mledezma/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// MockLogger implements identity.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// MockCredentialStore implements identity.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Register(ctx context.Context, email, password string) (*identity.Credential, error) {
	args := m.Called(ctx, email, password)
	cred, _ := args.Get(0).(*identity.Credential)
	return cred, args.Error(1)
}

func (m *MockCredentialStore) GetByEmail(ctx context.Context, email string) (*identity.Credential, error) {
	args := m.Called(ctx, email)
	cred, _ := args.Get(0).(*identity.Credential)
	return cred, args.Error(1)
}

func (m *MockCredentialStore) VerifyPassword(cred *identity.Credential, password string) error {
	args := m.Called(cred, password)
	return args.Error(0)
}

func (m *MockCredentialStore) AddClaim(ctx context.Context, credentialID uuid.UUID, claim identity.Claim) error {
	args := m.Called(ctx, credentialID, claim)
	return args.Error(0)
}

func (m *MockCredentialStore) PermanentClaims(ctx context.Context, credentialID uuid.UUID) (identity.ClaimSet, error) {
	args := m.Called(ctx, credentialID)
	cs, _ := args.Get(0).(identity.ClaimSet)
	return cs, args.Error(1)
}

func (m *MockCredentialStore) GrantRole(ctx context.Context, credentialID uuid.UUID, role string) error {
	args := m.Called(ctx, credentialID, role)
	return args.Error(0)
}

func (m *MockCredentialStore) Roles(ctx context.Context, credentialID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, credentialID)
	roles, _ := args.Get(0).([]string)
	return roles, args.Error(1)
}

// stubClock implements identity.Clock with a settable instant.
type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time {
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

const (
	sqliteCreateCredentials = `CREATE TABLE credentials (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`
	sqliteCreateCredentialClaims = `CREATE TABLE credential_claims (
    id TEXT NOT NULL PRIMARY KEY,
    credential_id TEXT NOT NULL,
    claim_type TEXT NOT NULL,
    claim_value TEXT NOT NULL,
    FOREIGN KEY (credential_id) REFERENCES credentials (id) ON DELETE CASCADE
);`
	sqliteCreateRoleGrants = `CREATE TABLE role_grants (
    id TEXT NOT NULL PRIMARY KEY,
    credential_id TEXT NOT NULL,
    role TEXT NOT NULL,
    FOREIGN KEY (credential_id) REFERENCES credentials (id) ON DELETE CASCADE
);`
	sqliteCreateUserProfiles = `CREATE TABLE user_profiles (
    id TEXT NOT NULL PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NULL,
    updated_at TIMESTAMP NULL
);`
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	for _, ddl := range []string{
		sqliteCreateCredentials,
		sqliteCreateCredentialClaims,
		sqliteCreateRoleGrants,
		sqliteCreateUserProfiles,
	} {
		_, err = bunDB.Exec(ddl)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	return bunDB
}
