package identity

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type credentials struct {
	repository.Repository[*Credential]
	db    *bun.DB
	clock Clock
}

var _ CredentialStore = (*credentials)(nil)

// NewCredentialStore builds the bun-backed credential store. It owns password
// hashing and the permanent claim and role-grant rows attached to each
// credential.
func NewCredentialStore(db *bun.DB, clock Clock) CredentialStore {
	if clock == nil {
		clock = SystemClock{}
	}

	repo := repository.NewRepository[*Credential](db, repository.ModelHandlers[*Credential]{
		NewRecord: func() *Credential { return &Credential{} },
		GetID: func(c *Credential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Credential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &credentials{
		Repository: repo,
		db:         db,
		clock:      clock,
	}
}

// Register enforces the store's policy (email syntax, password length),
// hashes the password, and inserts the credential. Policy violations come
// back as a validation error whose metadata carries per-field messages; a
// duplicate email is a conflict.
func (c *credentials) Register(ctx context.Context, email, password string) (*Credential, error) {
	if fields := validateRegistrationInput(email, password); fields != nil {
		return nil, goerrors.New("registration rejected by credential policy", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("POLICY_VIOLATION").
			WithMetadata(map[string]any{"fields": fields})
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	record := &Credential{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    &now,
	}

	err = c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*Credential)(nil)).
			Where("?TableAlias.email = ?", email).
			Exists(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check credential email")
		}
		if exists {
			return newEmailConflict(email)
		}

		if _, err := c.Repository.CreateTx(ctx, tx, record); err != nil {
			if isUniqueViolation(err) {
				return newEmailConflict(email)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create credential")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (c *credentials) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	record := &Credential{}
	err := c.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load credential")
	}
	return record, nil
}

func (c *credentials) VerifyPassword(cred *Credential, password string) error {
	if cred == nil {
		return ErrMismatchedHashAndPassword
	}
	return ComparePasswordAndHash(password, cred.PasswordHash)
}

func (c *credentials) AddClaim(ctx context.Context, credentialID uuid.UUID, claim Claim) error {
	row := &CredentialClaim{
		ID:           newOrderedID(),
		CredentialID: credentialID,
		ClaimType:    claim.Type,
		ClaimValue:   claim.Value,
	}

	if _, err := c.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to attach credential claim")
	}
	return nil
}

// PermanentClaims returns the claim rows in insertion order. Claim row ids are
// time-ordered, so ordering by id recovers attachment order.
func (c *credentials) PermanentClaims(ctx context.Context, credentialID uuid.UUID) (ClaimSet, error) {
	var rows []*CredentialClaim
	err := c.db.NewSelect().
		Model(&rows).
		Where("?TableAlias.credential_id = ?", credentialID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load credential claims")
	}

	var cs ClaimSet
	for _, row := range rows {
		cs = cs.Add(row.ClaimType, row.ClaimValue)
	}
	return cs, nil
}

func (c *credentials) GrantRole(ctx context.Context, credentialID uuid.UUID, role string) error {
	row := &RoleGrant{
		ID:           newOrderedID(),
		CredentialID: credentialID,
		Role:         role,
	}

	if _, err := c.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to grant role")
	}
	return nil
}

func (c *credentials) Roles(ctx context.Context, credentialID uuid.UUID) ([]string, error) {
	var rows []*RoleGrant
	err := c.db.NewSelect().
		Model(&rows).
		Where("?TableAlias.credential_id = ?", credentialID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load role grants")
	}

	roles := make([]string, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.Role)
	}
	return roles, nil
}

// newOrderedID prefers a V7 uuid so row order is recoverable from the id;
// falls back to a random uuid if entropy is exhausted.
func newOrderedID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
