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

// Profiles is the user-profile store. Every mutation runs inside one
// transaction: the in-transaction lookups produce the friendly conflict and
// not-found messages, while the UNIQUE constraint on email remains the
// authoritative guard against concurrent writers.
type Profiles interface {
	GetByID(ctx context.Context, id uuid.UUID) (*UserProfile, error)
	List(ctx context.Context) ([]*UserProfile, error)
	Create(ctx context.Context, name, email string) (uuid.UUID, error)
	CreateWithID(ctx context.Context, id uuid.UUID, name, email string) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, name, email string) (*UserProfile, error)
	AdminUpdate(ctx context.Context, id uuid.UUID, name, email string) (*UserProfile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type profiles struct {
	repo  repository.Repository[*UserProfile]
	db    *bun.DB
	clock Clock
}

var _ Profiles = (*profiles)(nil)

// NewProfilesRepository builds the bun-backed profile store.
func NewProfilesRepository(db *bun.DB, clock Clock) Profiles {
	if clock == nil {
		clock = SystemClock{}
	}

	repo := repository.NewRepository[*UserProfile](db, repository.ModelHandlers[*UserProfile]{
		NewRecord: func() *UserProfile { return &UserProfile{} },
		GetID: func(p *UserProfile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *UserProfile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &profiles{
		repo:  repo,
		db:    db,
		clock: clock,
	}
}

func (p *profiles) GetByID(ctx context.Context, id uuid.UUID) (*UserProfile, error) {
	record, err := p.findByIDTx(ctx, p.db, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, newProfileNotFound(id.String(), true)
	}
	return record, nil
}

func (p *profiles) List(ctx context.Context) ([]*UserProfile, error) {
	var records []*UserProfile
	if err := p.db.NewSelect().Model(&records).Scan(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list profiles")
	}
	return records, nil
}

// Create inserts a profile under a server-generated id. V7 uuids keep
// creation order recoverable from the id.
func (p *profiles) Create(ctx context.Context, name, email string) (uuid.UUID, error) {
	if err := validateProfileInput(name, email); err != nil {
		return uuid.Nil, err
	}

	id := newOrderedID()
	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := p.findByEmailTx(ctx, tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return newEmailConflict(email)
		}

		return p.insertTx(ctx, tx, id, name, email)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// CreateWithID inserts a profile under a caller-supplied id, typically the
// authenticated subject's own identity. When both uniqueness rules are
// violated the email conflict is reported, not the id conflict.
func (p *profiles) CreateWithID(ctx context.Context, id uuid.UUID, name, email string) (uuid.UUID, error) {
	if err := validateProfileInput(name, email); err != nil {
		return uuid.Nil, err
	}

	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		byEmail, err := p.findByEmailTx(ctx, tx, email)
		if err != nil {
			return err
		}
		if byEmail != nil {
			return newEmailConflict(email)
		}

		byID, err := p.findByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if byID != nil {
			return newProfileConflict(id.String())
		}

		return p.insertTx(ctx, tx, id, name, email)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Update is the self-service form: the id is the caller's own subject and the
// not-found message tells them to create a profile first.
func (p *profiles) Update(ctx context.Context, id uuid.UUID, name, email string) (*UserProfile, error) {
	return p.updateTx(ctx, id, name, email, false)
}

// AdminUpdate targets an arbitrary record; same semantics as Update with the
// administrative not-found wording.
func (p *profiles) AdminUpdate(ctx context.Context, id uuid.UUID, name, email string) (*UserProfile, error) {
	return p.updateTx(ctx, id, name, email, true)
}

func (p *profiles) updateTx(ctx context.Context, id uuid.UUID, name, email string, admin bool) (*UserProfile, error) {
	if err := validateProfileInput(name, email); err != nil {
		return nil, err
	}

	var record *UserProfile
	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := p.findByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return newProfileNotFound(id.String(), admin)
		}

		if email != current.Email {
			other, err := p.findByEmailTx(ctx, tx, email)
			if err != nil {
				return err
			}
			if other != nil {
				return newEmailConflict(email)
			}
		}

		now := p.clock.Now()
		current.Name = name
		current.Email = email
		current.UpdatedAt = &now

		if _, err := p.repo.UpdateTx(ctx, tx, current, repository.UpdateByID(id.String())); err != nil {
			if isUniqueViolation(err) {
				return newEmailConflict(email)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
		}

		record = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes the record after an existence pre-check; a missing id is a
// not-found error, never a silent zero-row delete.
func (p *profiles) Delete(ctx context.Context, id uuid.UUID) error {
	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := p.findByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return newProfileNotFound(id.String(), true)
		}

		_, err = tx.NewDelete().
			Model((*UserProfile)(nil)).
			Where("?TableAlias.id = ?", id).
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete profile")
		}
		return nil
	})
}

func (p *profiles) insertTx(ctx context.Context, tx bun.Tx, id uuid.UUID, name, email string) error {
	now := p.clock.Now()
	record := &UserProfile{
		ID:        id,
		Name:      name,
		Email:     email,
		CreatedAt: &now,
	}

	if _, err := p.repo.CreateTx(ctx, tx, record); err != nil {
		if isUniqueViolation(err) {
			return newEmailConflict(email)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create profile")
	}
	return nil
}

func (p *profiles) findByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*UserProfile, error) {
	record := &UserProfile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load profile")
	}
	return record, nil
}

func (p *profiles) findByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserProfile, error) {
	record := &UserProfile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load profile by email")
	}
	return record, nil
}
