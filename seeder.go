package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// EnsureAdminCredential seeds an administrative credential at startup. The
// call is idempotent: when a credential already exists for the email nothing
// is changed.
func EnsureAdminCredential(ctx context.Context, store CredentialStore, email, password string, logger Logger) error {
	if logger == nil {
		logger = defLogger{}
	}

	if _, err := store.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !goerrors.IsNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up admin credential")
	}

	logger.Info("seeding admin credential: %s", email)

	cred, err := store.Register(ctx, email, password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create admin credential")
	}

	subject := Claim{Type: ClaimSubject, Value: cred.ID.String()}
	if err := store.AddClaim(ctx, cred.ID, subject); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to attach admin subject claim")
	}

	if err := store.GrantRole(ctx, cred.ID, RoleAdmin); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to grant admin role")
	}

	return nil
}
