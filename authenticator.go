package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// RegisterOutcome is the non-throwing result of a registration attempt.
// Policy violations and duplicate emails come back as field errors, not as
// call failures.
type RegisterOutcome struct {
	Succeeded   bool              `json:"succeeded"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// CredentialAuthenticator orchestrates the credential store: it registers
// credentials and exchanges a verified email/password pair for a signed
// session token.
type CredentialAuthenticator struct {
	store  CredentialStore
	signer *TokenSigner
	logger Logger
}

// NewCredentialAuthenticator returns a new CredentialAuthenticator.
func NewCredentialAuthenticator(store CredentialStore, signer *TokenSigner) *CredentialAuthenticator {
	return &CredentialAuthenticator{
		store:  store,
		signer: signer,
		logger: defLogger{},
	}
}

func (a *CredentialAuthenticator) WithLogger(logger Logger) *CredentialAuthenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Register creates one credential and attaches its permanent subject claim.
// Empty email or password fails fast before any store I/O; everything the
// store's policy rejects is folded into the outcome's field errors.
func (a *CredentialAuthenticator) Register(ctx context.Context, email, password string) (*RegisterOutcome, error) {
	if email == "" {
		return nil, newBadInput("email is required")
	}
	if password == "" {
		return nil, newBadInput("password is required")
	}

	cred, err := a.store.Register(ctx, email, password)
	if err != nil {
		if fields, ok := registrationFieldErrors(err); ok {
			return &RegisterOutcome{FieldErrors: fields}, nil
		}
		a.logger.Error("register failed: %v", err)
		return nil, err
	}

	subject := Claim{Type: ClaimSubject, Value: cred.ID.String()}
	if err := a.store.AddClaim(ctx, cred.ID, subject); err != nil {
		a.logger.Error("register failed to attach subject claim: %v", err)
		return nil, err
	}

	a.logger.Info("user registered: %s", email)
	return &RegisterOutcome{Succeeded: true}, nil
}

// Login exchanges credentials for a signed token. An unknown email and a
// wrong password both return ErrInvalidCredentials; nothing about the failure
// reveals which field was wrong.
func (a *CredentialAuthenticator) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" {
		return "", newBadInput("email is required")
	}
	if password == "" {
		return "", newBadInput("password is required")
	}

	cred, err := a.store.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		a.logger.Error("login failed to load credential: %v", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load credential")
	}

	if err := a.store.VerifyPassword(cred, password); err != nil {
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return "", ErrInvalidCredentials
		}
		a.logger.Error("login failed to verify password: %v", err)
		return "", err
	}

	claims, err := a.gatherClaims(ctx, cred)
	if err != nil {
		a.logger.Error("login failed to gather claims: %v", err)
		return "", err
	}

	return a.signer.Issue(claims)
}

// gatherClaims merges the credential's permanent claims with its current role
// memberships into one claim set for issuance.
func (a *CredentialAuthenticator) gatherClaims(ctx context.Context, cred *Credential) (ClaimSet, error) {
	claims, err := a.store.PermanentClaims(ctx, cred.ID)
	if err != nil {
		return nil, err
	}

	roles, err := a.store.Roles(ctx, cred.ID)
	if err != nil {
		return nil, err
	}

	for _, role := range roles {
		claims = claims.Add(ClaimRole, role)
	}
	return claims, nil
}

func registrationFieldErrors(err error) (map[string]string, bool) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return nil, false
	}

	switch rich.Category {
	case goerrors.CategoryValidation:
		if fields, ok := rich.Metadata["fields"].(map[string]string); ok {
			return fields, true
		}
		return map[string]string{"email": rich.Message}, true
	case goerrors.CategoryConflict:
		return map[string]string{"email": rich.Message}, true
	default:
		return nil, false
	}
}
