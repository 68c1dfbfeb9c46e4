package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaims sets the validated token claims in the given context.
func WithClaims(ctx context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext finds the validated token claims in the context.
func ClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*TokenClaims)
	return raw, ok
}

// SubjectFromClaims extracts the subject identity a token asserts ownership
// of. An absent or malformed subject is a client error and must be rejected
// before any store operation runs.
func SubjectFromClaims(claims *TokenClaims) (uuid.UUID, error) {
	if claims == nil || claims.Subject() == "" {
		return uuid.Nil, newBadInput(msgMissingSubject)
	}

	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		return uuid.Nil, newBadInput(msgMalformedSubject)
	}
	return id, nil
}

// RequireAdmin demands the administrative role claim on an already validated
// token. Its absence is an authorization failure, distinct from a bad token.
func RequireAdmin(claims *TokenClaims) error {
	if claims == nil || !claims.IsAdmin() {
		return goerrors.New(msgAdminRequired, goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode("ADMIN_REQUIRED")
	}
	return nil
}
