package identity

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidCredentials is returned by Login for both an unknown email and a
// wrong password. Callers must not be able to tell the two apart.
var ErrInvalidCredentials = goerrors.New("invalid login or password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("INVALID_CREDENTIALS")

// ErrInvalidToken covers every token validation failure: bad signature, wrong
// issuer or audience, outside the validity window. Never more specific, so a
// caller cannot probe which check failed.
var ErrInvalidToken = goerrors.New("invalid authentication token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("INVALID_TOKEN")

// ErrMismatchedHashAndPassword is the internal bcrypt mismatch sentinel.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("PASSWORD_MISMATCH")

// Profile store messages. These are observable contract: the admin and the
// self-service not-found wordings differ on purpose.
const (
	msgEmailConflict    = "user with this email already exists"
	msgProfileConflict  = "you already have a user created, update or delete it instead"
	msgSelfNotFound     = "user not found, create a user first"
	msgAdminNotFound    = "user not found"
	msgMissingSubject   = "token is missing a subject claim"
	msgMalformedSubject = "token subject is not a valid identifier"
	msgAdminRequired    = "administrator role required"
)

func newEmailConflict(email string) *goerrors.Error {
	return goerrors.New(msgEmailConflict, goerrors.CategoryConflict).
		WithCode(goerrors.CodeConflict).
		WithTextCode("EMAIL_EXISTS").
		WithMetadata(map[string]any{"email": email})
}

func newProfileConflict(id string) *goerrors.Error {
	return goerrors.New(msgProfileConflict, goerrors.CategoryConflict).
		WithCode(goerrors.CodeConflict).
		WithTextCode("PROFILE_EXISTS").
		WithMetadata(map[string]any{"id": id})
}

func newProfileNotFound(id string, admin bool) *goerrors.Error {
	msg := msgSelfNotFound
	if admin {
		msg = msgAdminNotFound
	}
	return goerrors.New(msg, goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithTextCode("PROFILE_NOT_FOUND").
		WithMetadata(map[string]any{"id": id})
}

func newBadInput(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryBadInput).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode("INVALID_ARGUMENT")
}

func invalidToken(err error) *goerrors.Error {
	return goerrors.Wrap(err, ErrInvalidToken.Category, ErrInvalidToken.Message).
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(ErrInvalidToken.TextCode)
}

// IsConflict reports whether err carries the uniqueness-violation category.
func IsConflict(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Category == goerrors.CategoryConflict
}

// IsNotFound reports whether err targets a nonexistent record.
func IsNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsInvalidToken reports whether err is an authentication failure.
func IsInvalidToken(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Category == goerrors.CategoryAuth
}

// IsBadInput reports whether err was a fast-fail argument rejection.
func IsBadInput(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.Category == goerrors.CategoryBadInput ||
		rich.Category == goerrors.CategoryValidation
}
