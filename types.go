package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Logger is the minimal logging surface the package depends on
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Clock supplies the current instant. Core logic never reads the wall clock
// directly so token issuance and record timestamps stay deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// TokenConfig holds the signing contract shared by the issuing and the
// validating service.
type TokenConfig struct {
	// SigningKey is a passphrase whose raw UTF-8 bytes are used directly as
	// the HMAC key. There is no key-derivation step; the passphrase length is
	// effectively the key length. Deliberate: the paired validating service
	// consumes the same raw bytes, so hardening this would break interop.
	SigningKey string
	Issuer     string
	Audience   []string
	// ExpirationHours and ExpirationMinutes combine into the token lifetime.
	// Both zero falls back to two hours.
	ExpirationHours   int
	ExpirationMinutes int
}

// Duration resolves the configured token lifetime.
func (c TokenConfig) Duration() time.Duration {
	d := time.Duration(c.ExpirationHours)*time.Hour +
		time.Duration(c.ExpirationMinutes)*time.Minute
	if d <= 0 {
		d = 2 * time.Hour
	}
	return d
}

// CredentialStore is the external identity store the authenticator
// orchestrates. It owns password hashing and the permanent claim set attached
// to each credential.
type CredentialStore interface {
	Register(ctx context.Context, email, password string) (*Credential, error)
	GetByEmail(ctx context.Context, email string) (*Credential, error)
	VerifyPassword(cred *Credential, password string) error
	AddClaim(ctx context.Context, credentialID uuid.UUID, claim Claim) error
	PermanentClaims(ctx context.Context, credentialID uuid.UUID) (ClaimSet, error)
	GrantRole(ctx context.Context, credentialID uuid.UUID, role string) error
	Roles(ctx context.Context, credentialID uuid.UUID) ([]string, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
