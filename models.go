package identity

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credential is an identity-store record. Only the id and the attached claims
// leak outside the credential store; the password never leaves it unhashed.
type Credential struct {
	bun.BaseModel `bun:"table:credentials,alias:cred"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// CredentialClaim is one permanent claim row attached to a credential, e.g.
// the subject claim added at registration.
type CredentialClaim struct {
	bun.BaseModel `bun:"table:credential_claims,alias:cc"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CredentialID  uuid.UUID `bun:"credential_id,notnull,type:uuid" json:"credential_id,omitempty"`
	ClaimType     string    `bun:"claim_type,notnull" json:"claim_type,omitempty"`
	ClaimValue    string    `bun:"claim_value,notnull" json:"claim_value,omitempty"`
}

// RoleGrant is a role membership row for a credential.
type RoleGrant struct {
	bun.BaseModel `bun:"table:role_grants,alias:rg"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CredentialID  uuid.UUID `bun:"credential_id,notnull,type:uuid" json:"credential_id,omitempty"`
	Role          string    `bun:"role,notnull" json:"role,omitempty"`
}

// UserProfile is the profile record owned by the Profiles store. CreatedAt is
// set once at creation; UpdatedAt stays nil until the first successful update.
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:up"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

const maxProfileNameLength = 100

func validateProfileInput(name, email string) error {
	err := validation.Errors{
		"name": validation.Validate(name,
			validation.Required,
			validation.Length(1, maxProfileNameLength)),
		"email": validation.Validate(email,
			validation.Required,
			is.Email),
	}.Filter()
	if err != nil {
		return newBadInput(err.Error())
	}
	return nil
}

// validateRegistrationInput applies the credential store's policy. Returned
// field errors feed RegisterOutcome rather than failing the call outright.
func validateRegistrationInput(email, password string) map[string]string {
	fields := map[string]string{}
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		fields["email"] = err.Error()
	}
	if err := validation.Validate(password, validation.Required, validation.Length(8, 128)); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
