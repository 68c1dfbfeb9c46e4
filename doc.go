// Package identity implements the shared core for a pair of cooperating
// services: an authentication service that registers credentials and mints
// signed session tokens, and a user-management service that validates those
// tokens and performs CRUD on user profiles.
//
// Building blocks:
//   - TokenSigner issues and validates compact HMAC-SHA256 tokens. Issuance is
//     deterministic for a given clock; validation enforces issuer, audience
//     and a strict inclusive [nbf, exp] window with zero skew.
//   - CredentialAuthenticator orchestrates the credential store: Register
//     creates a credential and attaches its permanent subject claim, Login
//     verifies the password and folds permanent claims plus role grants into
//     the issued token.
//   - Profiles is the user-profile repository. Email uniqueness and
//     one-profile-per-identity are enforced inside a single transaction per
//     mutation, with the storage-level UNIQUE constraint as the authoritative
//     guard.
//   - The access boundary helpers (SubjectFromClaims, RequireAdmin, the fiber
//     middleware in http.go) gate self-service and administrative operations
//     on validated claims.
//
// Both services share the signing passphrase, issuer and audience through
// out-of-band configuration; nothing is negotiated at runtime.
package identity
