package identity_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	identity "github.com/mledezma/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectFromClaims(t *testing.T) {
	t.Run("extracts a valid subject", func(t *testing.T) {
		want := uuid.New()
		claims := &identity.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: want.String()},
		}

		got, err := identity.SubjectFromClaims(claims)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("nil claims are a client error", func(t *testing.T) {
		_, err := identity.SubjectFromClaims(nil)
		require.Error(t, err)
		assert.True(t, identity.IsBadInput(err))
	})

	t.Run("missing subject is a client error", func(t *testing.T) {
		_, err := identity.SubjectFromClaims(&identity.TokenClaims{})
		require.Error(t, err)
		assert.True(t, identity.IsBadInput(err))
	})

	t.Run("malformed subject is a client error", func(t *testing.T) {
		claims := &identity.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid"},
		}

		_, err := identity.SubjectFromClaims(claims)
		require.Error(t, err)
		assert.True(t, identity.IsBadInput(err))
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Run("admin role passes", func(t *testing.T) {
		claims := &identity.TokenClaims{Roles: jwt.ClaimStrings{identity.RoleAdmin}}
		assert.NoError(t, identity.RequireAdmin(claims))
	})

	t.Run("missing role is an authorization failure, not a token failure", func(t *testing.T) {
		claims := &identity.TokenClaims{Roles: jwt.ClaimStrings{"auditor"}}

		err := identity.RequireAdmin(claims)
		require.Error(t, err)
		assert.False(t, identity.IsBadInput(err))
		assert.False(t, identity.IsNotFound(err))
		assert.False(t, identity.IsInvalidToken(err))
	})

	t.Run("nil claims are rejected", func(t *testing.T) {
		assert.Error(t, identity.RequireAdmin(nil))
	})
}

func TestClaimsContext(t *testing.T) {
	claims := &identity.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}

	ctx := identity.WithClaims(context.Background(), claims)

	got, ok := identity.ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, claims, got)

	_, ok = identity.ClaimsFromContext(context.Background())
	assert.False(t, ok)
}
