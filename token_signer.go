package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSigner issues and validates compact HMAC-SHA256 session tokens. Issue
// is a pure function of the claim set, the configuration, and the injected
// clock; no state survives between calls and nothing is persisted.
type TokenSigner struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	duration   time.Duration
	clock      Clock
	logger     Logger
}

// NewTokenSigner builds a signer from the shared token configuration. A
// missing signing passphrase is a startup misconfiguration and panics rather
// than letting a service mint unverifiable tokens.
func NewTokenSigner(cfg TokenConfig, clock Clock, logger Logger) *TokenSigner {
	if cfg.SigningKey == "" {
		panic("identity: token signing key must not be empty")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = defLogger{}
	}

	var aud jwt.ClaimStrings
	if len(cfg.Audience) > 0 {
		aud = make(jwt.ClaimStrings, len(cfg.Audience))
		copy(aud, cfg.Audience)
	}

	return &TokenSigner{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   aud,
		duration:   cfg.Duration(),
		clock:      clock,
		logger:     logger,
	}
}

// Issue signs the claim set into a token string. The validity window starts at
// the clock's current instant and spans the configured duration.
func (ts *TokenSigner) Issue(claims ClaimSet) (string, error) {
	now := ts.clock.Now()
	subject, roles, extra := claimsPayload(claims)

	tokenClaims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  ts.audience,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.duration)),
		},
		Roles: roles,
		Extra: extra,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", invalidToken(err)
	}
	return signed, nil
}

// Validate checks signature, issuer, audience and the validity window at the
// clock's current instant, returning the embedded claims on success. The
// window is inclusive on both ends and tolerates zero skew: the contract
// treats the exact expiry instant as still valid, which differs from the jwt
// library's exclusive exp check, so the registered time claims are verified
// here instead of by the parser.
func (ts *TokenSigner) Validate(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, jwt.WithoutClaimsValidation())

	if err != nil {
		return nil, invalidToken(err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.RegisteredClaims.Issuer != ts.issuer {
		ts.logger.Debug("token issuer mismatch: %s", claims.RegisteredClaims.Issuer)
		return nil, ErrInvalidToken
	}
	if !ts.audienceMatches(claims.RegisteredClaims.Audience) {
		ts.logger.Debug("token audience mismatch: %v", claims.RegisteredClaims.Audience)
		return nil, ErrInvalidToken
	}

	now := ts.clock.Now()
	if claims.RegisteredClaims.NotBefore == nil || claims.RegisteredClaims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if now.Before(claims.RegisteredClaims.NotBefore.Time) {
		return nil, ErrInvalidToken
	}
	if now.After(claims.RegisteredClaims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (ts *TokenSigner) audienceMatches(got jwt.ClaimStrings) bool {
	if len(ts.audience) == 0 {
		return true
	}
	for _, want := range ts.audience {
		for _, aud := range got {
			if aud == want {
				return true
			}
		}
	}
	return false
}
