package identity

import (
	"sort"

	"github.com/golang-jwt/jwt/v5"
)

// Claim types understood by the token layer. Anything else travels in the
// token's extension payload untouched.
const (
	ClaimSubject = "sub"
	ClaimRole    = "role"
)

// RoleAdmin is the role claim value that unlocks administrative operations.
const RoleAdmin = "admin"

// Claim is a single (type, value) assertion attached to a credential or
// embedded in a token.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ClaimSet is an ordered sequence of claims. Claim types may repeat (a
// credential can hold several role claims) and values are never deduplicated
// implicitly.
type ClaimSet []Claim

// Add appends a claim and returns the extended set.
func (cs ClaimSet) Add(claimType, value string) ClaimSet {
	return append(cs, Claim{Type: claimType, Value: value})
}

// Values returns every value carried for claimType, in insertion order.
func (cs ClaimSet) Values(claimType string) []string {
	var out []string
	for _, c := range cs {
		if c.Type == claimType {
			out = append(out, c.Value)
		}
	}
	return out
}

// First returns the first value carried for claimType.
func (cs ClaimSet) First(claimType string) (string, bool) {
	for _, c := range cs {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// Subject returns the subject claim, empty when absent.
func (cs ClaimSet) Subject() string {
	sub, _ := cs.First(ClaimSubject)
	return sub
}

// HasValue reports whether the exact (type, value) pair is present.
func (cs ClaimSet) HasValue(claimType, value string) bool {
	for _, c := range cs {
		if c.Type == claimType && c.Value == value {
			return true
		}
	}
	return false
}

// TokenClaims is the signed token payload. The subject rides in the
// registered sub claim, role claims fold into the roles array, and every
// other claim type lands in the ext map so duplicate values survive the JSON
// object representation.
type TokenClaims struct {
	jwt.RegisteredClaims
	Roles jwt.ClaimStrings    `json:"roles,omitempty"`
	Extra map[string][]string `json:"ext,omitempty"`
}

// Subject returns the token's subject identity.
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// HasRole reports whether the token carries the given role claim.
func (c *TokenClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the token unlocks administrative operations.
func (c *TokenClaims) IsAdmin() bool {
	return c.HasRole(RoleAdmin)
}

// ClaimSet reassembles the flat claim sequence the token was issued from.
// Order across extension claim types is normalized alphabetically; values
// within a type keep issuance order.
func (c *TokenClaims) ClaimSet() ClaimSet {
	var cs ClaimSet
	if c.RegisteredClaims.Subject != "" {
		cs = cs.Add(ClaimSubject, c.RegisteredClaims.Subject)
	}
	for _, role := range c.Roles {
		cs = cs.Add(ClaimRole, role)
	}

	types := make([]string, 0, len(c.Extra))
	for claimType := range c.Extra {
		types = append(types, claimType)
	}
	sort.Strings(types)

	for _, claimType := range types {
		for _, value := range c.Extra[claimType] {
			cs = cs.Add(claimType, value)
		}
	}
	return cs
}

// claimsPayload splits a ClaimSet into the token payload shape. The first
// subject claim wins; extra subject claims would shadow the registered sub
// and are dropped rather than smuggled through the extension map.
func claimsPayload(cs ClaimSet) (subject string, roles jwt.ClaimStrings, extra map[string][]string) {
	for _, c := range cs {
		switch c.Type {
		case ClaimSubject:
			if subject == "" {
				subject = c.Value
			}
		case ClaimRole:
			roles = append(roles, c.Value)
		default:
			if extra == nil {
				extra = make(map[string][]string)
			}
			extra[c.Type] = append(extra[c.Type], c.Value)
		}
	}
	return subject, roles, extra
}
