package jwtx

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claim types carried in the payload. The first five are owned by the codec
// and cannot be supplied to Issue.
const (
	ClaimSubject   = "subject"
	ClaimTokenID   = "tokenId"
	ClaimIssuer    = "issuer"
	ClaimIssuedAt  = "issuedAt"
	ClaimExpiresAt = "expiresAt"

	ClaimUsername = "username"
	ClaimEmail    = "email"
	ClaimFullName = "fullName"
	ClaimRole     = "role"
)

// Claim is a single assertion. Types may repeat (role).
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func Role(name string) Claim { return Claim{Type: ClaimRole, Value: name} }

// Claims is the decoded access-token payload.
type Claims struct {
	Subject   string           `json:"subject"`
	TokenID   string           `json:"tokenId"`
	Issuer    string           `json:"issuer,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"issuedAt"`
	ExpiresAt *jwt.NumericDate `json:"expiresAt"`

	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	FullName string   `json:"fullName,omitempty"`
	Roles    []string `json:"role,omitempty"`

	// Attributes holds any other claim types in issue order.
	Attributes []Claim `json:"attributes,omitempty"`
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *Claims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c *Claims) GetSubject() (string, error)                  { return c.Subject, nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// add folds one caller-supplied claim into the payload.
func (c *Claims) add(cl Claim) error {
	switch cl.Type {
	case "":
		return fmt.Errorf("%w: empty claim type", ErrInvalidClaim)
	case ClaimSubject, ClaimTokenID, ClaimIssuer, ClaimIssuedAt, ClaimExpiresAt:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidClaim, cl.Type)
	case ClaimRole:
		c.Roles = append(c.Roles, cl.Value)
	case ClaimUsername:
		return setOnce(&c.Username, cl)
	case ClaimEmail:
		return setOnce(&c.Email, cl)
	case ClaimFullName:
		return setOnce(&c.FullName, cl)
	default:
		c.Attributes = append(c.Attributes, cl)
	}
	return nil
}

func setOnce(dst *string, cl Claim) error {
	if *dst != "" {
		return fmt.Errorf("%w: %q given more than once", ErrInvalidClaim, cl.Type)
	}
	*dst = cl.Value
	return nil
}

// List flattens the payload back into claim pairs. Timestamps are rendered
// as unix seconds.
func (c *Claims) List() []Claim {
	out := make([]Claim, 0, 8+len(c.Roles)+len(c.Attributes))
	out = append(out,
		Claim{ClaimSubject, c.Subject},
		Claim{ClaimTokenID, c.TokenID},
	)
	if c.Issuer != "" {
		out = append(out, Claim{ClaimIssuer, c.Issuer})
	}
	if c.IssuedAt != nil {
		out = append(out, Claim{ClaimIssuedAt, strconv.FormatInt(c.IssuedAt.Unix(), 10)})
	}
	if c.ExpiresAt != nil {
		out = append(out, Claim{ClaimExpiresAt, strconv.FormatInt(c.ExpiresAt.Unix(), 10)})
	}
	for _, kv := range []Claim{{ClaimUsername, c.Username}, {ClaimEmail, c.Email}, {ClaimFullName, c.FullName}} {
		if kv.Value != "" {
			out = append(out, kv)
		}
	}
	for _, r := range c.Roles {
		out = append(out, Role(r))
	}
	return append(out, c.Attributes...)
}

// HasRole reports whether role is among the role claims.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Remaining returns how long the token has left at now, never negative.
// Tokens without an expiry report zero.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}
