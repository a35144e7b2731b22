package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinKeyLength is the shortest accepted HMAC signing key, matching the
// HS256 output size.
const MinKeyLength = 32

var (
	ErrWeakKey = errors.New("jwtx: signing key too short")

	ErrMalformed        = errors.New("jwtx: malformed token")
	ErrInvalidSignature = errors.New("jwtx: invalid signature")
	ErrExpired          = errors.New("jwtx: token expired")
	ErrIssuer           = errors.New("jwtx: issuer mismatch")
	ErrInvalidClaim     = errors.New("jwtx: invalid claims")
)

// Codec issues and verifies HS256 access tokens. It holds no mutable state
// and is safe for concurrent use.
type Codec struct {
	key    []byte
	issuer string
	now    func() time.Time
}

type Option func(*Codec)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(key []byte, issuer string, opts ...Option) (*Codec, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrWeakKey, MinKeyLength, len(key))
	}

	c := &Codec{
		key:    append([]byte(nil), key...),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for subject carrying claims, valid for ttl. A fresh
// tokenId is generated on every call. Negative ttl yields an already
// expired token.
func (c *Codec) Issue(subject string, claims []Claim, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidClaim)
	}

	now := c.now()
	payload := &Claims{
		Subject:   subject,
		TokenID:   uuid.NewString(),
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	for _, cl := range claims {
		if err := payload.add(cl); err != nil {
			return "", err
		}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and format of token but not its expiry.
func (c *Codec) Decode(token string) (*Claims, error) {
	return c.parse(token, jwt.WithoutClaimsValidation())
}

// DecodeValid is Decode plus expiry (zero leeway) and issuer checks.
func (c *Codec) DecodeValid(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	return c.parse(token, opts...)
}

func (c *Codec) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing), errors.Is(err, jwt.ErrTokenInvalidClaims):
		return ErrInvalidClaim
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// ExtractTokenID reads tokenId without verifying anything. It is used to
// name a token for blacklisting even when it is otherwise untrusted.
func (c *Codec) ExtractTokenID(token string) (string, bool) {
	return ExtractTokenID(token)
}

func ExtractTokenID(token string) (string, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	if claims.TokenID == "" {
		return "", false
	}
	return claims.TokenID, true
}

// GenerateOpaqueSecret returns 256 random bits as base64url text for use as
// a refresh token.
func (c *Codec) GenerateOpaqueSecret() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize256)
}
