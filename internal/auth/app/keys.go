package app

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
)

const base64KeyPrefix = "base64:"

// decodeSigningKey turns AUTH_SIGNING_KEY into key bytes. A "base64:" prefix
// marks a standard base64 value, anything else is used verbatim.
//
// Every instance sharing a cache must share this key, or tokens minted by
// one are rejected by the others.
func decodeSigningKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, errors.New("is required")
	}

	key := []byte(raw)
	if b64, ok := strings.CutPrefix(raw, base64KeyPrefix); ok {
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("invalid base64: %w", err)
		}
		key = decoded
	}

	if len(key) < jwtx.MinKeyLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", jwtx.ErrWeakKey, jwtx.MinKeyLength, len(key))
	}
	return key, nil
}
