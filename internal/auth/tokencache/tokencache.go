// Package tokencache keeps per-subject refresh tokens and the access-token
// blacklist in a shared cachex.Store.
package tokencache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/cachex"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

const (
	refreshPrefix   = "refresh_token:"
	blacklistPrefix = "blacklist_token:"

	blacklistedValue = "blacklisted"
)

var (
	ErrNotFound    = errors.New("tokencache: not found")
	ErrUnavailable = errors.New("tokencache: backend unavailable")
)

// Cache has two independent maps over one store:
// subject -> refresh token fingerprint, and tokenId -> blacklist marker.
//
// Writes never fail the caller. A backend error is logged at Warn and
// dropped, which may leave a stale entry behind. Reads report backend
// errors as ErrUnavailable so each caller picks its own policy.
type Cache struct {
	store  cachex.Store
	logger *slog.Logger
}

func New(store cachex.Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// log prefers the request logger so write failures carry request attributes.
func (c *Cache) log(ctx context.Context) *slog.Logger {
	return slogx.FromContextOr(ctx, c.logger)
}

func RefreshKey(subject string) string   { return refreshPrefix + subject }
func BlacklistKey(tokenID string) string { return blacklistPrefix + tokenID }

// RefreshToken returns the stored fingerprint for subject.
func (c *Cache) RefreshToken(ctx context.Context, subject string) (string, error) {
	v, err := c.store.Get(ctx, RefreshKey(subject))
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, cachex.ErrMiss):
		return "", ErrNotFound
	default:
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// MatchRefreshToken reports whether token is the live refresh token for
// subject. Absence and mismatch both yield false with a nil error.
func (c *Cache) MatchRefreshToken(ctx context.Context, subject, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	fp, err := c.RefreshToken(ctx, subject)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cryptox.EqualFingerprint(token, fp), nil
}

// StoreRefreshToken overwrites any previous token for subject. Only the
// fingerprint is kept.
func (c *Cache) StoreRefreshToken(ctx context.Context, subject, token string, ttl time.Duration) {
	if err := c.store.Set(ctx, RefreshKey(subject), cryptox.FingerprintToken(token), ttl); err != nil {
		c.log(ctx).WarnContext(ctx, "token cache write failed",
			slog.String("op", "store_refresh"),
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Cache) RemoveRefreshToken(ctx context.Context, subject string) {
	if err := c.store.Delete(ctx, RefreshKey(subject)); err != nil {
		c.log(ctx).WarnContext(ctx, "token cache write failed",
			slog.String("op", "remove_refresh"),
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
	}
}

// Blacklist marks tokenID revoked for ttl. A non-positive ttl is a no-op.
func (c *Cache) Blacklist(ctx context.Context, tokenID string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.store.Set(ctx, BlacklistKey(tokenID), blacklistedValue, ttl); err != nil {
		c.log(ctx).WarnContext(ctx, "token cache write failed",
			slog.String("op", "blacklist"),
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Cache) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	_, err := c.store.Get(ctx, BlacklistKey(tokenID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cachex.ErrMiss):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// Ping checks the backing store, for readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
