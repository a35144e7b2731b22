// Package cachex is a small string key/value store with per-key expiry,
// backed either by Redis or by process memory.
package cachex

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss reports that a key is absent or expired.
	ErrMiss = errors.New("cachex: miss")
	// ErrClosed reports use of a store after Close.
	ErrClosed = errors.New("cachex: closed")
)

// Store is safe for concurrent use. Set overwrites unconditionally and a
// non-positive ttl removes the key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
