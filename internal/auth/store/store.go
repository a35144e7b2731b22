package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// Both wrap ErrAlreadyExists and name the conflicting column.
	ErrUsernameExists = fmt.Errorf("%w: username", ErrAlreadyExists)
	ErrEmailExists    = fmt.Errorf("%w: email", ErrAlreadyExists)
)

// Store is the root data access interface for identity data. Drivers
// expose sub-repositories so transactional work goes through Tx and never
// nests.
type Store interface {
	Users() Users
	Roles() Roles

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller must Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser returns ErrUsernameExists or ErrEmailExists on a conflict.
	CreateUser(ctx context.Context, u domain.User) error

	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	IsEmpty(ctx context.Context) (bool, error)
}

type Roles interface {
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// ListRoleNamesForUser returns the role names held by userID, sorted.
	ListRoleNamesForUser(ctx context.Context, userID string) ([]string, error)

	// AssignRole is idempotent.
	AssignRole(ctx context.Context, userID, roleID string) error
}
