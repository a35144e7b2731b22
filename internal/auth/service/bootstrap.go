package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	"github.com/aussiebroadwan/turnstile/pkg/idx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

var ErrBootstrapFailedToCreateAdmin = errors.New("failed to create admin user")

// AdminSeed describes the first administrator.
type AdminSeed struct {
	Username string
	Password string
	Email    string
}

type BootstrapService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

// IsBootstrapped reports whether any user exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// EnsureAdmin creates an admin holding Admin and User when the store has no
// users yet. It returns the new id, or "" when nothing was done.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, seed AdminSeed) (string, error) {
	l := slogx.FromContext(ctx)

	// 1. Skip when already bootstrapped
	done, err := s.IsBootstrapped(ctx)
	if err != nil {
		return "", err
	}
	if done {
		l.Debug("bootstrap skipped, users already present")
		return "", nil
	}

	// 2. Validate seed
	if seed.Username == "" || len(seed.Password) < MinPasswordLength {
		return "", fmt.Errorf("%w: username and a password of at least %d characters are required",
			ErrInvalidRequest, MinPasswordLength)
	}
	if seed.Email == "" {
		seed.Email = seed.Username + "@localhost"
	}

	// 3. Hash password
	hash, err := s.Hasher.Hash(seed.Password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return "", ErrBootstrapFailedToCreateAdmin
	}

	// 4. Create admin and roles in one transaction
	admin := domain.User{
		ID:           idx.New().String(),
		Username:     seed.Username,
		Email:        seed.Email,
		FirstName:    seed.Username,
		PasswordHash: hash,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return createUserWithRoles(ctx, tx, admin, domain.RoleAdmin, domain.RoleUser)
	})
	if err != nil {
		l.Error("failed to create admin user",
			slog.String("admin_user_id", admin.ID),
			slog.Any("error", err),
		)
		return "", ErrBootstrapFailedToCreateAdmin
	}

	l.Info("successfully bootstrapped admin",
		slog.String("admin_user_id", admin.ID),
		slog.String("username", admin.Username),
	)
	return admin.ID, nil
}
