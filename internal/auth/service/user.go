package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	"github.com/aussiebroadwan/turnstile/pkg/idx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

// MinPasswordLength applies to self-registration and the bootstrap admin.
const MinPasswordLength = 8

type UserService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// Register creates an account holding the default User role.
func (s *UserService) Register(ctx context.Context, req domain.Registration) (domain.User, error) {
	l := slogx.FromContext(ctx)

	// 1. Validate input
	req, err := normaliseRegistration(req)
	if err != nil {
		return domain.User{}, err
	}

	// 2. Hash password
	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, ErrRegisterFailed
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}

	// 3. Create user and grant the default role together
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return createUserWithRoles(ctx, tx, user, domain.RoleUser)
	})
	switch {
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
		l.Info("registration conflict", slog.String("username", req.Username), slog.Any("error", err))
		return domain.User{}, err
	case err != nil:
		l.Error("failed to register user", slog.String("username", req.Username), slog.Any("error", err))
		return domain.User{}, ErrRegisterFailed
	}

	l.Info("user registered", slog.String("user_id", user.ID), slog.String("username", user.Username))
	return s.Store.Users().GetUserByID(ctx, user.ID)
}

func normaliseRegistration(req domain.Registration) (domain.Registration, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	switch {
	case req.Username == "":
		return req, fmt.Errorf("%w: username is required", ErrInvalidRequest)
	case strings.ContainsAny(req.Username, " \t\r\n"):
		return req, fmt.Errorf("%w: username must not contain whitespace", ErrInvalidRequest)
	case req.Email == "":
		return req, fmt.Errorf("%w: email is required", ErrInvalidRequest)
	case len(req.Password) < MinPasswordLength:
		return req, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRequest, MinPasswordLength)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return req, fmt.Errorf("%w: email is invalid", ErrInvalidRequest)
	}
	return req, nil
}

// createUserWithRoles inserts user and assigns each named role. Must run
// inside tx.
func createUserWithRoles(ctx context.Context, tx store.Tx, user domain.User, roles ...string) error {
	taken, err := tx.Users().UsernameExists(ctx, user.Username)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}
	taken, err = tx.Users().EmailExists(ctx, user.Email)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}

	// A concurrent registration can win between the checks and the insert.
	err = tx.Users().CreateUser(ctx, user)
	switch {
	case errors.Is(err, store.ErrUsernameExists):
		return ErrUsernameTaken
	case errors.Is(err, store.ErrEmailExists):
		return ErrEmailTaken
	case err != nil:
		return err
	}

	for _, name := range roles {
		role, err := tx.Roles().GetRoleByName(ctx, name)
		if err != nil {
			return fmt.Errorf("role %q: %w", name, err)
		}
		if err := tx.Roles().AssignRole(ctx, user.ID, role.ID); err != nil {
			return fmt.Errorf("assign role %q: %w", name, err)
		}
	}
	return nil
}
