package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
)

// IdentityProvider answers who a principal is. The session service never
// touches user storage directly.
type IdentityProvider interface {
	// ValidateCredentials returns ErrInvalidCredentials for an unknown user
	// and for a wrong password alike.
	ValidateCredentials(ctx context.Context, username, password string) (*domain.Identity, error)

	// Roles returns the current role names of subjectID.
	Roles(ctx context.Context, subjectID string) ([]string, error)

	// Identity returns ErrUnknownSubject when subjectID is gone.
	Identity(ctx context.Context, subjectID string) (*domain.Identity, error)
}

// StoreIdentity is the IdentityProvider over the sqlite user store.
type StoreIdentity struct {
	Store  store.Store
	Hasher *cryptox.Hasher

	// dummyHash is verified against when the user does not exist, so both
	// rejection paths cost one argon2 derivation.
	dummyHash string
}

func NewStoreIdentity(st store.Store, hasher *cryptox.Hasher) (*StoreIdentity, error) {
	dummy, err := hasher.Hash("turnstile-dummy-password")
	if err != nil {
		return nil, err
	}
	return &StoreIdentity{Store: st, Hasher: hasher, dummyHash: dummy}, nil
}

func (s *StoreIdentity) ValidateCredentials(ctx context.Context, username, password string) (*domain.Identity, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		_ = s.Hasher.Verify(password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	switch err := s.Hasher.Verify(password, user.PasswordHash); {
	case errors.Is(err, cryptox.ErrPasswordMismatch):
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("verify password for %s: %w", user.ID, err)
	}
	return user.Identity(), nil
}

func (s *StoreIdentity) Roles(ctx context.Context, subjectID string) ([]string, error) {
	return s.Store.Roles().ListRoleNamesForUser(ctx, subjectID)
}

func (s *StoreIdentity) Identity(ctx context.Context, subjectID string) (*domain.Identity, error) {
	user, err := s.Store.Users().GetUserByID(ctx, subjectID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownSubject
	}
	if err != nil {
		return nil, err
	}
	return user.Identity(), nil
}
