package authsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// refreshBuffer is how long before expiry a Session refreshes on its own.
const refreshBuffer = 30 * time.Second

// ErrNoSession is returned once a Session has been logged out.
var ErrNoSession = errors.New("authsdk: session has no tokens")

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *Client

	mu               sync.RWMutex
	accessToken      string
	refreshToken     string
	expiresAt        time.Time
	refreshExpiresAt time.Time
}

// newSession creates a new authenticated session from a token response.
func newSession(client *Client, tokens *TokenResponse) *Session {
	return &Session{
		client:       client,
		accessToken:  tokens.AccessToken,
		refreshToken: tokens.RefreshToken,
		expiresAt:    tokens.AccessTokenExpiryTime.Add(-refreshBuffer),

		refreshExpiresAt: tokens.RefreshTokenExpiryTime,
	}
}

// Logout ends the session on the server and forgets the tokens. The access
// token is sent as is; the server accepts an expired one.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken == "" {
		return ErrNoSession
	}
	if err := s.client.Logout(ctx, s.accessToken); err != nil {
		return err
	}

	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.refreshExpiresAt = time.Time{}
	return nil
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.accessToken != "" && time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	// Token expired, need to refresh
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if s.accessToken != "" && time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// forceRefresh refreshes unless another goroutine already replaced stale.
func (s *Session) forceRefresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != stale && s.accessToken != "" {
		return s.accessToken, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// refreshLocked rotates the pair. The caller holds the write lock.
func (s *Session) refreshLocked(ctx context.Context) error {
	if s.accessToken == "" || s.refreshToken == "" {
		return ErrNoSession
	}

	tokens, err := s.client.Refresh(ctx, s.accessToken, s.refreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.expiresAt = tokens.AccessTokenExpiryTime.Add(-refreshBuffer)
	s.refreshExpiresAt = tokens.RefreshTokenExpiryTime
	return nil
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Tokens returns the current pair, e.g. to persist and later resume with
// Client.NewSession.
func (s *Session) Tokens() TokenResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TokenResponse{
		AccessToken:            s.accessToken,
		RefreshToken:           s.refreshToken,
		AccessTokenExpiryTime:  s.expiresAt.Add(refreshBuffer),
		RefreshTokenExpiryTime: s.refreshExpiresAt,
	}
}
