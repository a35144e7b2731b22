package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/tokencache"
	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
	"golang.org/x/sync/errgroup"
)

// blacklistSlack covers the sub-second part of an expiry that the token
// format truncates away.
const blacklistSlack = time.Second

// SessionService drives the token lifecycle of a subject:
// anonymous -> authenticated -> (refreshed)* -> logged out or expired.
//
// The codec and the cache are independent systems. A cancelled call may
// leave partial effects behind, e.g. a refresh that blacklisted the old
// access token but never stored the new refresh token forces a re-login.
type SessionService struct {
	Codec      *jwtx.Codec
	Cache      *tokencache.Cache
	Identity   IdentityProvider
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now defaults to time.Now. Keep it in step with the codec clock.
	Now func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login checks credentials and starts a new session, replacing any session
// the subject already had.
func (s *SessionService) Login(ctx context.Context, username, password string) (*domain.Authenticated, error) {
	l := slogx.FromContext(ctx)

	// 1. Verify credentials
	ident, err := s.Identity.ValidateCredentials(ctx, username, password)
	if errors.Is(err, ErrInvalidCredentials) {
		l.Info("login rejected", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		l.Error("identity provider failed during login", slog.Any("error", err))
		return nil, ErrLoginFailed
	}

	// 2. Current roles
	roles, err := s.Identity.Roles(ctx, ident.SubjectID)
	if err != nil {
		l.Error("failed to load roles", slog.String("subject", ident.SubjectID), slog.Any("error", err))
		return nil, ErrLoginFailed
	}

	// 3. Mint access and refresh tokens
	auth, err := s.mint(ident, roles)
	if err != nil {
		l.Error("failed to mint tokens", slog.String("subject", ident.SubjectID), slog.Any("error", err))
		return nil, ErrLoginFailed
	}

	// 4. Store refresh token, overwriting any earlier one
	s.Cache.StoreRefreshToken(ctx, ident.SubjectID, auth.RefreshToken, s.RefreshTTL)
	if err := ctx.Err(); err != nil {
		l.Warn("login interrupted", slog.String("subject", ident.SubjectID), slog.Any("error", err))
		return nil, ErrLoginFailed
	}

	l.Info("login succeeded", slog.String("subject", ident.SubjectID))
	return auth, nil
}

// Refresh exchanges a correctly signed (possibly expired) access token and
// the subject's live refresh token for a new pair. Both tokens rotate.
func (s *SessionService) Refresh(ctx context.Context, accessToken, refreshToken string) (*domain.Authenticated, error) {
	l := slogx.FromContext(ctx)

	// 1. Signature must hold, expiry is ignored
	old, err := s.Codec.Decode(accessToken)
	if err != nil {
		l.Info("refresh with undecodable access token", slog.Any("error", err))
		return nil, ErrInvalidToken
	}

	// 2. Subject
	subject := old.Subject
	if subject == "" {
		return nil, ErrInvalidToken
	}

	// 3. Refresh token must be the stored one
	ok, err := s.Cache.MatchRefreshToken(ctx, subject, refreshToken)
	if err != nil {
		l.Warn("refresh token lookup failed", slog.String("subject", subject), slog.Any("error", err))
		return nil, ErrInvalidRefreshToken
	}
	if !ok {
		l.Info("refresh token mismatch", slog.String("subject", subject))
		return nil, ErrInvalidRefreshToken
	}

	// 4. Rebuild identity and roles, they may have changed since login
	ident, err := s.Identity.Identity(ctx, subject)
	if errors.Is(err, ErrUnknownSubject) {
		l.Info("refresh for removed subject", slog.String("subject", subject))
		s.Cache.RemoveRefreshToken(ctx, subject)
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		l.Error("identity provider failed during refresh", slog.String("subject", subject), slog.Any("error", err))
		return nil, ErrRefreshFailed
	}
	roles, err := s.Identity.Roles(ctx, subject)
	if err != nil {
		l.Error("failed to load roles", slog.String("subject", subject), slog.Any("error", err))
		return nil, ErrRefreshFailed
	}

	// 5. Mint new pair
	auth, err := s.mint(ident, roles)
	if err != nil {
		l.Error("failed to mint tokens", slog.String("subject", subject), slog.Any("error", err))
		return nil, ErrRefreshFailed
	}

	// 6. Retire the old access token for whatever life it had left
	if ttl := s.blacklistTTL(old); ttl > 0 {
		s.Cache.Blacklist(ctx, old.TokenID, ttl)
	}

	// 7. Store the new refresh token
	s.Cache.StoreRefreshToken(ctx, subject, auth.RefreshToken, s.RefreshTTL)
	if err := ctx.Err(); err != nil {
		l.Warn("refresh interrupted", slog.String("subject", subject), slog.Any("error", err))
		return nil, ErrRefreshFailed
	}

	l.Info("refresh succeeded", slog.String("subject", subject))
	return auth, nil
}

// Logout ends the session behind accessToken. It is idempotent.
func (s *SessionService) Logout(ctx context.Context, accessToken string) error {
	l := slogx.FromContext(ctx)

	// 1. Token id, trusted or not
	tokenID, ok := s.Codec.ExtractTokenID(accessToken)
	if !ok {
		return ErrInvalidToken
	}

	// 2. Subject only from a verified token. An unverifiable one is still
	//    blacklisted for a full access window.
	var subject string
	ttl := s.AccessTTL
	if claims, err := s.Codec.Decode(accessToken); err == nil {
		subject = claims.Subject
		ttl = s.blacklistTTL(claims)
	}

	// 3. Disjoint keys, so both writes go out together
	var g errgroup.Group
	if subject != "" {
		g.Go(func() error {
			s.Cache.RemoveRefreshToken(ctx, subject)
			return nil
		})
	}
	if ttl > 0 {
		g.Go(func() error {
			s.Cache.Blacklist(ctx, tokenID, ttl)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		l.Warn("logout interrupted", slog.String("token_id", tokenID), slog.Any("error", err))
		return ErrLogoutFailed
	}

	l.Info("logout", slog.String("token_id", tokenID), slog.String("subject", subject))
	return nil
}

// Validate reports whether accessToken is usable right now: it names a
// token id, is not blacklisted, is correctly signed and is unexpired.
func (s *SessionService) Validate(ctx context.Context, accessToken string) bool {
	tokenID, ok := s.Codec.ExtractTokenID(accessToken)
	if !ok {
		return false
	}
	if s.IsRevoked(ctx, tokenID) {
		return false
	}
	_, err := s.Codec.DecodeValid(accessToken)
	return err == nil
}

// IsRevoked fails open: a cache error is logged and reported as not revoked.
func (s *SessionService) IsRevoked(ctx context.Context, tokenID string) bool {
	revoked, err := s.CheckRevoked(ctx, tokenID)
	if err != nil {
		slogx.FromContext(ctx).Warn("blacklist check failed, allowing",
			slog.String("token_id", tokenID),
			slog.Any("error", err),
		)
		return false
	}
	return revoked
}

// CheckRevoked is IsRevoked with the cache error handed back, for callers
// that log on their own.
func (s *SessionService) CheckRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.Cache.IsBlacklisted(ctx, tokenID)
}

// DecodeValid returns the claims of a live, correctly signed token.
// It does not consult the blacklist. Errors are ErrExpired or
// ErrInvalidToken, each wrapping the codec error.
func (s *SessionService) DecodeValid(_ context.Context, accessToken string) (*jwtx.Claims, error) {
	claims, err := s.Codec.DecodeValid(accessToken)
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return nil, fmt.Errorf("%w: %w", ErrExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// RevokeAll drops the subject's refresh token. Access tokens already out
// run until they expire.
func (s *SessionService) RevokeAll(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return ErrInvalidRequest
	}
	s.Cache.RemoveRefreshToken(ctx, subjectID)
	if err := ctx.Err(); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("sessions revoked", slog.String("subject", subjectID))
	return nil
}

func (s *SessionService) mint(ident *domain.Identity, roles []string) (*domain.Authenticated, error) {
	now := s.now()

	claims := make([]jwtx.Claim, 0, 3+len(roles))
	for _, kv := range []jwtx.Claim{
		{Type: jwtx.ClaimUsername, Value: ident.Username},
		{Type: jwtx.ClaimEmail, Value: ident.Email},
		{Type: jwtx.ClaimFullName, Value: ident.FullName},
	} {
		if kv.Value != "" {
			claims = append(claims, kv)
		}
	}
	for _, r := range roles {
		claims = append(claims, jwtx.Role(r))
	}

	access, err := s.Codec.Issue(ident.SubjectID, claims, s.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Codec.GenerateOpaqueSecret()
	if err != nil {
		return nil, err
	}

	return &domain.Authenticated{
		AccessToken:            access,
		RefreshToken:           refresh,
		AccessTokenExpiryTime:  now.Add(s.AccessTTL).UTC(),
		RefreshTokenExpiryTime: now.Add(s.RefreshTTL).UTC(),
	}, nil
}

// blacklistTTL is the remaining life of a verified token plus slack, or
// zero when it has already expired.
func (s *SessionService) blacklistTTL(claims *jwtx.Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return s.AccessTTL
	}
	remaining := claims.Remaining(s.now())
	if remaining <= 0 {
		return 0
	}
	return remaining + blacklistSlack
}
