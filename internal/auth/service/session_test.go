package service_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/turnstile/internal/auth/tokencache"
	"github.com/aussiebroadwan/turnstile/pkg/cachex"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var signingKey = []byte("turnstile-test-signing-key-0123456789")

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	sessions *service.SessionService
	users    *service.UserService
	store    *sqlite.Store
	clock    *testClock
	codec    *jwtx.Codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	codec, err := jwtx.NewCodec(signingKey, "turnstile-test", jwtx.WithClock(clock.Now))
	require.NoError(t, err)

	mem := cachex.NewMemory(time.Hour, cachex.WithMemoryClock(clock.Now))
	t.Cleanup(func() { _ = mem.Close() })

	hasher := cryptox.NewHasher("pepper")
	ident, err := service.NewStoreIdentity(st, hasher)
	require.NoError(t, err)

	return &fixture{
		sessions: &service.SessionService{
			Codec:      codec,
			Cache:      tokencache.New(mem, slog.New(slog.DiscardHandler)),
			Identity:   ident,
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
			Now:        clock.Now,
		},
		users: &service.UserService{Store: st, Hasher: hasher},
		store: st,
		clock: clock,
		codec: codec,
	}
}

func (f *fixture) register(t *testing.T, username, password string) domain.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), domain.Registration{
		Username:  username,
		Email:     username + "@example.com",
		Password:  password,
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.NoError(t, err)
	return u
}

func tokenID(t *testing.T, token string) string {
	t.Helper()
	id, ok := jwtx.ExtractTokenID(token)
	require.True(t, ok)
	return id
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "correct-pw")

	t.Run("issues a pair", func(t *testing.T) {
		auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
		require.NoError(t, err)
		require.NotEmpty(t, auth.AccessToken)
		require.NotEmpty(t, auth.RefreshToken)
		require.Equal(t, f.clock.Now().Add(refreshTTL).UTC(), auth.RefreshTokenExpiryTime)

		claims, err := f.sessions.DecodeValid(ctx, auth.AccessToken)
		require.NoError(t, err)
		require.Equal(t, alice.ID, claims.Subject)
		require.Equal(t, "alice", claims.Username)
		require.Equal(t, "alice@example.com", claims.Email)
		require.Equal(t, "Alice Smith", claims.FullName)
		require.Equal(t, []string{domain.RoleUser}, claims.Roles)
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		_, err := f.sessions.Login(ctx, "alice", "wrong-pw")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)

		_, err = f.sessions.Login(ctx, "mallory", "correct-pw")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)

		_, err = f.sessions.Login(ctx, "", "")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("username is case insensitive", func(t *testing.T) {
		_, err := f.sessions.Login(ctx, "ALICE", "correct-pw")
		require.NoError(t, err)
	})
}

func TestLogout_Blacklists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)
	require.True(t, f.sessions.Validate(ctx, auth.AccessToken))

	require.NoError(t, f.sessions.Logout(ctx, auth.AccessToken))

	require.True(t, f.sessions.IsRevoked(ctx, tokenID(t, auth.AccessToken)))
	require.False(t, f.sessions.Validate(ctx, auth.AccessToken))

	// signature and expiry still hold on their own
	_, err = f.sessions.DecodeValid(ctx, auth.AccessToken)
	require.NoError(t, err)

	// idempotent
	require.NoError(t, f.sessions.Logout(ctx, auth.AccessToken))

	// session is gone
	_, err = f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
	require.ErrorIs(t, err, service.ErrInvalidRefreshToken)
}

func TestLogout_InvalidToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		require.ErrorIs(t, f.sessions.Logout(ctx, tok), service.ErrInvalidToken, tok)
	}
}

func TestLogout_ForgedTokenKeepsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	other, err := jwtx.NewCodec([]byte("another-signing-key-0123456789abcdef"), "turnstile-test")
	require.NoError(t, err)
	forged, err := other.Issue(alice.ID, nil, accessTTL)
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, forged))
	require.True(t, f.sessions.IsRevoked(ctx, tokenID(t, forged)))

	// the unverified subject must not end alice's real session
	_, err = f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
	require.NoError(t, err)
}

func TestLogout_ExpiredTokenSkipsBlacklist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	f.clock.Advance(accessTTL + time.Second)
	require.NoError(t, f.sessions.Logout(ctx, auth.AccessToken))
	require.False(t, f.sessions.IsRevoked(ctx, tokenID(t, auth.AccessToken)))

	_, err = f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
	require.ErrorIs(t, err, service.ErrInvalidRefreshToken)
}

func TestRefresh_Rotation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "correct-pw")

	first, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	second, err := f.sessions.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.NoError(t, err)

	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.NotEqual(t, tokenID(t, first.AccessToken), tokenID(t, second.AccessToken))
	require.True(t, f.sessions.IsRevoked(ctx, tokenID(t, first.AccessToken)))
	require.True(t, f.sessions.Validate(ctx, second.AccessToken))

	_, err = f.sessions.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.ErrorIs(t, err, service.ErrInvalidRefreshToken)

	_, err = f.sessions.Refresh(ctx, second.AccessToken, first.RefreshToken)
	require.ErrorIs(t, err, service.ErrInvalidRefreshToken)
}

func TestRefresh_BlacklistLastsRemainingLifetime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)
	oldID := tokenID(t, auth.AccessToken)

	f.clock.Advance(5 * time.Minute)
	_, err = f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
	require.NoError(t, err)
	require.True(t, f.sessions.IsRevoked(ctx, oldID))

	// ten minutes of life were left
	f.clock.Advance(10 * time.Minute)
	require.True(t, f.sessions.IsRevoked(ctx, oldID))

	f.clock.Advance(2 * time.Second)
	require.False(t, f.sessions.IsRevoked(ctx, oldID))
}

func TestRefresh_AcceptsExpiredAccessToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	f.clock.Advance(accessTTL + time.Minute)
	_, err = f.sessions.DecodeValid(ctx, auth.AccessToken)
	require.ErrorIs(t, err, service.ErrExpired)

	next, err := f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
	require.NoError(t, err)
	require.True(t, f.sessions.Validate(ctx, next.AccessToken))
}

func TestRefresh_RefetchesRoles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	admin, err := f.store.Roles().GetRoleByName(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, f.store.Roles().AssignRole(ctx, alice.ID, admin.ID))

	next, err := f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
	require.NoError(t, err)

	claims, err := f.sessions.DecodeValid(ctx, next.AccessToken)
	require.NoError(t, err)
	require.True(t, claims.HasRole(domain.RoleAdmin))
	require.True(t, claims.HasRole(domain.RoleUser))
}

func TestRefresh_InvalidAccessToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	other, err := jwtx.NewCodec([]byte("another-signing-key-0123456789abcdef"), "turnstile-test")
	require.NoError(t, err)
	forged, err := other.Issue(alice.ID, nil, accessTTL)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":   "not-a-token",
		"empty":     "",
		"wrong key": forged,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.sessions.Refresh(ctx, tok, auth.RefreshToken)
			require.ErrorIs(t, err, service.ErrInvalidToken)
		})
	}
}

func TestSingleActiveSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "correct-pw")

	first, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)
	second, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	_, err = f.sessions.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.ErrorIs(t, err, service.ErrInvalidRefreshToken)

	_, err = f.sessions.Refresh(ctx, second.AccessToken, second.RefreshToken)
	require.NoError(t, err)
}

func TestAliceScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	next, err := f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
	require.NoError(t, err)
	require.True(t, f.sessions.IsRevoked(ctx, tokenID(t, auth.AccessToken)))

	require.NoError(t, f.sessions.Logout(ctx, next.AccessToken))
	require.True(t, f.sessions.IsRevoked(ctx, tokenID(t, next.AccessToken)))

	_, err = f.sessions.Refresh(ctx, next.AccessToken, next.RefreshToken)
	require.ErrorIs(t, err, service.ErrInvalidRefreshToken)
}

func TestRevokeAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	require.NoError(t, f.sessions.RevokeAll(ctx, alice.ID))
	_, err = f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
	require.ErrorIs(t, err, service.ErrInvalidRefreshToken)

	require.ErrorIs(t, f.sessions.RevokeAll(ctx, ""), service.ErrInvalidRequest)
}

// brokenStore fails every cache operation.
type brokenStore struct{}

var errCacheDown = errors.New("dial tcp: connection refused")

func (brokenStore) Get(context.Context, string) (string, error) { return "", errCacheDown }
func (brokenStore) Set(context.Context, string, string, time.Duration) error { return errCacheDown }
func (brokenStore) Delete(context.Context, string) error { return errCacheDown }
func (brokenStore) Ping(context.Context) error { return errCacheDown }
func (brokenStore) Close() error { return nil }

func TestCacheOutage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "correct-pw")
	f.sessions.Cache = tokencache.New(brokenStore{}, slog.New(slog.DiscardHandler))

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err, "writes are best effort")

	revoked, err := f.sessions.CheckRevoked(ctx, tokenID(t, auth.AccessToken))
	require.ErrorIs(t, err, tokencache.ErrUnavailable)
	require.False(t, revoked)

	require.False(t, f.sessions.IsRevoked(ctx, tokenID(t, auth.AccessToken)))
	require.True(t, f.sessions.Validate(ctx, auth.AccessToken))

	require.NoError(t, f.sessions.Logout(ctx, auth.AccessToken))

	_, err = f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
	require.ErrorIs(t, err, service.ErrInvalidRefreshToken)
}

// stubIdentity lets a test script identity provider answers.
type stubIdentity struct {
	ident    *domain.Identity
	credsErr error
	rolesErr error
	identErr error
	onRoles  func()
}

func (s stubIdentity) ValidateCredentials(context.Context, string, string) (*domain.Identity, error) {
	return s.ident, s.credsErr
}

func (s stubIdentity) Roles(context.Context, string) ([]string, error) {
	if s.onRoles != nil {
		s.onRoles()
	}
	return []string{domain.RoleUser}, s.rolesErr
}

func (s stubIdentity) Identity(context.Context, string) (*domain.Identity, error) {
	return s.ident, s.identErr
}

func TestIdentityProviderFailures(t *testing.T) {
	ctx := context.Background()
	outage := errors.New("identity backend down")
	bob := &domain.Identity{SubjectID: "bob-id", Username: "bob"}

	t.Run("login outage is generic", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.Identity = stubIdentity{credsErr: outage}
		_, err := f.sessions.Login(ctx, "bob", "pw")
		require.ErrorIs(t, err, service.ErrLoginFailed)
		require.NotErrorIs(t, err, outage)
	})

	t.Run("roles outage on login", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.Identity = stubIdentity{ident: bob, rolesErr: outage}
		_, err := f.sessions.Login(ctx, "bob", "pw")
		require.ErrorIs(t, err, service.ErrLoginFailed)
	})

	t.Run("refresh outage is generic", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.Identity = stubIdentity{ident: bob}
		auth, err := f.sessions.Login(ctx, "bob", "pw")
		require.NoError(t, err)

		f.sessions.Identity = stubIdentity{ident: bob, identErr: outage}
		_, err = f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
		require.ErrorIs(t, err, service.ErrRefreshFailed)
	})

	t.Run("removed subject cannot refresh", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.Identity = stubIdentity{ident: bob}
		auth, err := f.sessions.Login(ctx, "bob", "pw")
		require.NoError(t, err)

		f.sessions.Identity = stubIdentity{identErr: service.ErrUnknownSubject}
		_, err = f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
		require.ErrorIs(t, err, service.ErrInvalidRefreshToken)
	})
}

func TestLogout_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, f.sessions.Logout(ctx, auth.AccessToken), service.ErrLogoutFailed)
}

func TestLoginAndRefresh_Cancelled(t *testing.T) {
	bob := &domain.Identity{SubjectID: "bob-id", Username: "bob"}

	t.Run("login", func(t *testing.T) {
		f := newFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.sessions.Identity = stubIdentity{ident: bob, onRoles: cancel}

		_, err := f.sessions.Login(ctx, "bob", "pw")
		require.ErrorIs(t, err, service.ErrLoginFailed)

		_, err = f.sessions.Cache.RefreshToken(context.Background(), bob.SubjectID)
		require.ErrorIs(t, err, tokencache.ErrNotFound)
	})

	t.Run("refresh", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.Identity = stubIdentity{ident: bob}
		auth, err := f.sessions.Login(context.Background(), "bob", "pw")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.sessions.Identity = stubIdentity{ident: bob, onRoles: cancel}

		_, err = f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
		require.ErrorIs(t, err, service.ErrRefreshFailed)

		// the old refresh token was never replaced
		ok, err := f.sessions.Cache.MatchRefreshToken(context.Background(), bob.SubjectID, auth.RefreshToken)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func TestConcurrentLogins_OneSurvives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.sessions.Identity = stubIdentity{ident: &domain.Identity{SubjectID: "alice-id", Username: "alice"}}

	const n = 8
	results := make([]*domain.Authenticated, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			auth, err := f.sessions.Login(ctx, "alice", "pw")
			if err == nil {
				results[i] = auth
			}
		})
	}
	wg.Wait()

	live := 0
	for _, auth := range results {
		require.NotNil(t, auth)
		ok, err := f.sessions.Cache.MatchRefreshToken(ctx, "alice-id", auth.RefreshToken)
		require.NoError(t, err)
		if ok {
			live++
		}
	}
	require.Equal(t, 1, live)
}

func TestConcurrentRefreshes_OneSurvives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "correct-pw")

	auth, err := f.sessions.Login(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		rotated []*domain.Authenticated
	)
	for range n {
		wg.Go(func() {
			next, err := f.sessions.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
			if err != nil {
				return
			}
			mu.Lock()
			rotated = append(rotated, next)
			mu.Unlock()
		})
	}
	wg.Wait()
	require.NotEmpty(t, rotated)

	live := 0
	for _, next := range rotated {
		ok, err := f.sessions.Cache.MatchRefreshToken(ctx, alice.ID, next.RefreshToken)
		require.NoError(t, err)
		if ok {
			live++
		}
	}
	require.Equal(t, 1, live)
}
