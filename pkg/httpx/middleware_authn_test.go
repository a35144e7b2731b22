package httpx_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/httpx"
	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func issue(t *testing.T, ttl time.Duration, roles ...string) (string, string) {
	t.Helper()
	codec, err := jwtx.NewCodec(testKey, "test")
	require.NoError(t, err)

	claims := make([]jwtx.Claim, 0, len(roles))
	for _, r := range roles {
		claims = append(claims, jwtx.Role(r))
	}
	tok, err := codec.Issue("user-1", claims, ttl)
	require.NoError(t, err)

	id, ok := jwtx.ExtractTokenID(tok)
	require.True(t, ok)
	return tok, id
}

type checkerFunc func(ctx context.Context, tokenID string) (bool, error)

func (f checkerFunc) CheckRevoked(ctx context.Context, tokenID string) (bool, error) {
	return f(ctx, tokenID)
}

// codecDecoder adapts a codec to TokenDecoder.
type codecDecoder struct{ codec *jwtx.Codec }

func (d codecDecoder) DecodeValid(_ context.Context, token string) (*jwtx.Claims, error) {
	c, err := d.codec.DecodeValid(token)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return c, nil
}

func newDecoder(t *testing.T) codecDecoder {
	t.Helper()
	codec, err := jwtx.NewCodec(testKey, "test")
	require.NoError(t, err)
	return codecDecoder{codec: codec}
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "bearer abc", want: "abc", ok: true},
		{header: "Bearer   abc  ", want: "abc", ok: true},
		{header: "Bearer ", ok: false},
		{header: "Basic abc", ok: false},
		{header: "", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tc.header)
			got, ok := httpx.BearerToken(req)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRevocationGate(t *testing.T) {
	valid, validID := issue(t, time.Minute)

	t.Run("blacklisted token is rejected", func(t *testing.T) {
		called := false
		next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
		gate := httpx.RevocationGate(checkerFunc(func(_ context.Context, id string) (bool, error) {
			return id == validID, nil
		}))

		rec := serve(gate(next), valid)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.False(t, called)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="token_revoked"`)
		require.Contains(t, rec.Body.String(), `"error":"token_revoked"`)
	})

	passes := []struct {
		name    string
		token   string
		checker checkerFunc
	}{
		{
			name:  "no token",
			token: "",
			checker: func(context.Context, string) (bool, error) {
				panic("checker must not run")
			},
		},
		{
			name:  "unparseable token",
			token: "not-a-jwt",
			checker: func(context.Context, string) (bool, error) {
				panic("checker must not run")
			},
		},
		{
			name:    "not blacklisted",
			token:   valid,
			checker: func(context.Context, string) (bool, error) { return false, nil },
		},
		{
			name:    "cache failure fails open",
			token:   valid,
			checker: func(context.Context, string) (bool, error) { return false, errors.New("redis down") },
		},
	}
	for _, tc := range passes {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusNoContent)
			})
			rec := serve(httpx.RevocationGate(tc.checker)(next), tc.token)
			require.True(t, called)
			require.Equal(t, http.StatusNoContent, rec.Code)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	dec := newDecoder(t)

	t.Run("stores claims", func(t *testing.T) {
		tok, _ := issue(t, time.Minute, "User")
		var got *jwtx.Claims
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = httpx.ClaimsFromContext(r.Context())
			require.Equal(t, "user-1", httpx.SubjectFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})

		rec := serve(httpx.RequireAuth(dec)(next), tok)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got)
		require.Equal(t, []string{"User"}, got.Roles)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := serve(httpx.RequireAuth(dec)(okHandler), "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), `"error":"invalid_token"`)
		require.Empty(t, rec.Header().Get(httpx.TokenExpiredHeader))
	})

	t.Run("expired token is flagged", func(t *testing.T) {
		tok, _ := issue(t, -time.Second)
		rec := serve(httpx.RequireAuth(dec)(okHandler), tok)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "true", rec.Header().Get(httpx.TokenExpiredHeader))
		require.Contains(t, rec.Body.String(), `"error":"token_expired"`)
	})

	t.Run("bad signature", func(t *testing.T) {
		other, err := jwtx.NewCodec([]byte("another-key-another-key-another-key"), "test")
		require.NoError(t, err)
		tok, err := other.Issue("user-1", nil, time.Minute)
		require.NoError(t, err)

		rec := serve(httpx.RequireAuth(dec)(okHandler), tok)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Empty(t, rec.Header().Get(httpx.TokenExpiredHeader))
	})
}

func TestRequireAnyRole(t *testing.T) {
	dec := newDecoder(t)
	h := httpx.Chain(okHandler, httpx.RequireAuth(dec), httpx.RequireAnyRole("Admin"))

	admin, _ := issue(t, time.Minute, "User", "Admin")
	user, _ := issue(t, time.Minute, "User")

	require.Equal(t, http.StatusOK, serve(h, admin).Code)

	rec := serve(h, user)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), `"error":"forbidden"`)

	// without RequireAuth in front there are no claims
	rec = serve(httpx.RequireAnyRole("Admin")(okHandler), admin)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	serve(httpx.Chain(okHandler, mark("a"), mark("b"), mark("c")), "")
	require.Equal(t, []string{"a", "b", "c"}, order)
}
