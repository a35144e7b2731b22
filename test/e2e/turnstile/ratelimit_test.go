package turnstile_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies /v1/auth/login is strictly limited
// (5 req/min per IP and username) to slow down brute force.
func TestRateLimitLoginEndpoint(t *testing.T) {
	client := authsdk.NewClient(setupContainerWithDefaultRateLimits(t))
	ctx := t.Context()

	for i := range 5 {
		_, err := client.Login(ctx, "wronguser", "wrongpass")
		assertAPIError(t, err, authsdk.ErrInvalidCredentials, "attempt before limit")
		require.NotErrorIs(t, err, authsdk.ErrRateLimited, "Should not be rate limited yet (request %d)", i+1)
	}

	_, err := client.Login(ctx, "wronguser", "wrongpass")
	assertAPIError(t, err, authsdk.ErrRateLimited, "6th attempt")

	// The budget is per username, so the admin can still log in.
	_, err = client.Login(ctx, adminUsername, adminPassword)
	require.NoError(t, err)
}

func TestRateLimitHealthEndpoints(t *testing.T) {
	client := authsdk.NewClient(setupContainerWithDefaultRateLimits(t))

	// Lenient limit is 100 req/min
	for i := range 30 {
		health, err := client.GetLiveness(t.Context())
		require.NoError(t, err, "Liveness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)

		health, err = client.GetReadiness(t.Context())
		require.NoError(t, err, "Readiness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)
	}
}

func TestRateLimitHeadersPresent(t *testing.T) {
	baseURL := setupContainerWithDefaultRateLimits(t)

	register := func() *http.Response {
		body := `{"username":"","email":"","password":""}`
		resp, err := http.Post(baseURL+"/v1/auth/register", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		return resp
	}

	for range 5 {
		resp := register()
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	resp := register()
	defer resp.Body.Close()

	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "Should receive 429 status")
	require.NotEmpty(t, resp.Header.Get("Retry-After"), "Should include Retry-After header")
	require.Equal(t, "5", resp.Header.Get("X-RateLimit-Limit"))
	require.NotEmpty(t, resp.Header.Get("X-RateLimit-Window"))
}
