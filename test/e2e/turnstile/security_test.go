package turnstile_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestInvalidCredentials(t *testing.T) {
	client := authsdk.NewClient(setupContainer(t))

	tests := []struct {
		name     string
		username string
		password string
		want     *authsdk.APIError
	}{
		{"wrong password", adminUsername, "WrongPassword!", authsdk.ErrInvalidCredentials},
		{"unknown user", "nobody", adminPassword, authsdk.ErrInvalidCredentials},
		{"missing password", adminUsername, "", authsdk.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Login(t.Context(), tt.username, tt.password)
			assertAPIError(t, err, tt.want, tt.name)
		})
	}
}

func TestForgedTokenIsRejected(t *testing.T) {
	client := authsdk.NewClient(setupContainer(t))

	tokens, err := client.Login(t.Context(), adminUsername, adminPassword)
	require.NoError(t, err)

	parts := strings.Split(tokens.AccessToken, ".")
	require.Len(t, parts, 3)
	forged := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	_, err = client.Me(t.Context(), forged)
	assertAPIError(t, err, authsdk.ErrInvalidToken, "tampered signature")

	_, err = client.Me(t.Context(), "")
	assertAPIError(t, err, authsdk.ErrInvalidToken, "missing token")
}

// TestRevokeAllRequiresAdmin checks that only admins can end other users'
// sessions and that doing so stops the victim from refreshing.
func TestRevokeAllRequiresAdmin(t *testing.T) {
	client := authsdk.NewClient(setupContainer(t))
	ctx := t.Context()

	alice, aliceSession := registerAndLogin(t, client, "alice")
	bob, _ := registerAndLogin(t, client, "bob")

	err := aliceSession.RevokeAll(ctx, bob.ID)
	assertAPIError(t, err, authsdk.ErrForbidden, "non-admin revoke")

	admin, err := client.Authenticate(ctx, adminUsername, adminPassword)
	require.NoError(t, err)
	require.NoError(t, admin.RevokeAll(ctx, alice.ID))

	tokens := aliceSession.Tokens()
	_, err = client.Refresh(ctx, tokens.AccessToken, tokens.RefreshToken)
	assertAPIError(t, err, authsdk.ErrInvalidRefreshToken, "refresh after revoke all")
}

func TestLoginIsNotCached(t *testing.T) {
	baseURL := setupContainer(t)

	body := `{"username":"` + adminUsername + `","password":"` + adminPassword + `"}`
	resp, err := http.Post(baseURL+"/v1/auth/login", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}
