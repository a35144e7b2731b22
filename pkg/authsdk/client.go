package authsdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a client for the Turnstile authentication service. It covers
// the unauthenticated operations and creates authenticated Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new auth service client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Authenticate logs in and wraps the token pair in an auto-refreshing Session.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	tokens, err := c.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// NewSession resumes a session from a stored token pair.
func (c *Client) NewSession(tokens *TokenResponse) *Session {
	return newSession(c, tokens)
}

// ============================================================================
// Session Lifecycle
// ============================================================================

// Login exchanges credentials for a token pair. Any earlier session of the
// same user stops being refreshable.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login",
		LoginRequest{Username: username, Password: password}, "")
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Refresh rotates both tokens. accessToken may be expired.
func (c *Client) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh",
		RefreshRequest{AccessToken: accessToken, RefreshToken: refreshToken}, "")
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Logout revokes accessToken and the session's refresh token. Logging out
// an already revoked token succeeds.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/logout", nil, accessToken)
	if err != nil {
		return err
	}
	if err := checkStatusNoContent(resp); err != nil && !errors.Is(err, ErrTokenRevoked) {
		return err
	}
	return nil
}

// Register creates a new account with the User role.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/register", req, "")
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// ============================================================================
// Token Inspection
// ============================================================================

// Validate reports whether accessToken is currently usable. A revoked
// token is reported as invalid rather than as an error.
func (c *Client) Validate(ctx context.Context, accessToken string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/auth/validate", nil, accessToken)
	if err != nil {
		return false, err
	}

	var v ValidateResponse
	if err := decodeJSON(resp, &v, http.StatusOK); err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			return false, nil
		}
		return false, err
	}
	return v.Valid, nil
}

// Me returns the claims carried by accessToken.
func (c *Client) Me(ctx context.Context, accessToken string) (*MeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/me", nil, accessToken)
	if err != nil {
		return nil, err
	}

	var me MeResponse
	if err := decodeJSON(resp, &me, http.StatusOK); err != nil {
		return nil, err
	}
	return &me, nil
}

// RevokeAll drops every refresh token of subject. Requires the Admin role.
func (c *Client) RevokeAll(ctx context.Context, accessToken, subject string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(subject), nil, accessToken)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
