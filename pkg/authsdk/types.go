package authsdk

import "time"

// ============================================================================
// Session Requests
// ============================================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries the current pair. The access token may already
// be expired but must be correctly signed.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is optional on /v1/auth/logout; a bearer header takes
// precedence over the body.
type LogoutRequest struct {
	AccessToken string `json:"accessToken"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// ============================================================================
// Session Responses
// ============================================================================

// TokenResponse is the token pair returned by login and refresh.
type TokenResponse struct {
	AccessToken            string    `json:"accessToken"`
	RefreshToken           string    `json:"refreshToken"`
	AccessTokenExpiryTime  time.Time `json:"accessTokenExpiryTime"`
	RefreshTokenExpiryTime time.Time `json:"refreshTokenExpiryTime"`
}

type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// MeResponse describes the caller as seen through its access token.
type MeResponse struct {
	Subject   string    `json:"subject"`
	TokenID   string    `json:"tokenId"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"fullName,omitempty"`
	Roles     []string  `json:"roles"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserResponse is a registered user. It never carries credentials.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status ("ok" or "degraded")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains dependency status, only present on /readyz
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the identity store connection status
	Database string `json:"database"`

	// Cache indicates the token cache status. A failing cache degrades
	// readiness but the service keeps answering, failing open.
	Cache string `json:"cache"`
}
