/*
Package authsdk provides a client SDK for the Turnstile authentication service.

# Client vs Session

The package is organized around two main types:

  - Client: Provides the session lifecycle calls and creates authenticated sessions
  - Session: Holds a token pair and refreshes it automatically

Create a Client to log in, register, or probe the service:

	client := authsdk.NewClient("https://auth.example.com")

	// Check service health
	health, err := client.GetLiveness(ctx)

	// Authenticate to create a session
	session, err := client.Authenticate(ctx, "alice", "correct-horse")

Use a Session for authenticated operations:

	me, err := session.Me(ctx)

	// Admin only
	err = session.RevokeAll(ctx, subjectID)

	// Ends the session on the server
	err = session.Logout(ctx)

# Automatic Token Refresh

All Session methods call getValidToken() internally, which:

 1. Checks if the access token is still valid (with 30-second buffer)
 2. If expired, exchanges the access and refresh tokens at /v1/auth/refresh
 3. Stores the rotated pair

If the server still answers token_expired (its clock runs ahead of ours),
the session refreshes once and retries the request.

A refresh token is single use and only the latest login of a user holds a
live one. Logging in elsewhere therefore ends this session at its next
refresh with ErrInvalidRefreshToken.

# Error Handling

Failed requests return *APIError, which matches the predefined errors by
code:

	_, err := client.Login(ctx, username, password)
	if errors.Is(err, authsdk.ErrInvalidCredentials) {
		// wrong username or password
	}

# Thread Safety

Sessions are safe for concurrent use. Concurrent callers that find the
token expired share a single refresh.
*/
package authsdk
