package service

import "errors"

// Expected failures. The names double as the wire error codes.
var (
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrInvalidToken        = errors.New("invalid_token")
	ErrInvalidRefreshToken = errors.New("invalid_refresh_token")
	ErrExpired             = errors.New("token_expired")
	ErrInvalidRequest      = errors.New("invalid_request")
	ErrUsernameTaken       = errors.New("username_taken")
	ErrEmailTaken          = errors.New("email_taken")

	// ErrUnknownSubject is returned by an IdentityProvider for a subject
	// that no longer exists.
	ErrUnknownSubject = errors.New("unknown_subject")
)

// Unexpected failures are logged where they happen and replaced by one of
// these, so no internal detail reaches the caller.
var (
	ErrLoginFailed    = errors.New("login_failed")
	ErrRefreshFailed  = errors.New("refresh_failed")
	ErrLogoutFailed   = errors.New("logout_failed")
	ErrRegisterFailed = errors.New("register_failed")
)
