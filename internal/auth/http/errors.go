package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
)

// writeServiceError maps a service error to its wire envelope. Anything
// unrecognised is a server_error; services have already logged it.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WithDescription(detail(err, service.ErrInvalidRequest)).WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrExpired):
		w.Header().Set(httpx.TokenExpiredHeader, "true")
		authsdk.ErrTokenExpired.WriteError(w)
	case errors.Is(err, service.ErrInvalidToken):
		authsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrInvalidRefreshToken):
		authsdk.ErrInvalidRefreshToken.WriteError(w)
	case errors.Is(err, service.ErrUsernameTaken):
		authsdk.ErrConflict.WithDescription("username is already taken").WriteError(w)
	case errors.Is(err, service.ErrEmailTaken):
		authsdk.ErrConflict.WithDescription("email is already registered").WriteError(w)
	default:
		authsdk.ErrServerError.WriteError(w)
	}
}

// detail strips the sentinel prefix from a "sentinel: detail" error.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return authsdk.ErrInvalidRequest.Description
	}
	return msg
}

// decodeBody reads a JSON body, answering invalid_request itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(w, r, v); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("request body must be a JSON object").WriteError(w)
		return false
	}
	return true
}

func tokenResponse(auth *domain.Authenticated) authsdk.TokenResponse {
	return authsdk.TokenResponse(*auth)
}
