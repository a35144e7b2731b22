package http

import (
	"net/http"

	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
)

// LogoutHandler serves POST /v1/auth/logout. It is idempotent and accepts
// expired tokens.
type LogoutHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Log out
//	@Description	Revokes the access token and drops the refresh token of its session.
//	@Description	The token is taken from the Authorization header, or from the body when the header is absent.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	authsdk.LogoutRequest	false	"token when no Authorization header is sent"
//	@Success		204		"logged out"
//	@Failure		400		{object}	authsdk.APIError	"invalid_request"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token, token_revoked"
//	@Router			/v1/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, ok := httpx.BearerToken(r)
	if !ok {
		var req authsdk.LogoutRequest
		if !decodeBody(w, r, &req) {
			return
		}
		token = req.AccessToken
	}
	if token == "" {
		authsdk.ErrInvalidRequest.WithDescription("an access token is required").WriteError(w)
		return
	}

	if err := h.Sessions.Logout(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
