package http

import (
	"net/http"

	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
)

type ValidateHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Validate an access token
//	@Description	Reports whether the bearer token is correctly signed, unexpired and not revoked.
//	@Tags			Session
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ValidateResponse
//	@Failure		401	{object}	authsdk.APIError	"token_revoked"
//	@Router			/v1/auth/validate [get].
func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	valid := false
	if token, ok := httpx.BearerToken(r); ok {
		valid = h.Sessions.Validate(r.Context(), token)
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.ValidateResponse{Valid: valid})
}
