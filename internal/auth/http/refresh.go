package http

import (
	"net/http"

	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
)

// RefreshHandler serves POST /v1/auth/refresh. The access token travels in
// the body because it is usually already expired.
type RefreshHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Refresh tokens
//	@Description	Exchanges a correctly signed, possibly expired access token and the current refresh token for a new pair.
//	@Description	Both tokens rotate and the old access token is revoked. A refresh token can be used once.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"current token pair"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError	"invalid_request"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token, invalid_refresh_token"
//	@Failure		429		{object}	authsdk.APIError	"rate_limit_exceeded"
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/v1/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		authsdk.ErrInvalidRequest.WithDescription("accessToken and refreshToken are required").WriteError(w)
		return
	}

	auth, err := h.Sessions.Refresh(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(auth))
}
