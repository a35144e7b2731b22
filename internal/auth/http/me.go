package http

import (
	"net/http"

	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
)

// MeHandler returns the claims RequireAuth placed on the request.
type MeHandler struct{}

// ServeHTTP godoc
//
//	@Summary		Current caller
//	@Description	Returns the identity and roles carried by the access token.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.APIError	"invalid_token, token_expired, token_revoked"
//	@Router			/v1/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	resp := authsdk.MeResponse{
		Subject:  claims.Subject,
		TokenID:  claims.TokenID,
		Username: claims.Username,
		Email:    claims.Email,
		FullName: claims.FullName,
		Roles:    claims.Roles,
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.UTC()
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.UTC()
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
