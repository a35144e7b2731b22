package http

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

// SessionsHandler serves DELETE /v1/sessions/{subject}.
type SessionsHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Revoke all sessions of a user
//	@Description	Drops the user's refresh token so no session of theirs can be refreshed.
//	@Description	Access tokens already issued stay valid until they expire. Requires the Admin role.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			subject	path	string	true	"user id"
//	@Success		204		"revoked"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token, token_expired, token_revoked"
//	@Failure		403		{object}	authsdk.APIError	"forbidden"
//	@Router			/v1/sessions/{subject} [delete].
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := r.PathValue("subject")

	if err := h.Sessions.RevokeAll(ctx, subject); err != nil {
		writeServiceError(w, err)
		return
	}

	slogx.FromContext(ctx).Info("admin revoked sessions",
		slog.String("admin", httpx.SubjectFromContext(ctx)),
		slog.String("subject", subject),
	)
	w.WriteHeader(http.StatusNoContent)
}
