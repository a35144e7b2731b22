package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

// TokenExpiredHeader is set to "true" when a request failed only because
// its access token expired, telling the client to refresh.
const TokenExpiredHeader = "IS-TOKEN-EXPIRED"

// RevocationChecker looks a token id up in the blacklist.
type RevocationChecker interface {
	CheckRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenDecoder returns the claims of a live token. Errors wrapping
// jwtx.ErrExpired mark an expired token.
type TokenDecoder interface {
	DecodeValid(ctx context.Context, token string) (*jwtx.Claims, error)
}

// BearerToken returns the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RevocationGate rejects requests whose bearer token id is blacklisted.
// Everything else passes: no token, no readable token id, or a failed
// blacklist lookup. Signature and expiry are left to RequireAuth.
func RevocationGate(checker RevocationChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			tokenID, ok := jwtx.ExtractTokenID(raw)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			revoked, err := checker.CheckRevoked(ctx, tokenID)
			if err != nil {
				slogx.FromContext(ctx).Warn("revocation check failed, allowing request",
					slog.String("token_id", tokenID),
					slog.Any("error", err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if revoked {
				writeBearerError(w, "token_revoked", "the access token has been revoked")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth demands a correctly signed, unexpired bearer token and puts
// its claims on the request context.
func RequireAuth(dec TokenDecoder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "invalid_token", "missing bearer token")
				return
			}

			claims, err := dec.DecodeValid(ctx, raw)
			if errors.Is(err, jwtx.ErrExpired) {
				w.Header().Set(TokenExpiredHeader, "true")
				writeBearerError(w, "token_expired", "the access token has expired")
				return
			}
			if err != nil {
				slogx.FromContext(ctx).Info("bearer token rejected", slog.Any("error", err))
				writeBearerError(w, "invalid_token", "token verification failed")
				return
			}

			ctx = contextWithClaims(ctx, claims)
			ctx = slogx.With(ctx, slog.String("subject", claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 style bearer error.
func writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, code, desc)
}
