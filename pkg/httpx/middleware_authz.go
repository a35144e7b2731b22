package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyRole lets the request through when the caller holds at least
// one of roles. It must run after RequireAuth.
func RequireAnyRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeBearerError(w, "invalid_token", "authentication required")
				return
			}

			for _, role := range roles {
				if claims.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate",
				`Bearer error="insufficient_role", error_description="requires one of: `+strings.Join(roles, ", ")+`"`)
			WriteError(w, http.StatusForbidden, "forbidden", "requires one of: "+strings.Join(roles, ", "))
		})
	}
}
