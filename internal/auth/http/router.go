package http

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
	"github.com/rs/cors"

	_ "github.com/aussiebroadwan/turnstile/api/turnstile" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig holds the HTTP-facing settings of the service.
type RouterConfig struct {
	BuildVersion   string
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For for rate limiting.
	TrustedProxies []netip.Prefix
	RateLimits     httpx.RateLimitProfiles
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	limits       httpx.RateLimitProfiles
	logger       *slog.Logger

	db    Pinger
	cache Pinger

	Sessions *service.SessionService
	Users    *service.UserService
}

func NewRouter(
	cfg RouterConfig,
	sessions *service.SessionService,
	users *service.UserService,
	db, cache Pinger,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: cfg.BuildVersion,
		startTime:    time.Now(),
		limits:       cfg.RateLimits.WithTrustedProxies(cfg.TrustedProxies),
		logger:       logger,
		db:           db,
		cache:        cache,
		Sessions:     sessions,
		Users:        users,
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", slogx.RequestIDHeader},
		ExposedHeaders: []string{
			httpx.TokenExpiredHeader,
			slogx.RequestIDHeader,
			"WWW-Authenticate",
			"Retry-After",
		},
	})

	// Logging outermost so rejected requests are still logged.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		c.Handler,
		httpx.RevocationGate(r.Sessions),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerUsers()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Turnstile Authentication Service API
//	@version		0.1.0
//	@description	Session lifecycle for username and password logins: short lived HS256 access tokens,
//	@description	single use refresh tokens and immediate revocation on logout.
//	@description
//	@description				Expired access tokens are answered with the IS-TOKEN-EXPIRED: true header.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/turnstile
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	// POST /login - strict rate limit by IP + username to slow down brute force
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{Sessions: r.Sessions},
			httpx.RateLimitByIPAndJSONField(r.limits.Strict, "username"),
		),
	)

	// POST /refresh - strict rate limit by IP
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(&RefreshHandler{Sessions: r.Sessions},
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)

	// POST /logout - moderate rate limit
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(&LogoutHandler{Sessions: r.Sessions},
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)

	// GET /validate - lenient, resource servers may call it per request
	r.Mux.Handle("GET /v1/auth/validate",
		httpx.Chain(&ValidateHandler{Sessions: r.Sessions},
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
}

func (r *Router) registerUsers() {
	// POST /register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(&RegisterHandler{Users: r.Users},
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)

	// GET /me - lenient rate limit by user
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(&MeHandler{},
			httpx.RequireAuth(r.Sessions),
			httpx.RateLimitBySubject(r.limits.Lenient),
		),
	)
}

func (r *Router) registerAdmin() {
	// DELETE /sessions/{subject} - moderate rate limit by user
	r.Mux.Handle("DELETE /v1/sessions/{subject}",
		httpx.Chain(&SessionsHandler{Sessions: r.Sessions},
			httpx.RequireAuth(r.Sessions),
			httpx.RequireAnyRole(domain.RoleAdmin),
			httpx.RateLimitBySubject(r.limits.Moderate),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.db, r.cache),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
}
