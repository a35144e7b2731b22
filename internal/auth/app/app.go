package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/turnstile/internal/auth/http"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/turnstile/internal/auth/tokencache"
	"github.com/aussiebroadwan/turnstile/pkg/cachex"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     *sqlite.Store
	cache  cachex.Store
	codec  *jwtx.Codec
	hasher *cryptox.Hasher

	// Services
	sessionService   *service.SessionService
	userService      *service.UserService
	bootstrapService *service.BootstrapService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "turnstile",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()

	if err := app.initCrypto(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.bootstrap(ctx); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		app.closeStores()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("turnstile starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.closeStores()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones up to the
// grace period, then closes the cache and the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down turnstile...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing token cache", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("turnstile stopped")
	return nil
}

// Handler exposes the routed handler, e.g. for httptest.
func (app *Application) Handler() http.Handler {
	return app.router
}

func (app *Application) closeStores() {
	if app.cache != nil {
		_ = app.cache.Close()
	}
	_ = app.db.Close()
}

// initCrypto loads the signing key and the password pepper.
func (app *Application) initCrypto() error {
	key, err := decodeSigningKey(app.cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}
	codec, err := jwtx.NewCodec(key, app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}
	app.codec = codec

	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initCache picks Redis when an address is configured. Redis must be
// reachable at startup; later outages are tolerated by failing open.
func (app *Application) initCache(ctx context.Context) error {
	if app.cfg.Redis.Addr == "" {
		app.cache = cachex.NewMemory(app.cfg.MemorySweepInterval)
		app.logger.Warn("REDIS_ADDR not set, using in-process token cache; sessions are lost on restart")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, app.cfg.Redis.DialTimeout)
	defer cancel()

	cache, err := cachex.NewRedis(ctx, app.cfg.Redis, app.logger)
	if err != nil {
		return fmt.Errorf("failed to connect token cache: %w", err)
	}
	app.cache = cache
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	identity, err := service.NewStoreIdentity(app.db, app.hasher)
	if err != nil {
		return fmt.Errorf("failed to initialize identity provider: %w", err)
	}

	app.sessionService = &service.SessionService{
		Codec:      app.codec,
		Cache:      tokencache.New(app.cache, app.logger),
		Identity:   identity,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}
	app.userService = &service.UserService{Store: app.db, Hasher: app.hasher}
	app.bootstrapService = &service.BootstrapService{Store: app.db, Hasher: app.hasher}
	return nil
}

// bootstrap seeds the first admin when configured and the store is empty.
func (app *Application) bootstrap(ctx context.Context) error {
	if app.cfg.BootstrapAdminUsername == "" {
		done, err := app.bootstrapService.IsBootstrapped(ctx)
		if err != nil {
			return fmt.Errorf("failed to check bootstrap state: %w", err)
		}
		if !done {
			app.logger.Warn("no users exist and BOOTSTRAP_ADMIN_USERNAME is not set; only self registration is possible")
		}
		return nil
	}

	ctx = slogx.WithContext(ctx, app.logger)
	id, err := app.bootstrapService.EnsureAdmin(ctx, service.AdminSeed{
		Username: app.cfg.BootstrapAdminUsername,
		Password: app.cfg.BootstrapAdminPassword,
		Email:    app.cfg.BootstrapAdminEmail,
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if id != "" {
		app.logger.Info("bootstrap admin created", "user_id", id, "username", app.cfg.BootstrapAdminUsername)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	proxies, err := httpx.ParseTrustedProxies(app.cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}

	router := httpapi.NewRouter(
		httpapi.RouterConfig{
			BuildVersion:   BuildVersion,
			AllowedOrigins: app.cfg.CORSAllowedOrigins,
			TrustedProxies: proxies,
			RateLimits:     app.cfg.RateLimits,
		},
		app.sessionService,
		app.userService,
		app.db,
		app.sessionService.Cache,
		app.logger,
	)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
