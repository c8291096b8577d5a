package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/cache"
	httpapi "github.com/bluesystem/verifika/internal/verifika/http"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/internal/verifika/store/drivers/mysql"
	"github.com/bluesystem/verifika/internal/verifika/store/drivers/sqlite"
	"github.com/bluesystem/verifika/pkg/httpx"
	"github.com/bluesystem/verifika/pkg/jwtx"
	"github.com/bluesystem/verifika/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v1.0.0"
)

// Application encapsulates the API with all its dependencies.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	started time.Time

	// Core dependencies
	db       store.Store
	cache    *cache.Cache
	signer   jwtx.Signer
	verifier jwtx.Verifier

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg:     cfg,
		started: time.Now(),
		logger: slogx.New(slogx.Config{
			Service: cfg.Service,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initTokens(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initCache()
	app.initHTTP()

	return app, nil
}

// Handler exposes the routed handler, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("verifika api starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown drains in-flight requests, then releases the cache and the
// database pool.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down verifika api...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("verifika api stopped")
	return nil
}

// initDatabase opens the configured store and applies migrations.
func (app *Application) initDatabase() error {
	switch app.cfg.StoreDriver {
	case "sqlite":
		db, err := sqlite.NewStore(sqlite.DSN(app.cfg.SQLitePath))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		app.db = db
	default:
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.DBTimeout)
		defer cancel()
		db, err := mysql.Open(ctx, mysql.Config{
			Host:         app.cfg.DBHost,
			Port:         app.cfg.DBPort,
			User:         app.cfg.DBUser,
			Password:     app.cfg.DBPassword,
			Name:         app.cfg.DBName,
			TLS:          app.cfg.DBTLS,
			MaxOpenConns: app.cfg.DBConnectionLimit,
			Timeout:      app.cfg.DBTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		app.db = db
		if !app.cfg.DBMigrate {
			return nil
		}
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initTokens() error {
	signer, err := jwtx.NewSignerHS256([]byte(app.cfg.JWTSecret))
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	verifier, err := jwtx.NewVerifierHS256([]byte(app.cfg.JWTSecret), jwtx.VerifyOptions{
		Issuer: app.cfg.JWTIssuer,
		Leeway: 30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	app.signer = signer
	app.verifier = verifier
	return nil
}

// initCache builds the session cache. It never fails: an unreachable Redis
// only degrades sessions and shows up in /health/ready.
func (app *Application) initCache() {
	app.cache = cache.New(cache.Config{
		Host:       app.cfg.RedisHost,
		Port:       app.cfg.RedisPort,
		Password:   app.cfg.RedisPassword,
		DB:         app.cfg.RedisDB,
		Timeout:    app.cfg.RedisTimeout,
		Prefix:     app.cfg.Service,
		SessionTTL: app.cfg.SessionTTL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.RedisTimeout)
	defer cancel()
	if _, err := app.cache.Ping(ctx); err != nil {
		app.logger.Warn("session cache unavailable at startup", "error", err)
	}
}

// initHTTP builds the services, wires them to the router and prepares the
// server.
func (app *Application) initHTTP() {
	tokens := &service.TokenService{
		Signer:      app.signer,
		Issuer:      app.cfg.JWTIssuer,
		TTL:         app.cfg.JWTTTL,
		RememberTTL: app.cfg.JWTRememberTTL,
	}

	router := httpapi.NewRouter(app.verifier, app.logger, httpapi.Options{
		Debug:        app.cfg.IsDev(),
		CORSOrigins:  app.cfg.CORSOrigins,
		GeneralLimit: httpx.WindowLimit(app.cfg.RateLimitWindow, app.cfg.RateLimitRequests),
	})

	router.AuthService = &service.AuthService{
		Store:             app.db,
		Sessions:          app.cache,
		Tokens:            tokens,
		BcryptCost:        app.cfg.BcryptCost,
		AllowRegistration: app.cfg.AllowRegistration,
	}
	router.AccountService = &service.AccountService{Store: app.db, Sessions: app.cache, BcryptCost: app.cfg.BcryptCost}
	router.BootstrapService = &service.BootstrapService{
		Store:      app.db,
		Token:      app.cfg.BootstrapToken,
		BcryptCost: app.cfg.BcryptCost,
	}
	router.TechnicianService = &service.TechnicianService{Store: app.db, Sessions: app.cache, BcryptCost: app.cfg.BcryptCost}
	router.ClientService = &service.ClientService{Store: app.db, Sessions: app.cache, BcryptCost: app.cfg.BcryptCost}
	router.CompetencyService = &service.CompetencyService{Store: app.db}
	router.AssignmentService = &service.AssignmentService{Store: app.db}
	router.ActivityService = &service.ActivityService{Store: app.db}
	router.ValidationService = &service.ValidationService{Store: app.db}
	router.ContactService = &service.ContactService{}
	router.HealthService = &service.HealthService{
		Store:   app.db,
		Cache:   app.cache,
		Service: app.cfg.Service,
		Version: BuildVersion,
		Env:     app.cfg.Env,
		Started: app.started,
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
