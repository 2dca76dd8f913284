package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/linkforge/linkforge-api/config"
	httpx "github.com/linkforge/linkforge-api/internal/http"
	"github.com/linkforge/linkforge-api/internal/service"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	var dbPing func(context.Context) error
	if cfg.DB != nil {
		dbPing = cfg.DB.PingContext
	}

	services := httpx.RouterServices{
		Auth:      cfg.Services.Auth,
		Projects:  cfg.Services.Projects,
		Jobs:      cfg.Services.Jobs,
		Dispatch:  cfg.Services.Dispatch,
		Scheduler: cfg.Services.Scheduler,
		Ingest:    cfg.Services.Ingest,
		Usage:     cfg.Services.Usage,
		Orgs:      cfg.Services.Orgs,
		Cookie: httpx.SessionCookieConfig{
			Name:   appCfg.Auth.CookieName,
			Domain: appCfg.HTTP.CookieDomain,
			Secure: appCfg.Auth.CookieSecure,
		},
		EdgeSecret: appCfg.Engine.Secret,
		DBPing:     dbPing,
		Logger:     logger,
	}

	handler := buildHTTPHandler(logger, services)

	// Start server (logs "starting HTTP server" internally)
	server := startServer(logger, handler, appCfg.HTTP.Addr)

	return server
}

func buildHTTPHandler(logger *slog.Logger, services httpx.RouterServices) http.Handler {
	router := httpx.NewRouter(services)

	// Order: Recover -> Logging -> Router
	h := httpx.Logging(logger)(router)
	h = httpx.Recover(logger)(h)

	return h
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: the event stream endpoint holds its response
		// open indefinitely.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context    context.Context
	Server     *http.Server
	JobService *service.JobService
	Logger     *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	// Stop job change listeners first so open event streams drain
	if cfg.JobService != nil {
		cfg.JobService.StopAllListeners()
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(cfg.Context, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
