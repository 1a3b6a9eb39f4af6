package ui

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hmetrics/app"
	"hmetrics/internal"
	"hmetrics/internal/config"
)

// App is the HTTP surface over the plot service
type App struct {
	router   *chi.Mux
	plots    *app.PlotService
	config   Config
	defaults config.PlotDefaults
	logger   *internal.Logger
}

// Config holds HTTP application configuration
type Config struct {
	Addr         string
	DPI          int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// ConfigFrom maps loaded configuration to the server settings
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Addr:         cfg.Server.Addr,
		DPI:          cfg.Render.DPI,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
}

// NewApp creates the HTTP application
func NewApp(plots *app.PlotService, cfg Config, defaults config.PlotDefaults, logger *internal.Logger) *App {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 100
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	a := &App{
		router:   chi.NewRouter(),
		plots:    plots,
		config:   cfg,
		defaults: defaults,
		logger:   logger,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5, "application/json", "text/html", "text/markdown", "image/svg+xml"))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)

	a.router.Route("/api", func(r chi.Router) {
		r.Post("/plot", a.handlePlot)
		r.Post("/pairwise", a.handlePairwise)
		r.Post("/report", a.handleReport)
	})
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.config.Addr,
		Handler:      a.router,
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting hmetrics server on %s", a.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutting down hmetrics server")
		return srv.Shutdown(shutdownCtx)
	}
}
