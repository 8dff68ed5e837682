// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/pantry/internal/api"
	"github.com/starford/pantry/internal/confwatch"
	"github.com/starford/pantry/internal/dayclock"
	"github.com/starford/pantry/internal/grocy"
	"github.com/starford/pantry/internal/ledger"
	"github.com/starford/pantry/internal/macros"
	"github.com/starford/pantry/internal/mcpserver"
)

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("grocy_base_url", cfg.Grocy.BaseURL),
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	agg, store, backend, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Build API router.
	apiRouter := api.NewRouter(agg, store, backend, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the config file so tracking settings can change without a restart.
	if app.configFile != "" {
		configFile := app.configFile
		g.Go(func() error {
			if err := confwatch.Watch(gCtx, configFile, store, logger); err != nil {
				logger.Warn("config watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server. Logs go to stderr because stdout
// carries the MCP protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	agg, store, backend, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(agg, store, backend).ServeStdio()
}

// RunRecompute recalculates per-serving macro userfields for every recipe
// from its ingredients and exits.
func RunRecompute(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	backend, err := grocy.New(cfg.Grocy.BaseURL, cfg.Grocy.APIKey, cfg.Grocy.Timeout())
	if err != nil {
		return fmt.Errorf("init grocy client: %w", err)
	}

	result, err := macros.RecomputeRecipeMacros(ctx, backend, logger)
	if err != nil {
		return err
	}
	logger.Info("Recipe macros recomputed",
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped))
	return nil
}

// buildCore constructs the ledger, backend client, day clock, and aggregator
// shared by the HTTP and MCP entry points.
func buildCore(cfg *Config, logger *slog.Logger) (*macros.Aggregator, ledger.Store, *grocy.Client, error) {
	db, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init ledger: %w", err)
	}

	if err := confwatch.ApplyTracking(db, cfg.Tracking); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("apply tracking config: %w", err)
	}

	backend, err := grocy.New(cfg.Grocy.BaseURL, cfg.Grocy.APIKey, cfg.Grocy.Timeout())
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("init grocy client: %w", err)
	}

	clock := dayclock.New(db)
	agg := macros.New(backend, db, clock, logger)
	return agg, db, backend, nil
}
