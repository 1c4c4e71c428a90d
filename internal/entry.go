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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tusk/internal/api"
	"github.com/starford/tusk/internal/daystore"
	"github.com/starford/tusk/internal/index"
	"github.com/starford/tusk/internal/mcpserver"
	"github.com/starford/tusk/internal/sse"
	"github.com/starford/tusk/internal/storage"
	"github.com/starford/tusk/internal/taskservice"
)

// App bundles the services shared by every command.
type App struct {
	Config *Config
	Logger *slog.Logger
	Store  *daystore.Store
	Tasks  *taskservice.Service
}

// Open wires storage and the task service for the configured vault. The
// vault directory is created on first use.
func Open(opts ...Option) (*App, error) {
	app := newApplication(opts)
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := app.logger
	if logger == nil {
		logger = slog.Default()
	}

	root := cfg.Store.VaultRoot()
	fs, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var storeOpts []daystore.Option
	if app.now != nil {
		storeOpts = append(storeOpts, daystore.WithClock(app.now))
	}
	store := daystore.New(fs, cfg.Defaults.TimeZone, storeOpts...)
	svc := taskservice.NewService(store,
		taskservice.WithDefaultPriority(cfg.Defaults.DefaultPriority()),
		taskservice.WithLogger(logger),
	)

	logger.Debug("vault opened",
		slog.String("root", root),
		slog.String("vault", cfg.Store.Vault),
		slog.String("time_zone", cfg.Defaults.TimeZone))

	return &App{Config: cfg, Logger: logger, Store: store, Tasks: svc}, nil
}

// OpenIndex opens the SQLite search index and brings it up to date with
// the vault.
func (a *App) OpenIndex() (*index.DB, error) {
	path := a.Config.DBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, a.Store.Provider(), a.Logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("sync index: %w", err)
	}
	return db, nil
}

// Run starts the read-only HTTP viewer with live updates and blocks until
// ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_root", cfg.Store.VaultRoot()),
		slog.String("sqlite_path", cfg.DBPath()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	a, err := Open(WithConfig(cfg), WithLogger(logger))
	if err != nil {
		return err
	}

	db, err := a.OpenIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	broker := sse.NewBroker(sse.WithStatsThrottle(2 * time.Second))
	defer broker.Close()

	apiRouter := api.NewRouter(a.Tasks, db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, db, a.Store.Provider(), logger, func(kind, path string) {
			if d, ok := daystore.DateFromPath(path); ok {
				broker.PublishDayEvent(kind, d.String())
			}
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

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
		// Stops the watcher once the server is down.
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the task tools over stdin/stdout. Logs go to stderr so
// they never corrupt the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}

	a, err := Open(WithConfig(app.config), WithLogger(logger))
	if err != nil {
		return err
	}
	db, err := a.OpenIndex()
	if err != nil {
		logger.Warn("mcp: search index unavailable", slog.String("error", err.Error()))
		db = nil
	} else {
		defer db.Close()
	}

	logger.Info("mcp: serving on stdio", slog.String("vault", app.config.Store.Vault))
	return mcpserver.New(a.Tasks, db, logger).ServeStdio()
}
