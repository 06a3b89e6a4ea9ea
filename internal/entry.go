// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/seokju-na/geeks-diary-sub001/internal/api"
	"github.com/seokju-na/geeks-diary-sub001/internal/index"
	"github.com/seokju-na/geeks-diary-sub001/internal/mcpserver"
	"github.com/seokju-na/geeks-diary-sub001/internal/noteservice"
	"github.com/seokju-na/geeks-diary-sub001/internal/sse"
	"github.com/seokju-na/geeks-diary-sub001/internal/storage"
	"github.com/seokju-na/geeks-diary-sub001/internal/workspace"
)

// runtime is what both entry points share: a logger, the workspace files and
// an index that has caught up with them.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	svc    *noteservice.Service
}

func setup(opts []Option, defaultOutput io.Writer) (*application, *runtime, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = defaultOutput
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Duration("debounce_delay", cfg.Editor.DebounceDelay),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create workspace dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(context.Background(), db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return app, &runtime{
		cfg:    cfg,
		logger: logger,
		store:  store,
		db:     db,
		svc:    noteservice.NewService(store, db),
	}, nil
}

// Run starts the HTTP server with the given options and blocks until ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	_, rt, err := setup(opts, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	cfg, logger := rt.cfg, rt.logger

	broker := sse.NewBroker(cfg.Events.Throttle,
		sse.WithHeartbeat(cfg.Events.Heartbeat),
		sse.WithLogger(logger))
	defer broker.Close()

	ws := workspace.New(rt.svc, rt.store, broker,
		workspace.WithDelay(cfg.Editor.DebounceDelay),
		workspace.WithLogger(logger))
	defer ws.Close()

	apiRouter := api.NewRouter(rt.svc, ws, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(gCtx, rt.db, rt.store, cfg.Workspace.Path, logger, broker.PublishNoteEvent); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		// Streaming clients hold their connections open until the broker closes.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the note library to an MCP client over stdin/stdout. Logs go
// to stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, rt, err := setup(opts, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	srv := mcpserver.New(rt.svc, app.version)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := index.Watch(gCtx, rt.db, rt.store, rt.cfg.Workspace.Path, rt.logger, nil); err != nil {
			rt.logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})
	g.Go(func() error {
		rt.logger.Info("Starting MCP server on stdio", slog.String("version", app.version))
		if err := srv.Listen(gCtx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	return nil
}
