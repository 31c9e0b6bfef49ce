// Pace - career counseling server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rahul-s27/Pace/internal/api"
	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/catalog"
	"github.com/Rahul-s27/Pace/internal/config"
	"github.com/Rahul-s27/Pace/internal/identity"
	"github.com/Rahul-s27/Pace/internal/middleware"
	"github.com/Rahul-s27/Pace/internal/provider"
	"github.com/Rahul-s27/Pace/internal/session"
	"github.com/Rahul-s27/Pace/internal/store"
	"github.com/Rahul-s27/Pace/internal/stream"
	"github.com/Rahul-s27/Pace/internal/transcript"
	"github.com/Rahul-s27/Pace/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

const catalogReloadDebounce = 500 * time.Millisecond

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"auth_mode", cfg.AuthMode,
		"provider", cfg.Provider,
		"upstream", cfg.UpstreamURL != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	catalogStore, err := catalog.NewStore(cfg.CatalogPath, logger)
	if err != nil {
		slog.Error("Failed to load catalog", "error", err)
		os.Exit(1)
	}
	if cfg.CatalogPath != "" {
		if err := catalogStore.Watch(ctx, catalogReloadDebounce); err != nil {
			slog.Warn("Catalog hot reload disabled", "error", err)
		}
	}

	// The upstream backend is optional; every consumer is left nil without it.
	var (
		client    *backend.Client
		counselor provider.Counselor
		verifier  *identity.CachedVerifier
		upstream  api.Opportunities
		pinger    api.Pinger
	)
	if cfg.UpstreamURL != "" {
		client = backend.NewClient(cfg.UpstreamURL, cfg.Timeout.Upstream, logger)
		counselor, upstream, pinger = client, client, client
		verifier = identity.NewCachedVerifier(client, cfg.Timeout.TokenCacheTTL)
		slog.Info("Upstream backend configured", "url", cfg.UpstreamURL)
	}

	providers, err := provider.NewSource(ctx, cfg, counselor, logger)
	if err != nil {
		slog.Error("Failed to initialize response provider", "error", err)
		os.Exit(1)
	}

	transcripts, err := transcript.New(transcript.Config{
		Enabled:   cfg.Transcript.Enabled,
		Dir:       cfg.Transcript.Dir,
		QueueSize: cfg.Transcript.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcripts.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	sessions := session.NewManager(session.ManagerOptions{
		Config: session.Config{
			Budget:          cfg.Session.Budget,
			TickInterval:    cfg.Session.TickInterval,
			TurnThreshold:   cfg.Session.TurnThreshold,
			GraceDelay:      cfg.Session.GraceDelay,
			ResponseTimeout: cfg.Session.ResponseTimeout,
		},
		Logger:    logger,
		Retention: cfg.Session.Retention,
		OnEnd:     api.SessionRecorder(repo, logger),
		OnEvent:   transcript.Observer(transcripts),
	})
	defer sessions.CloseAll()

	// Initialize handlers.
	apiHandler := api.NewHandler(api.Deps{
		Config:    cfg,
		Repo:      repo,
		Sessions:  sessions,
		Providers: providers,
		Catalog:   catalogStore,
		Upstream:  upstream,
		Logger:    logger,
	})
	healthHandler := api.NewHealthHandler(repo, pinger, cfg)
	streamHandler := stream.NewHandler(sessions, stream.NewRegistry(logger), cfg.CORSOrigins, cfg.IsDevelopment(), logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(identity.Options{
			Mode:     cfg.AuthMode,
			Repo:     repo,
			Verifier: verifier,
			IsDev:    cfg.IsDevelopment(),
			Logger:   logger,
		}))
		apiHandler.RegisterRoutes(r)
		r.Get("/ws/session", streamHandler.ServeHTTP)
	})

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Note: WebSocket streams are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start background workers.
	sessions.StartReaper(ctx, cfg.Session.ReapInterval)
	store.StartCleanupWorker(ctx, repo, cfg.Session.CleanupInterval, cfg.Session.HistoryRetention, logger)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped successfully")
}
