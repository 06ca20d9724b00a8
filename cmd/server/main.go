// Scripture Companion - devotional Bible story server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/scripture-companion/internal/api"
	"github.com/ashureev/scripture-companion/internal/config"
	"github.com/ashureev/scripture-companion/internal/gemini"
	"github.com/ashureev/scripture-companion/internal/health"
	"github.com/ashureev/scripture-companion/internal/identity"
	"github.com/ashureev/scripture-companion/internal/media"
	"github.com/ashureev/scripture-companion/internal/middleware"
	"github.com/ashureev/scripture-companion/internal/notes"
	"github.com/ashureev/scripture-companion/internal/notify"
	"github.com/ashureev/scripture-companion/internal/store"
	"github.com/ashureev/scripture-companion/internal/stories"
	"github.com/ashureev/scripture-companion/internal/stream"
	"github.com/ashureev/scripture-companion/internal/workspace"
	"github.com/ashureev/scripture-companion/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout     = 10 * time.Second
	limiterCleanupEvery = 10 * time.Minute
)

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

	if err := run(cfg, logger); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "dev", cfg.IsDevelopment(), "ai_enabled", cfg.AIEnabled())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath, store.WithRetry(cfg.Retry.DatabaseMaxRetries, cfg.Retry.DatabaseRetryBaseDelay))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	clips, err := media.NewStore(cfg.MediaDir)
	if err != nil {
		return err
	}

	catalog, err := stories.Load()
	if err != nil {
		return err
	}
	slog.Info("Story catalog loaded", "stories", len(catalog.List()))

	var backend gemini.Backend
	if cfg.AIEnabled() {
		b, err := gemini.NewGenAIBackend(ctx, cfg.Gemini, logger)
		if err != nil {
			slog.Warn("Gemini client unavailable, AI features will be disabled", "error", err)
		} else {
			backend = b
		}
	} else {
		slog.Info("AI features disabled (GEMINI_API_KEY not set)")
	}
	content := gemini.NewService(backend, gemini.Options{
		Temperature:  cfg.Gemini.Temperature,
		PollInterval: cfg.Gemini.VideoPollInterval,
		Logger:       logger,
	})

	workspaces := workspace.NewManager(workspace.Deps{
		Catalog: catalog,
		Content: content,
		Clips:   clips,
		Notes:   notes.NewRegistry(repo, logger),
		Logger:  logger,
	})
	sweeper := workspace.NewSweeper(workspaces, repo, clips, cfg.SessionTTL, logger)
	notifier := notify.New(repo, cfg.Visit.WebhookURL, cfg.Visit.Timeout, logger)
	defer notifier.Wait()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	aiLimit := limiter.Middleware(func(r *http.Request) string {
		return identity.UserIDFromContext(r.Context())
	})

	// Initialize handlers.
	handler := api.NewHandler(catalog, workspaces, clips, notifier, cfg)
	healthHandler := api.NewHealthHandler(repo, cfg)
	wsHandler := stream.NewWebSocketHandler(func(userID, sessionID string) stream.Visualizer {
		return workspaces.Get(userID, sessionID)
	}, limiter, cfg.FrontendURL, cfg.IsDevelopment())
	grpcHealth := health.NewServer(repo, 0, cfg.Timeout.HealthCheck, logger)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(allowedOrigins(cfg)))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	handler.RegisterRoutes(r, aiLimit)
	r.With(aiLimit).Get("/ws/visualize", wsHandler.ServeHTTP)
	r.Handle("/*", web.SPAHandler())

	// Video runs hold the request open for minutes, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return grpcHealth.Serve(gctx, grpcLis)
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(limiterCleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := limiter.Cleanup(); n > 0 {
					slog.Debug("Rate limiter buckets dropped", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
