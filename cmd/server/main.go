// 10-10-10 Decision Wizard Server
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

	"github.com/ashureev/tententen/internal/api"
	"github.com/ashureev/tententen/internal/config"
	"github.com/ashureev/tententen/internal/identity"
	"github.com/ashureev/tententen/internal/insight"
	"github.com/ashureev/tententen/internal/live"
	"github.com/ashureev/tententen/internal/middleware"
	"github.com/ashureev/tententen/internal/store"
	"github.com/ashureev/tententen/internal/wizard"
	"github.com/ashureev/tententen/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
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

	level.Set(cfg.LogLevel)

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"db_driver", cfg.DB.Driver,
		"insight_provider", cfg.Insight.Provider)

	// Initialize dependencies.
	repo, err := store.New(store.Options{Driver: cfg.DB.Driver, Path: cfg.DB.Path, DSN: cfg.DB.URL})
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Sessions never outlive the process.
	purged, err := repo.PurgeSessions(context.Background())
	if err != nil {
		slog.Error("Failed to purge previous sessions", "error", err)
		os.Exit(1)
	}
	slog.Info("Previous sessions purged", "sessions_deleted", purged)

	gen, err := newGenerator(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize insight generator", "error", err)
		os.Exit(1)
	}
	requester := insight.NewRequester(gen, logger)
	defer func() {
		if closeErr := requester.Close(); closeErr != nil {
			slog.Error("Failed to close insight generator", "error", closeErr)
		}
	}()

	limiter := wizard.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	defer limiter.Close()

	ctrl := wizard.NewController(repo, requester, limiter, logger)
	renderer := insight.NewRenderer()
	sm := live.NewSessionManager()

	// Initialize handlers.
	wizardHandler := api.NewWizardHandler(ctrl, renderer.HTML)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := live.NewWebSocketHandler(ctrl, sm, renderer.HTML, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins, identity.SessionHeaderName))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Wizard routes carry the anonymous identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware([]byte(cfg.SessionSecret), cfg.IsDevelopment()))
		wizardHandler.RegisterRoutes(r)
		r.Get("/ws/wizard", wsHandler.ServeHTTP)
	})

	// Serve embedded frontend (SPA catch-all).
	if cfg.ServeFrontend {
		r.Handle("/*", web.SPAHandler())
	}

	// Generation is synchronous inside the request, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start TTL worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wizard.StartTTLWorker(ctx, ctrl, cfg.SessionTTL, wizard.DefaultTTLInterval, sm.CloseSession)

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
	sm.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func newGenerator(cfg *config.Config, logger *slog.Logger) (insight.Generator, error) {
	switch cfg.Insight.Provider {
	case config.ProviderGRPC:
		slog.Info("Connecting to insight agent via gRPC", "address", cfg.Insight.AgentAddr)
		grpcCfg := insight.DefaultGrpcConfig(cfg.Insight.AgentAddr)
		grpcCfg.RequestTimeout = cfg.Insight.Timeout
		gen, err := insight.NewGrpcGenerator(grpcCfg, logger)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		gen, err := insight.NewOpenAIGenerator(insight.OpenAIConfig{
			APIKey:  cfg.Insight.OpenAIAPIKey,
			Model:   cfg.Insight.OpenAIModel,
			BaseURL: cfg.Insight.OpenAIBaseURL,
			Timeout: cfg.Insight.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return gen, nil
	}
}
