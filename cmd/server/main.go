// Chef interview server: guided meal-planning interviews backed by a
// generative model.
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

	"github.com/ashureev/chef-interview/internal/agent"
	"github.com/ashureev/chef-interview/internal/api"
	"github.com/ashureev/chef-interview/internal/catalog"
	"github.com/ashureev/chef-interview/internal/config"
	"github.com/ashureev/chef-interview/internal/container"
	"github.com/ashureev/chef-interview/internal/events"
	"github.com/ashureev/chef-interview/internal/interview"
	"github.com/ashureev/chef-interview/internal/middleware"
	"github.com/ashureev/chef-interview/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "store", cfg.Store.Driver)

	// Initialize dependencies.
	repo, err := store.Open(store.Config{
		Driver:        cfg.Store.Driver,
		DBPath:        cfg.Store.DBPath,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
	}, store.WithTTL(cfg.SessionTTL))
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Session store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Session store connected")

	questions, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		slog.Error("Failed to load question catalog", "error", err, "path", cfg.CatalogPath)
		os.Exit(1)
	}
	slog.Info("Question catalog loaded", "questions", questions.Len())

	healthChecks := map[string]api.Check{"database": repo.Ping}

	// Model provider. The server still starts without one so the form
	// endpoints stay usable; rounds fail until it is configured.
	completer, closeCompleter, err := agent.NewCompleterFromConfig(context.Background(), cfg.LLM, logger)
	if err != nil {
		slog.Warn("Model provider unavailable, rounds will fail", "provider", cfg.LLM.Provider, "error", err)
		completer = agent.Unavailable{}
	} else {
		slog.Info("Model provider initialized", "provider", cfg.LLM.Provider)
		if hc, ok := completer.(interface{ Health(context.Context) error }); ok {
			healthChecks["model"] = hc.Health
		}
	}
	defer closeCompleter()

	generator := agent.NewService(completer,
		agent.WithMaxTokens(cfg.LLM.MaxTokens),
		agent.WithTemperature(cfg.LLM.Temperature),
		agent.WithLogger(logger),
	)

	var renderer interview.Renderer
	if cfg.Render.Enabled {
		pdf, err := container.NewPDFRenderer(container.Config{
			Image:       cfg.Render.Image,
			Binary:      cfg.Render.Binary,
			MemoryLimit: cfg.Render.MemoryLimit,
			Runtime:     cfg.Render.Runtime,
		})
		if err != nil {
			slog.Warn("PDF rendering disabled", "error", err)
		} else {
			defer pdf.Close()
			renderer = pdf
			slog.Info("PDF renderer initialized", "image", cfg.Render.Image)
		}
	}

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	hub := events.NewHub(0, logger)
	defer hub.Close()

	svc := interview.NewService(repo, questions, generator, renderer,
		interview.WithModelTimeout(cfg.Timeout.Model),
		interview.WithRenderTimeout(cfg.Timeout.Render),
		interview.WithNotifier(conversationLogger),
		interview.WithNotifier(hub),
		interview.WithLogger(logger),
	)

	// Initialize handlers.
	wsHandler := events.NewWebSocketHandler(hub, svc, cfg.AllowedOrigins, cfg.IsDevelopment())
	handler := api.NewHandler(svc, wsHandler)
	healthHandler := api.NewHealthHandler(cfg.Timeout.HealthCheck, healthChecks)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterHealth(r)
	handler.RegisterRoutes(r)

	// Event streams are long lived, so there is no write timeout. Rounds
	// and renders are bounded by the service timeouts instead.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start TTL worker.
	store.StartTTLWorker(ctx, repo, cfg.SessionTTL, cfg.SweepInterval, func(sessionID string) {
		svc.Expire(sessionID)
		hub.CloseSession(sessionID)
	})

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
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
