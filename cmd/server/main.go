package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gelapp/gel/internal/config"
	"github.com/gelapp/gel/internal/database"
	"github.com/gelapp/gel/internal/handlers"
	"github.com/gelapp/gel/internal/logging"
	"github.com/gelapp/gel/internal/middleware"
	"github.com/gelapp/gel/internal/services"
	"github.com/gelapp/gel/internal/services/ai"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger := logging.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.Server.LogLevel)
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting GEL server...")

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Initialize services
	dbAdapter := services.NewPoolAdapter(db.Pool)

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(dbAdapter, redisDB.Client, userService)
	friendService := services.NewFriendService(dbAdapter)
	scheduleService := services.NewScheduleService(dbAdapter)
	presenceService := services.NewPresenceService(dbAdapter)
	inviteService := services.NewInviteService(dbAdapter, friendService)
	scheduleParser := ai.NewParser(cfg)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(userService, authService)
	friendHandler := handlers.NewFriendHandler(friendService, presenceService)
	inviteHandler := handlers.NewInviteHandler(inviteService)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService, friendService, scheduleParser)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)
	requestLogger := middleware.NewRequestLogger(logger)

	uploadRateLimit := resolveUploadRateLimit(cfg, logger, os.LookupEnv)
	uploadRateLimiter := middleware.NewRateLimiter(redisDB.Client, uploadRateLimit, 1*time.Hour, "ratelimit:upload:", func(r *http.Request) string {
		user := handlers.GetUserFromContext(r.Context())
		if user != nil {
			return user.ID.String()
		}
		return ""
	})

	requireAuth := authMiddleware.RequireAuth

	// Set up router
	mux := http.NewServeMux()

	// Health endpoints (no auth)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Auth endpoints
	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.Handle("POST /auth/logout", requireAuth(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /auth/me", requireAuth(http.HandlerFunc(authHandler.Me)))

	// Friend endpoints
	mux.Handle("POST /friends/request", requireAuth(http.HandlerFunc(friendHandler.Request)))
	mux.Handle("POST /friends/accept", requireAuth(http.HandlerFunc(friendHandler.Accept)))
	mux.Handle("POST /friends/reject", requireAuth(http.HandlerFunc(friendHandler.Reject)))
	mux.Handle("GET /friends/status", requireAuth(http.HandlerFunc(friendHandler.Status)))
	mux.Handle("GET /friends/requests", requireAuth(http.HandlerFunc(friendHandler.Requests)))

	// Invite and notification endpoints
	mux.Handle("POST /invite", requireAuth(http.HandlerFunc(inviteHandler.Create)))
	mux.Handle("GET /notifications", requireAuth(http.HandlerFunc(inviteHandler.ListNotifications)))
	mux.Handle("POST /notifications/read", requireAuth(http.HandlerFunc(inviteHandler.MarkRead)))

	// Schedule endpoints
	mux.Handle("GET /schedule", requireAuth(http.HandlerFunc(scheduleHandler.List)))
	mux.Handle("POST /schedule", requireAuth(http.HandlerFunc(scheduleHandler.Create)))
	mux.Handle("DELETE /schedule", requireAuth(http.HandlerFunc(scheduleHandler.Delete)))
	mux.Handle("POST /schedule/upload", requireAuth(uploadRateLimiter.Middleware(http.HandlerFunc(scheduleHandler.Upload))))
	mux.Handle("GET /schedule/{friendId}", requireAuth(http.HandlerFunc(scheduleHandler.FriendSchedule)))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = requestLogger.Apply(handler)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Schedule image parsing can legitimately take >15s; keep a higher write
		// timeout so the client gets a JSON error instead of a dropped connection.
		WriteTimeout: 95 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

func resolveUploadRateLimit(cfg *config.Config, logger *logging.Logger, lookupEnv func(string) (string, bool)) int64 {
	uploadRateLimit := int64(10)
	if cfg.Server.Environment == "development" {
		uploadRateLimit = 100
		logger.Info("Using development upload rate limit", map[string]interface{}{"limit": uploadRateLimit})
	}
	if v, ok := lookupEnv("UPLOAD_RATE_LIMIT"); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			uploadRateLimit = parsed
			logger.Info("Using upload rate limit from env", map[string]interface{}{"limit": uploadRateLimit})
		} else {
			logger.Warn("Invalid UPLOAD_RATE_LIMIT; using default", map[string]interface{}{
				"value": v,
				"limit": uploadRateLimit,
			})
		}
	}
	return uploadRateLimit
}
