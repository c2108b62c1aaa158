package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/culturequiz/backend/internal/catalog"
	"github.com/culturequiz/backend/internal/config"
	"github.com/culturequiz/backend/internal/daily"
	"github.com/culturequiz/backend/internal/database"
	"github.com/culturequiz/backend/internal/generator"
	"github.com/culturequiz/backend/internal/logger"
	"github.com/culturequiz/backend/internal/metadata"
	"github.com/culturequiz/backend/internal/middleware"
	"github.com/culturequiz/backend/internal/questions"
	"github.com/culturequiz/backend/internal/ratelimit"
	"github.com/culturequiz/backend/internal/sessions"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	cfg := config.Load()

	appLog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		appLog.Fatal("failed to run migrations", "error", err)
	}

	if cfg.JWTSecret == "" {
		appLog.Warn("JWT_SECRET is not set, every authenticated route will answer 401")
	}

	// Initialize services
	cat := catalog.Default()
	questionService := questions.NewService(
		questions.NewStore(db),
		generator.NewGenerator(cfg, appLog),
		metadata.NewEnricherFromConfig(cfg, appLog),
		appLog,
	)
	dailyService := daily.NewService(daily.NewStore(db), cat.Pools(), appLog)
	sessionService := sessions.NewService(sessions.NewStore(db), dailyService, cat, appLog)

	limiter := newLimiter(ctx, cfg, appLog)

	// Initialize handlers
	questionHandler := questions.NewHandler(questionService, appLog)
	dailyHandler := daily.NewHandler(dailyService, appLog)
	sessionHandler := sessions.NewHandler(sessionService, appLog)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(appLog))
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/daily/today", dailyHandler.Today).Methods("GET")
	api.HandleFunc("/daily/{date}", dailyHandler.ByDate).Methods("GET")
	api.HandleFunc("/catalog/scopes", catalog.ScopesHandler(cat)).Methods("GET")

	// Scheduled trigger
	internal := api.PathPrefix("/internal").Subrouter()
	internal.Use(middleware.CronSecret(cfg.CronSecret))
	internal.HandleFunc("/daily/ensure-tomorrow", dailyHandler.EnsureTomorrow).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(cfg.JWTSecret))

	generate := protected.PathPrefix("/questions").Subrouter()
	generate.Use(middleware.RateLimit(limiter, appLog))
	generate.HandleFunc("/generate", questionHandler.Generate).Methods("POST")

	protected.HandleFunc("/sessions/{mode}/start", sessionHandler.Start).Methods("POST")
	protected.HandleFunc("/attempts/{id}", sessionHandler.GetAttempt).Methods("GET")
	protected.HandleFunc("/attempts/{id}/answers", sessionHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/attempts/{id}/complete", sessionHandler.Complete).Methods("POST")
	protected.HandleFunc("/progress/{mode}", sessionHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/streak", sessionHandler.GetDayStreak).Methods("GET")

	// Admin routes
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/questions", questionHandler.ListCached).Methods("GET")
	admin.HandleFunc("/questions", questionHandler.DeleteCached).Methods("DELETE")
	admin.HandleFunc("/questions/all", questionHandler.DeleteAllCached).Methods("DELETE")
	admin.HandleFunc("/questions/stats", questionHandler.CacheStats).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("graceful shutdown failed", "error", err)
	}
	questionService.Wait()
}

// newLimiter picks the Redis store when REDIS_URL is set, otherwise the
// in-process store with a sweeper tied to ctx.
func newLimiter(ctx context.Context, cfg *config.Config, appLog *logger.Logger) *ratelimit.Limiter {
	if cfg.RedisURL != "" {
		store, err := ratelimit.NewRedisStoreFromURL(ctx, cfg.RedisURL, "culturequiz:ratelimit:")
		if err == nil {
			appLog.Info("rate limiter using redis")
			context.AfterFunc(ctx, func() { store.Close() })
			return ratelimit.NewLimiter(store, cfg.RateLimitPerMinute, time.Minute, appLog)
		}
		appLog.Error("redis unavailable, falling back to in-process rate limiting", "error", err)
	}

	store := ratelimit.NewMemoryStore()
	go store.RunSweeper(ctx, cfg.RateLimitSweepEvery)
	return ratelimit.NewLimiter(store, cfg.RateLimitPerMinute, time.Minute, appLog)
}
