package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crown-voting-backend/internal/config"
	"crown-voting-backend/internal/handlers"
	"crown-voting-backend/internal/middleware"
	"crown-voting-backend/internal/repository"
	"crown-voting-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize storage and the read cache
	store := repository.NewPostgresStore(db)
	resultCache := services.NewResultCache(cfg.Voting.ResultCacheTTL.Std())
	defer resultCache.Stop()

	// Initialize services
	votingService := services.NewVotingService(store, resultCache)
	resultService := services.NewResultService(store, resultCache)
	candidateService := services.NewCandidateService(store, resultCache)
	authService := services.NewAuthService(cfg.Voting.UserPIN, cfg.Voting.AdminPIN, cfg.Admin.JWTSecret)
	limiter := services.NewRateLimiter(cfg.Voting.MaxPINAttempts, cfg.Voting.AttemptWindow.Std(), cfg.Voting.LockoutDuration.Std())
	imageService, err := services.NewImageService(context.Background(), cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image service")
	}
	resultsHub := services.NewResultsHub(resultService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, votingService, limiter)
	votingHandler := handlers.NewVotingHandler(votingService, resultsHub)
	resultHandler := handlers.NewResultHandler(resultService)
	candidateHandler := handlers.NewCandidateHandler(candidateService)
	adminHandler := handlers.NewAdminHandler(candidateService, resultService, imageService, limiter)
	wsHandler := handlers.NewResultsWSHandler(resultsHub, resultService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(middleware.DeviceID)

	// Routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/verify-pin", authHandler.VerifyPin)
		r.Post("/auth/admin/login", authHandler.AdminLogin)

		r.Post("/voting/vote", votingHandler.SubmitVote)
		r.Post("/voting/bulk-vote", votingHandler.SubmitBulkVotes)
		r.Get("/voting/has-voted", votingHandler.HasVoted)
		r.Get("/voting/device-has-voted", votingHandler.DeviceHasVoted)

		r.Get("/candidates/{category}", candidateHandler.GetByCategory)
		r.Get("/results", resultHandler.GetAll)
		r.Get("/results/{category}", resultHandler.GetByCategory)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(authService))
			r.Get("/results", adminHandler.GetResults)
			r.Get("/results/detailed", adminHandler.GetDetailedResults)
			r.Get("/candidates", adminHandler.ListCandidates)
			r.Post("/candidates", adminHandler.CreateCandidate)
			r.Get("/candidates/{id}", adminHandler.GetCandidate)
			r.Put("/candidates/{id}", adminHandler.UpdateCandidate)
			r.Delete("/candidates/{id}", adminHandler.DeleteCandidate)
			r.Post("/candidates/{id}/image", adminHandler.PresignCandidateImage)
			r.Get("/ratelimit/{key}", adminHandler.GetRateLimit)
			r.Delete("/ratelimit/{key}", adminHandler.ClearRateLimit)
		})
	})

	// WebSocket route for live results
	r.Get("/ws/results", wsHandler.HandleResults)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
