package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habitlink-backend/internal/config"
	"habitlink-backend/internal/handlers"
	"habitlink-backend/internal/middleware"
	"habitlink-backend/internal/repository"
	"habitlink-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
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

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	habitRepo := repository.NewHabitRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)

	// Initialize services
	hub := services.NewSyncHub()
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	chatService := services.NewChatService(messageRepo, hub)
	habitService := services.NewHabitService(habitRepo, userRepo, chatService)
	presenceService := services.NewPresenceService(presenceRepo, userRepo, hub)
	mediaService, err := services.NewMediaService(cfg.AWS, cfg.Media)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create media service")
	}
	reminderService, err := services.NewReminderService(habitRepo, userRepo, cfg.APNs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create reminder service")
	}

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, chatService)
	habitHandler := handlers.NewHabitHandler(habitService)
	messageHandler := handlers.NewMessageHandler(chatService, userService)
	presenceHandler := handlers.NewPresenceHandler(presenceService)
	mediaHandler := handlers.NewMediaHandler(mediaService)
	wsHandler := handlers.NewWebSocketHandler(hub, userService, chatService, presenceService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))
			r.Use(middleware.RateLimiter(rate.Limit(10), 30))
			r.Post("/pair", userHandler.Pair)
			r.Post("/push-token", userHandler.RegisterPushToken)
			r.Get("/messages", messageHandler.GetMessages)
			r.Get("/presence/{user_id}", presenceHandler.GetPresence)
			r.Post("/habits", habitHandler.CreateHabit)
			r.Get("/habits", habitHandler.GetHabits)
			r.Post("/habits/{habit_id}/checkin", habitHandler.CheckIn)
			r.Post("/media/upload", mediaHandler.CreateUpload)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Metrics
	r.Handle("/metrics", promhttp.Handler())

	// Start reminder sweep
	reminderCtx, cancelReminders := context.WithCancel(context.Background())
	defer cancelReminders()
	reminderService.Start(reminderCtx)

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

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cancelReminders()

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
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
