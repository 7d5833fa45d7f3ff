package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/adhiadhi/oxeye-server/internal/config"
	"github.com/adhiadhi/oxeye-server/internal/database"
	"github.com/adhiadhi/oxeye-server/internal/handler"
	"github.com/adhiadhi/oxeye-server/internal/jobs"
	"github.com/adhiadhi/oxeye-server/internal/middleware"
	"github.com/adhiadhi/oxeye-server/internal/redis"
	"github.com/adhiadhi/oxeye-server/internal/service"
	"github.com/adhiadhi/oxeye-server/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.Migrate(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	cancel()
	log.Info().Str("path", cfg.DatabasePath).Msg("database ready")

	st := store.New(db, int64(cfg.LinkCodeTTLSeconds))
	if err := st.PopulateCache(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to populate presence cache")
	}

	linkingService := service.NewLinkingService(st)
	statusService := service.NewStatusService(st, cfg.RenderQueueCapacity)
	statusService.Start()
	defer statusService.Stop()

	st.OnRosterChange(statusService.Enqueue)

	authMiddleware := middleware.NewAuthMiddleware(st)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	// Redis shares the rate-limit window across replicas; without it each
	// process limits on its own.
	var rateLimit func(http.Handler) http.Handler
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
		rateLimit = middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.RateLimitPerMin).Handler
	} else {
		rateLimit = middleware.NewRateLimitMiddleware(cfg.RateLimitPerMin).Handler
	}

	linkHandler := handler.NewLinkHandler(linkingService)
	presenceHandler := handler.NewPresenceHandler(st, linkingService, handler.PresenceLimits{
		MaxSyncPlayers: cfg.MaxSyncPlayers,
	})
	skinHandler := handler.NewSkinHandler(st, statusService, cfg.MaxSkinBytes)
	healthHandler := handler.NewHealthHandler(db)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", healthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		linkHandler.Register(r)
		skinHandler.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Use(rateLimit)
			presenceHandler.Register(r)
			skinHandler.RegisterAuthed(r)
		})
	})

	cleanupJob := jobs.NewCleanupJob(st, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
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
