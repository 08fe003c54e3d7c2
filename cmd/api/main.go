package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"bloogle/internal/cache"
	"bloogle/internal/config"
	"bloogle/internal/database"
	"bloogle/internal/handlers"
	"bloogle/internal/jobs"
	"bloogle/internal/log"
	"bloogle/internal/mail"
	"bloogle/internal/repository"
	"bloogle/internal/security"
	"bloogle/internal/server"
	"bloogle/internal/service"
	"bloogle/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	if cfg.Security.FlashSecret == "" {
		secret, err := security.GenerateToken(security.DefaultTokenBytes)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to generate flash secret")
		}
		cfg.Security.FlashSecret = secret
		logger.Warn().Msg("security.flashsecret not set, using a per-process secret")
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	users := repository.NewUserRepository(dbPool)
	sessions := repository.NewSessionRepository(dbPool)
	blogs := repository.NewBlogRepository(dbPool)
	saved := repository.NewSavedRepository(dbPool)
	images := repository.NewImageRepository(dbPool)

	imageService := service.NewImageService(images, objectStore, cfg.Uploads.MaxBytes, logger)
	authService := service.NewAuthService(
		users,
		service.NewTokenIssuer(cfg.Auth.VerificationTTL, time.Now),
		cache.NewVerificationMarks(redisClient),
		newDispatcher(cfg, redisClient, logger),
		imageService,
		cfg,
		logger,
	)
	sessionManager := service.NewSessionManager(sessions, cfg.Security.SessionTTL, logger)
	blogService := service.NewBlogService(blogs, saved, users, imageService, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Dependencies{
		Auth:     authService,
		Sessions: sessionManager,
		Blogs:    blogService,
		Images:   imageService,
		Checks: map[string]handlers.Pinger{
			"postgres": dbPool,
			"redis":    handlers.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
			"storage":  objectStore,
		},
	})
	httpServer, err := server.NewHTTPServer(cfg, logger, handlerSet)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build http server")
	}

	scheduler := jobs.NewScheduler(cfg.Jobs, sessionManager, authService, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func newDispatcher(cfg *config.AppConfig, redisClient *redis.Client, logger zerolog.Logger) mail.Dispatcher {
	switch cfg.Mail.Transport {
	case "smtp":
		return mail.NewSMTPDispatcher(cfg.Mail.SMTP, cfg.Mail.From)
	case "log":
		return mail.NewLogDispatcher(logger)
	default:
		return mail.NewQueueDispatcher(redisClient, cfg.Mail.Stream)
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduled jobs still running at shutdown")
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
