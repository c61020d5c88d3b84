package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/codequesthq/codequest-api/internal/config"
	"github.com/codequesthq/codequest-api/internal/database"
	"github.com/codequesthq/codequest-api/internal/handler"
	"github.com/codequesthq/codequest-api/internal/middleware"
	"github.com/codequesthq/codequest-api/internal/models"
	"github.com/codequesthq/codequest-api/internal/repository"
	"github.com/codequesthq/codequest-api/internal/router"
	"github.com/codequesthq/codequest-api/internal/service"
	"github.com/codequesthq/codequest-api/pkg/judge0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, rate limits and token revocation disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, graded events disabled")
		} else {
			defer natsConn.Close()
		}
	}

	judgeClient, err := judge0.New(judge0.Config{
		BaseURL:      cfg.JudgeURL,
		APIKey:       cfg.JudgeAPIKey,
		APIHost:      cfg.JudgeAPIHost,
		PollInterval: cfg.JudgePollInterval,
		MaxWait:      cfg.JudgeMaxWait,
		Logger:       logger,
	})
	if err != nil {
		log.Fatalf("failed to create judge client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	problemRepo := repository.NewProblemRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)

	events := service.NewSubmissionEventPublisher(natsConn, service.DefaultGradedSubject, logger)
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, userRepo, judgeClient, events, validate, logger)
	problemService := service.NewProblemService(problemRepo, userRepo, judgeClient, validate, logger)

	problemHandler := handler.NewProblemHandler(problemService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       logger,
		Redis:        redisClient,
		AllowOrigins: cfg.AllowOrigins,
		RateLimitMax: cfg.RateLimitMax,
		RateLimitWin: cfg.RateLimitWindow,
	})
	router.Register(app, cfg, router.Dependencies{
		ProblemHandler:    problemHandler,
		SubmissionHandler: submissionHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret, redisClient),
		AdminMiddleware:   middleware.RequireRole(models.RoleAdmin),
		SubmitRateLimit:   middleware.RateLimit(redisClient, "submit", cfg.SubmitLimitMax, cfg.SubmitLimitWindow, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
