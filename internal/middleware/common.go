package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Config customises the shared middleware pipeline.
type Config struct {
	Logger       zerolog.Logger
	Redis        *redis.Client
	AllowOrigins string
	RateLimitMax int
	RateLimitWin time.Duration
}

// Register attaches the middlewares every route runs through: panic recovery,
// correlation ids, metrics and request logging, CORS, and the global rate
// limit. Route-specific limits and auth are attached by the router.
func Register(app *fiber.App, cfg Config) {
	origins := cfg.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New())
	app.Use(CorrelationID())
	app.Use(Observability(cfg.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(RateLimit(cfg.Redis, "global", cfg.RateLimitMax, cfg.RateLimitWin, cfg.Logger))
}
