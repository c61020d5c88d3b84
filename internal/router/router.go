package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codequesthq/codequest-api/internal/config"
	"github.com/codequesthq/codequest-api/internal/handler"
	"github.com/codequesthq/codequest-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProblemHandler    *handler.ProblemHandler
	SubmissionHandler *handler.SubmissionHandler
	JWTMiddleware     fiber.Handler
	AdminMiddleware   fiber.Handler
	SubmitRateLimit   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	adminMiddleware := deps.AdminMiddleware
	if adminMiddleware == nil {
		adminMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	submitLimit := deps.SubmitRateLimit
	if submitLimit == nil {
		submitLimit = func(c *fiber.Ctx) error { return c.Next() }
	}

	problems := api.Group("/problems", jwtMiddleware)
	admin := api.Group("/problems", jwtMiddleware, adminMiddleware)

	if deps.ProblemHandler != nil {
		deps.ProblemHandler.Register(problems, admin)
	}

	// Grading endpoints carry their own, stricter rate limit.
	if deps.SubmissionHandler != nil {
		graded := api.Group("/problems", jwtMiddleware, submitLimit)
		deps.SubmissionHandler.Register(graded)
	}
}
