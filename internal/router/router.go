package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/drona-ai/grading-api/internal/config"
	"github.com/drona-ai/grading-api/internal/handler"
	"github.com/drona-ai/grading-api/internal/middleware"
	"github.com/drona-ai/grading-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler *handler.GradingHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.GradingHandler != nil {
		grading := api.Group("/grading", jwtMiddleware, middleware.RateLimit("grading", 30, time.Minute))
		deps.GradingHandler.Register(grading)
	}
}
