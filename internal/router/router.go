package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codearena/arena-api/internal/config"
	"github.com/codearena/arena-api/internal/handler"
	"github.com/codearena/arena-api/internal/middleware"
	"github.com/codearena/arena-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProblemHandler    *handler.ProblemHandler
	ContestHandler    *handler.ContestHandler
	SubmissionHandler *handler.SubmissionHandler
	LiveHandler       *handler.LiveHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ProblemHandler != nil {
		problems := api.Group("/problems")
		deps.ProblemHandler.Register(problems)

		adminProblems := api.Group("/admin/problems", jwtMiddleware, middleware.RequireRole("admin"))
		deps.ProblemHandler.RegisterAdmin(adminProblems)
	}

	if deps.ContestHandler != nil {
		contests := api.Group("/contests", jwtMiddleware)
		deps.ContestHandler.Register(contests)

		adminContests := api.Group("/admin/contests", jwtMiddleware, middleware.RequireRole("admin"))
		deps.ContestHandler.RegisterAdmin(adminContests)
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)

		var rateLimiter fiber.Handler
		if cfg.SubmitRateLimit > 0 {
			rateLimiter = middleware.RateLimit("submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow)
		}
		deps.SubmissionHandler.Register(submissions, rateLimiter)
	}

	if deps.LiveHandler != nil {
		live := api.Group("/live", jwtMiddleware)
		deps.LiveHandler.Register(live)
	}
}
