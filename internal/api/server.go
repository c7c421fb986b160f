// Package api assembles the HTTP surface of the tournament service.
package api

import (
	"tournament-ledger/internal/api/handlers"
	"tournament-ledger/internal/api/middleware"
	"tournament-ledger/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the handlers and cross-cutting pieces the app is built from.
// Debug, Hub, ScoreLimiter and Gatherer are optional.
type Deps struct {
	Tournament *handlers.TournamentHandler
	Webhook    *handlers.WebhookHandler
	Health     *handlers.HealthHandler
	Debug      *handlers.DebugHandler
	Hub        *websocket.Hub

	Identity     middleware.IdentityConfig
	ScoreLimiter *middleware.CallerRateLimiter
	Gatherer     prometheus.Gatherer

	AllowedOrigins string
	AccessLog      bool
}

// NewApp builds the fiber app with middleware and routes
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Daily Tournament Ledger",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}
	origins := d.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
	}))

	api := app.Group("/api/v1")

	// The webhook verifies its own signature and reads the raw body
	api.Post("/webhooks/whop", d.Webhook.HandleWhop)

	identity := middleware.Identity(d.Identity)

	submit := []fiber.Handler{identity}
	if d.ScoreLimiter != nil {
		submit = append(submit, middleware.RateLimit(d.ScoreLimiter))
	}
	submit = append(submit, d.Tournament.SubmitScore)

	tournament := api.Group("/tournament")
	tournament.Post("/submit-score", submit...)
	tournament.Get("/status", identity, d.Tournament.GetStatus)
	tournament.Get("/leaderboard", d.Tournament.GetLeaderboard)

	api.Get("/tournaments/:id/leaderboard", d.Tournament.GetTournamentLeaderboard)
	api.Get("/health", d.Health.HealthCheck)

	if d.Debug != nil {
		debug := api.Group("/debug")
		debug.Post("/simulate", d.Debug.SimulateLoad)
	}

	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	if d.Hub != nil {
		handlers.RegisterWebSocket(app, "/ws", d.Hub)
	}

	app.Get("/", func(c *fiber.Ctx) error {
		endpoints := []string{
			"POST /api/v1/webhooks/whop",
			"POST /api/v1/tournament/submit-score",
			"GET /api/v1/tournament/status",
			"GET /api/v1/tournament/leaderboard",
			"GET /api/v1/tournaments/:id/leaderboard",
			"GET /api/v1/health",
		}
		if d.Debug != nil {
			endpoints = append(endpoints, "POST /api/v1/debug/simulate")
		}
		if d.Gatherer != nil {
			endpoints = append(endpoints, "GET /metrics")
		}

		body := fiber.Map{
			"message":   "Daily Tournament Ledger API",
			"version":   "1.0.0",
			"endpoints": endpoints,
		}
		if d.Hub != nil {
			body["websocket"] = "WS /ws"
			body["websocket_clients"] = d.Hub.GetClientCount()
		}
		return c.JSON(body)
	})

	return app
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   "Request failed",
		"message": err.Error(),
	})
}
