package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/griga-events/ticketing/internal/api/http/handlers"
	"github.com/griga-events/ticketing/internal/auth"
)

// Banner is served at the root path.
const Banner = "GRIGA ticketing backend"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Webhook         *handlers.WebhookHandler
	Checkout        *handlers.CheckoutHandler
	Admin           *handlers.AdminHandler
	AdminMiddleware *auth.AdminMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(Banner)
	})

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/stripe/webhook", cfg.Webhook.Handle)
	app.Post("/checkout/session", cfg.Checkout.Create)

	app.Get("/admin", cfg.AdminMiddleware.RequireBasic(), cfg.Admin.Dashboard)

	admin := app.Group("/admin")
	admin.Post("/login", cfg.Admin.Login)
	admin.Get("/tickets", cfg.AdminMiddleware.RequireSession, cfg.Admin.Tickets)
	admin.Get("/tickets.csv", cfg.AdminMiddleware.RequireSession, cfg.Admin.TicketsCSV)
}
