package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bongitrade/policy-service/internal/api/http/handlers"
	"github.com/bongitrade/policy-service/internal/auth"
	"github.com/bongitrade/policy-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Policies       *handlers.PoliciesHandler
	Claims         *handlers.ClaimsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if reg := cfg.Metrics.Registry(); reg != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	app.Post("/login", cfg.Auth.Login)
	app.Post("/register", cfg.Auth.Register)

	optional := cfg.AuthMiddleware.OptionalHandle
	app.Post("/policies", optional, cfg.Policies.CreatePolicy)
	app.Post("/public-policy", optional, cfg.Policies.CreatePolicy)
	app.Post("/create-policy", optional, cfg.Policies.CreatePolicy)

	bearer := cfg.AuthMiddleware.Handle
	staff := auth.RequireStaff()

	app.Get("/policies", bearer, cfg.Policies.ListPolicies)
	app.Get("/policies/:id", bearer, cfg.Policies.GetPolicy)
	app.Get("/policy-details/:id", bearer, cfg.Policies.GetPolicy)
	app.Post("/policies/:id/activate", bearer, staff, cfg.Policies.ActivatePolicy)
	app.Post("/policies/:id/deactivate", bearer, staff, cfg.Policies.DeactivatePolicy)
	app.Post("/deactivate-policy", bearer, staff, cfg.Policies.DeactivatePolicy)

	app.Post("/claims", bearer, cfg.Claims.SubmitClaim)
	app.Post("/claims/:id/review", bearer, staff, cfg.Claims.ReviewClaim)

	app.Post("/add-employee", bearer, auth.RequireAdmin(), cfg.Auth.AddEmployee)
	app.Post("/reminders", bearer, staff, cfg.Policies.SendReminders)
	app.Post("/send-reminder", bearer, staff, cfg.Policies.SendReminders)
}
