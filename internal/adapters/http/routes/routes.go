package routes

import (
	"time"

	"pointjournaliere/internal/adapters/http/handlers"
	"pointjournaliere/internal/adapters/http/middleware"
	"pointjournaliere/internal/config"
	"pointjournaliere/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the long-lived objects the routes need
type Dependencies struct {
	Config   *config.Config
	Registry *services.SessionRegistry
	Gatherer prometheus.Gatherer
	Now      func() time.Time
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps Dependencies) {
	cfg := deps.Config

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg, deps.Registry)
	pageHandler := handlers.NewPageHandler(cfg, deps.Now)
	authHandler := handlers.NewAuthHandler()
	sessionHandler := handlers.NewSessionHandler()

	session := middleware.Session(cfg, deps.Registry)

	// Health, metrics & docs
	app.Get("/health", healthHandler.HealthCheck)
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Page & sign-in callback
	app.Get("/", middleware.NoCacheHeaders(), session, pageHandler.Index)
	app.Post("/auth/google", middleware.AuthRateLimiter(), session, authHandler.GoogleCallback)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)
	setupSessionRoutes(apiV1.Group("/session", middleware.NoCacheHeaders(), session), sessionHandler)
}

// setupSessionRoutes configures the form session intents
func setupSessionRoutes(router fiber.Router, h *handlers.SessionHandler) {
	router.Get("/", h.Get)
	router.Post("/refresh", h.Refresh)
	router.Put("/fields/:serviceId", h.EditField)
	router.Post("/submit", h.Submit)
	router.Post("/switch-account", h.SwitchAccount)
}
