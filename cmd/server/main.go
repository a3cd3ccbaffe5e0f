package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pointjournaliere/internal/adapters/gateway"
	"pointjournaliere/internal/adapters/http/middleware"
	"pointjournaliere/internal/adapters/http/routes"
	"pointjournaliere/internal/adapters/identity"
	"pointjournaliere/internal/adapters/persistence/models"
	"pointjournaliere/internal/adapters/persistence/repositories"
	"pointjournaliere/internal/config"
	"pointjournaliere/internal/core/services"
	"pointjournaliere/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "pointjournaliere/docs" // Swagger docs
)

// @title Point Journalière API
// @version 1.0
// @description Daily amounts form backed by Google sign-in and a remote script backend
// @BasePath /

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	backend := gateway.NewBackendGateway(gateway.BackendConfig{
		URL:     cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
	}, m)

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	google, err := identity.NewGoogleIdentity(startupCtx, identity.GoogleConfig{
		ClientID:  cfg.Google.ClientID,
		IssuerURL: cfg.Google.Issuer,
		Timeout:   10 * time.Second,
	})
	cancel()
	if err != nil {
		log.Fatalf("❌ Failed to set up Google sign-in: %v", err)
	}
	if cfg.Google.ClientID == "" {
		log.Println("⚠️ GOOGLE_CLIENT_ID is empty, the sign-in button is disabled")
	}

	// Submission receipts (optional)
	var recorder services.ReceiptRecorder = services.NopReceiptRecorder{}
	if cfg.Receipts.Enabled {
		db, err := config.ConnectDatabase(cfg, models.AllModels()...)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer config.CloseDatabase()
		recorder = repositories.NewReceiptRecorder(repositories.NewReceiptRepository(db))
	}

	registry := services.NewSessionRegistry(func() *services.SessionController {
		return services.NewSessionController(google, backend,
			services.WithReceiptRecorder(recorder),
			services.WithMetrics(m),
		)
	}, m)

	// Evict idle sessions
	sweeper, err := services.NewSessionSweeper(registry, cfg.Session.SweepSpec, cfg.Session.IdleTTL)
	if err != nil {
		log.Fatalf("❌ Failed to schedule session sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Point Journalière v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
		// session state outlives the request buffers
		Immutable: true,
	})

	middleware.Setup(app, cfg)

	routes.Setup(app, routes.Dependencies{
		Config:   cfg,
		Registry: registry,
		Gatherer: reg,
		Now:      time.Now,
	})

	// Graceful shutdown
	go gracefulShutdown(app)

	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}

	// let pending revocations finish
	registry.Wait()
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
