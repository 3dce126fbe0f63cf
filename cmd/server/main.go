package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"aegis-identity/internal/adapters/http/middleware"
	"aegis-identity/internal/adapters/http/routes"
	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/config"
	"aegis-identity/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// @title Aegis Identity API
// @version 1.0
// @description Identity and access management service: authentication, sessions, staff roles and audit logging
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @host localhost:3000
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed permission vocabulary and the singleton superuser
	if err := config.Seed(db, cfg); err != nil {
		log.Fatalf("❌ Failed to seed identity data: %v", err)
	}

	// Background sweep of expired session rows
	sweeper := services.NewSessionSweeper(repositories.NewSessionRepository(db))
	if err := sweeper.Start(); err != nil {
		log.Fatalf("❌ Failed to start session sweeper: %v", err)
	}
	defer sweeper.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Aegis Identity API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	routes.Setup(app, db, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
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
