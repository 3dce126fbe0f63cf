package routes

import (
	"aegis-identity/internal/adapters/http/handlers"
	"aegis-identity/internal/adapters/http/middleware"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/config"
	"aegis-identity/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	staffRepo := repositories.NewStaffRepository(db)
	permRepo := repositories.NewPermissionRepository(db)
	activityRepo := repositories.NewActivityLogRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	kycRepo := repositories.NewKYCRepository(db)
	txManager := repositories.NewTxManager(db)

	// Initialize services
	restrictionService := services.NewRestrictionService()
	activityService := services.NewActivityService(activityRepo, staffRepo, restrictionService)
	authService := services.NewAuthService(userRepo, sessionRepo, activityService, txManager, cfg)
	userService := services.NewUserService(userRepo, staffRepo, activityService, txManager)
	staffService := services.NewStaffService(staffRepo, userRepo, permRepo, activityService, restrictionService, txManager)
	apiKeyService := services.NewAPIKeyService(apiKeyRepo, permRepo, activityService, txManager)
	kycService := services.NewKYCService(kycRepo, userRepo, activityService, txManager)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	staffHandler := handlers.NewStaffHandler(staffService)
	activityHandler := handlers.NewActivityHandler(activityService)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyService)
	kycHandler := handlers.NewKYCHandler(kycService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Shared middleware
	authn := middleware.Authenticate(cfg, userRepo, apiKeyService)
	resolveStaff := middleware.ResolveStaff(staffRepo)
	requirePerm := func(permission string) fiber.Handler {
		return middleware.RequirePermission(permission, staffRepo, activityService)
	}

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Post("/refresh", middleware.AuthRateLimiter(), authHandler.Refresh)
	authRoutes.Post("/logout", authn, authHandler.Logout)
	authRoutes.Post("/logout-all", authn, authHandler.LogoutAll)
	authRoutes.Get("/me", authn, authHandler.Me)

	// User routes
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(authn)
	userRoutes.Post("/", requirePerm("user:create"), userHandler.Create)
	userRoutes.Get("/", requirePerm("user:read"), userHandler.List)
	userRoutes.Post("/me/password", middleware.StrictRateLimiter(), userHandler.ChangePassword)
	userRoutes.Get("/:id", requirePerm("user:read"), userHandler.GetByID)
	userRoutes.Patch("/:id", resolveStaff, userHandler.Update)
	userRoutes.Delete("/:id", requirePerm("user:delete"), userHandler.Delete)

	// Staff routes
	staffRoutes := apiV1.Group("/staff")
	staffRoutes.Use(authn)
	staffRoutes.Post("/", requirePerm("staff:create"), staffHandler.Create)
	staffRoutes.Get("/", requirePerm("staff:read"), staffHandler.List)
	staffRoutes.Get("/:id", requirePerm("staff:read"), staffHandler.GetByID)
	staffRoutes.Patch("/:id", requirePerm("staff:update"), staffHandler.Update)
	staffRoutes.Delete("/:id", requirePerm("staff:delete"), staffHandler.Delete)

	// Activity routes
	activityRoutes := apiV1.Group("/activity")
	activityRoutes.Use(authn)
	activityRoutes.Get("/", activityHandler.ListMine)
	activityRoutes.Get("/:userID", requirePerm("activity:read"), activityHandler.ListByUser)

	// API key routes
	apiKeyRoutes := apiV1.Group("/apikeys")
	apiKeyRoutes.Use(authn)
	apiKeyRoutes.Post("/", requirePerm("apikey:create"), apiKeyHandler.Create)
	apiKeyRoutes.Get("/", apiKeyHandler.List)
	apiKeyRoutes.Delete("/:id", apiKeyHandler.Delete)

	// KYC routes
	kycRoutes := apiV1.Group("/kyc")
	kycRoutes.Use(authn)
	kycRoutes.Post("/", middleware.StrictRateLimiter(), kycHandler.Submit)
	kycRoutes.Get("/", kycHandler.ListMine)
	kycRoutes.Post("/:id/review", requirePerm("kyc:review"), kycHandler.Review)
}
