package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"selfpaced/backend/config"
	"selfpaced/backend/controllers"
	"selfpaced/backend/metrics"
	"selfpaced/backend/middleware"
	"selfpaced/backend/repository"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *zap.Logger) {
	repo := repository.NewProgressRepository(db)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	optionalAuth := middleware.OptionalAuth(cfg)
	adminMiddleware := middleware.AdminMiddleware()

	// Auth routes (identity provider)
	authController := controllers.NewAuthController(db, repo, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)
	app.Get("/api/auth/me", authController.Me)

	// User routes
	userController := controllers.NewUserController(db, repo, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)

	// Progress sync routes
	progressController := controllers.NewProgressController(repo, cfg, logger)
	app.Get("/sync-progress", optionalAuth, progressController.GetSyncProgress)
	app.Post("/sync-progress", optionalAuth, progressController.PostSyncProgress)

	unlockController := controllers.NewUnlockController(repo, cfg, logger)
	app.Get("/unlock-status", optionalAuth, unlockController.GetUnlockStatus)

	// Admin routes
	adminController := controllers.NewAdminController(repo, cfg, logger)
	admin := app.Group("/admin", authMiddleware, adminMiddleware)
	admin.Post("/progress", adminController.SetModuleOverride)
	admin.Get("/progress", adminController.GetUserProgress)
	admin.Post("/enrollment", adminController.SetEnrollment)

	app.Get("/metrics", metrics.Handler())
}

// NewApp builds the fiber app with the standard middleware and every route.
func NewApp(db *gorm.DB, cfg *config.Config, logger *zap.Logger) *fiber.App {
	// Handlers log query values with zap, which may outlive the request buffers
	app := fiber.New(fiber.Config{Immutable: true})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	SetupRoutes(app, db, cfg, logger)
	return app
}
