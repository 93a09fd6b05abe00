package main

import (
	"log"

	"go.uber.org/zap"

	"selfpaced/backend/config"
	"selfpaced/backend/routes"
	"selfpaced/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(utils.LoggerConfig{Format: cfg.LogFormat, Env: cfg.Env})
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatal("Error initializing database", zap.Error(err))
	}

	// Create Fiber app with middleware and routes
	app := routes.NewApp(db, cfg, logger)

	// Start server
	logger.Info("listening", zap.String("port", cfg.ServerPort), zap.String("db", cfg.DBDriver))
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
