package main

import (
	"log/slog"
	"os"

	"github.com/campusworks/gradebook-service/internal/cache"
	"github.com/campusworks/gradebook-service/internal/config"
	"github.com/campusworks/gradebook-service/internal/handlers"
	"github.com/campusworks/gradebook-service/internal/repositories/postgres"
	"github.com/campusworks/gradebook-service/internal/services"
	"github.com/campusworks/gradebook-service/internal/utils"
	"github.com/campusworks/gradebook-service/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	validator := utils.NewValidator()
	if err := validator.Validate(&cfg.Grading); err != nil {
		logger.Error("Invalid grading configuration", "error", err)
		os.Exit(1)
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	var summaryCache cache.GradeSummaryCache
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, grade summaries will not be cached", "error", err)
		summaryCache = cache.NoopGradeSummaryCache{}
	} else {
		defer redisClient.Close()
		summaryCache = cache.NewRedisGradeSummaryCache(redisClient)
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)

	serviceManager := services.NewServiceManager(repo, summaryCache, publisher, logger, validator, cfg.Grading)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(utils.NewSlogLogger(logger)))

	handlerManager := handlers.NewHandlerManager(serviceManager, validator, utils.NewSlogLogger(logger))
	handlerManager.SetupRoutes(router)

	logger.Info("Starting gradebook service", "port", cfg.Port, "environment", cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
