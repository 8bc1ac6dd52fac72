package app

import (
	"context"
	"fmt"
	"time"

	"mediastore/database"
	"mediastore/internal/config"
	"mediastore/internal/handlers"
	"mediastore/internal/logger"
	"mediastore/internal/middleware"
	"mediastore/internal/repositories"
	"mediastore/internal/routes"
	"mediastore/internal/services"
	"mediastore/internal/storage"
	"mediastore/internal/validator"
	"mediastore/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Run() {
	if err := config.LoadConfig(); err != nil {
		panic(err)
	}
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	disks, err := storage.NewRegistry(cfg.Disks)
	if err != nil {
		logger.Fatal("Failed to initialize storage disks", "error", err)
	}
	logger.Info("Storage disks initialized", "disks", disks.Names())

	ginRouter := SetupRouter(cfg, gormDB, disks)

	cleanupWorker := workers.NewCleanupWorker(repositories.NewUploadRepository(gormDB), disks, time.Hour)
	cleanupWorker.Start(context.Background())

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB, disks *storage.Registry) *gin.Engine {
	storageService := initializeStorageService(cfg, gormDB, disks)
	appHandlers := initializeHandlers(storageService)

	ginRouter := initializeGinRouter(cfg)
	routes.RegisterRoutes(ginRouter, appHandlers)

	return ginRouter
}

func initializeStorageService(cfg *config.Config, gormDB *gorm.DB, disks *storage.Registry) services.StorageService {
	defaults := services.DefaultUploadDefaults()
	if cfg.Upload.DefaultDisk != "" {
		defaults.Disk = cfg.Upload.DefaultDisk
	}
	if cfg.Upload.DefaultFolder != "" {
		defaults.Folder = cfg.Upload.DefaultFolder
	}
	if cfg.Upload.DefaultVisibility != "" {
		defaults.IsPublic = cfg.Upload.DefaultVisibility == "public"
	}
	if cfg.Upload.GenerateThumbnails != nil {
		defaults.GenerateThumbnails = *cfg.Upload.GenerateThumbnails
	}
	if cfg.Upload.MaxSize > 0 {
		defaults.MaxFileSize = cfg.Upload.MaxSize
	}
	if cfg.Upload.MaxOwnerStorage > 0 {
		defaults.MaxOwnerStorage = cfg.Upload.MaxOwnerStorage
	}
	if cfg.Upload.ImageQuality > 0 {
		defaults.ImageQuality = cfg.Upload.ImageQuality
	}
	if cfg.Upload.ImageMaxWidth > 0 {
		defaults.ImageMaxWidth = cfg.Upload.ImageMaxWidth
	}
	if cfg.Upload.ImageMaxHeight > 0 {
		defaults.ImageMaxHeight = cfg.Upload.ImageMaxHeight
	}

	uploadRepo := repositories.NewUploadRepository(gormDB)
	return services.NewStorageService(uploadRepo, disks, defaults)
}

func initializeHandlers(storageService services.StorageService) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		UploadHandler: handlers.NewUploadHandler(baseHandler, storageService),
		FileHandler:   handlers.NewFileHandler(baseHandler, storageService),
	}
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}
