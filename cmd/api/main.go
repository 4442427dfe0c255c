// @title           Venue Presence Service API
// @version         1.0
// @description     장소 체크인 및 실시간 카운트 API

// @contact.name   API Support
// @contact.url    http://www.drinkup.co.kr/support
// @contact.email  support@drinkup.co.kr

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8004
// @BasePath  /api/venues

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"venue-presence-api/internal/cache"
	"venue-presence-api/internal/client"
	"venue-presence-api/internal/config"
	"venue-presence-api/internal/database"
	"venue-presence-api/internal/job"
	"venue-presence-api/internal/metrics"
	"venue-presence-api/internal/repository"
	"venue-presence-api/internal/router"
	"venue-presence-api/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting Venue Presence Service",
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("user_service_url", cfg.Services.UserServiceURL),
		zap.String("venue_service_url", cfg.Services.VenueServiceURL),
	)

	// Initialize database (실패해도 앱은 시작됨 - pod 생존 보장)
	dbConfig := database.Config{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		logger.Warn("Failed to connect to database on startup, will retry in background",
			zap.Error(err))
		// 백그라운드에서 DB 연결 재시도 (5초 간격)
		database.NewAsync(dbConfig, 5*time.Second)
	} else {
		logger.Info("Database connected successfully")

		if err := database.AutoMigrate(db); err != nil {
			logger.Warn("Failed to run database migrations", zap.Error(err))
		} else {
			logger.Info("Database migrations completed")
		}
	}

	// Initialize Redis (count cache and live count events)
	redisClient, err := database.NewRedis(cfg, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, counts will be recomputed on every read",
			zap.Error(err))
		redisClient = nil
	} else {
		logger.Info("Redis connected successfully")
	}

	// Initialize metrics
	m := metrics.NewWithLogger(logger)
	logger.Info("Metrics initialized")

	// Initialize external service clients
	userClient := client.NewUserClient(
		cfg.Services.UserServiceURL,
		cfg.Auth.ServiceURL,
		5*time.Second,
		logger,
		m,
	)
	venueClient := client.NewVenueClient(
		cfg.Services.VenueServiceURL,
		5*time.Second,
		logger,
		m,
	)

	// Setup router with all dependencies
	r := router.Setup(router.Config{
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
		JWTSecret:   cfg.Auth.SecretKey,
		UserClient:  userClient,
		VenueClient: venueClient,
		BasePath:    cfg.Server.BasePath,
		Metrics:     m,
		CacheTTL:    cfg.Presence.CacheTTL(),
		Env:         cfg.Server.Env,
	})

	// Business metrics collector (active presence gauge, pool stats)
	var collector *metrics.BusinessMetricsCollector
	if db != nil {
		collector = metrics.NewBusinessMetricsCollector(db, m, logger)
		collector.Start()
		defer collector.Stop()
	}

	// Stale presence sweep (opt-in)
	var cronRunner *cron.Cron
	if cfg.Presence.Cleanup.Enabled && db != nil {
		presenceRepo := repository.NewPresenceRepository(db)
		countCache := cache.NewVenueCountCache(redisClient, cfg.Presence.CacheTTL(), logger)
		presenceService := service.NewPresenceService(
			presenceRepo, countCache, venueClient, userClient, redisClient, m, logger,
		)
		cleanupJob := job.NewCleanupJob(presenceRepo, presenceService, cfg.Presence.Cleanup.MaxAge(), logger)

		cronRunner = cron.New()
		if _, err := cronRunner.AddJob(cfg.Presence.Cleanup.Schedule, cleanupJob); err != nil {
			logger.Error("Failed to schedule cleanup job", zap.Error(err))
		} else {
			cronRunner.Start()
			logger.Info("Cleanup job scheduled",
				zap.String("schedule", cfg.Presence.Cleanup.Schedule),
				zap.Int("max_age_hours", cfg.Presence.Cleanup.MaxAgeHours),
			)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Venue Presence Service started successfully",
			zap.String("address", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	if cronRunner != nil {
		cronRunner.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited gracefully")
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
