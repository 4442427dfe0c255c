package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-presence-api/internal/cache"
	"venue-presence-api/internal/client"
	"venue-presence-api/internal/database"
	"venue-presence-api/internal/handler"
	"venue-presence-api/internal/metrics"
	"venue-presence-api/internal/middleware"
	"venue-presence-api/internal/repository"
	"venue-presence-api/internal/service"
)

// Config holds everything Setup needs to assemble the service
type Config struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	Logger      *zap.Logger
	JWTSecret   string
	UserClient  client.UserClient
	VenueClient client.VenueClient
	BasePath    string
	Metrics     *metrics.Metrics
	CacheTTL    time.Duration
	Env         string
}

// Setup wires repositories, services and handlers into a gin engine
func Setup(cfg Config) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.LoggerMiddleware(cfg.Logger))
	r.Use(middleware.CORS())
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// GORM query metrics
	if cfg.DB != nil && cfg.Metrics != nil {
		database.RegisterMetricsCallbacks(cfg.DB, cfg.Metrics)
	}

	// Initialize repositories and cache
	presenceRepo := repository.NewPresenceRepository(cfg.DB)
	countCache := cache.NewVenueCountCache(cfg.RedisClient, cfg.CacheTTL, cfg.Logger)

	// Initialize services
	presenceService := service.NewPresenceService(
		presenceRepo,
		countCache,
		cfg.VenueClient,
		cfg.UserClient,
		cfg.RedisClient,
		cfg.Metrics,
		cfg.Logger,
	)

	// Initialize handlers
	presenceHandler := handler.NewPresenceHandler(presenceService)
	healthHandler := handler.NewHealthHandler(cfg.DB, cfg.RedisClient)
	wsHandler := handler.NewWSHandler(cfg.Logger, cfg.UserClient, presenceService, cfg.RedisClient)

	// Health endpoints (no auth)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with base path
	api := r.Group(cfg.BasePath)
	{
		// Health under base path (skip when no base path, the root routes cover it)
		if cfg.BasePath != "" {
			api.GET("/health", healthHandler.Health)
			api.GET("/ready", healthHandler.Ready)
			api.GET("/metrics", gin.WrapH(promhttp.Handler()))
		}

		// WebSocket endpoint (token passed as query parameter)
		api.GET("/ws/:venueId/counts", wsHandler.HandleVenueCounts)

		// Count reads are public: venue screens show counts before login
		api.GET("/:venueId/counts", presenceHandler.GetVenueCounts)

		// Authenticated routes
		authenticated := api.Group("")
		if cfg.UserClient != nil {
			authenticated.Use(middleware.AuthWithValidator(cfg.UserClient))
		} else {
			authenticated.Use(middleware.Auth(cfg.JWTSecret))
		}
		{
			authenticated.PUT("/:venueId/presence", presenceHandler.SetPresence)
			authenticated.DELETE("/:venueId/presence", presenceHandler.ClearPresence)
			authenticated.GET("/:venueId/presence", presenceHandler.GetVenuePresence)
			authenticated.DELETE("/:venueId/counts/cache", presenceHandler.InvalidateVenueCounts)
		}
	}

	return r
}
