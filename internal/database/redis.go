package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"venue-presence-api/internal/config"
)

// NewRedis creates a Redis client from configuration. The client is passed
// explicitly to whoever needs it; there is no package-level singleton, so
// tests can substitute an in-memory server.
//
// A connection failure returns (nil, err) and the caller is expected to keep
// running: the count cache treats a nil client as a permanent miss.
func NewRedis(cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	var client *redis.Client

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established successfully",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)),
		zap.Int("db", cfg.Redis.DB),
	)
	return client, nil
}
