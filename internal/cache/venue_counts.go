package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"venue-presence-api/internal/domain"
)

const countKeyPrefix = "venue:counts:"

// VenueCountCache stores the per-venue count snapshot with bounded staleness.
// It is an optimization, never a correctness dependency: every method
// tolerates an absent or unreachable Redis and the read path falls back to
// recomputing from the presence store.
type VenueCountCache interface {
	// Get returns the cached snapshot, or (nil, nil) when the entry is
	// absent, expired or the cache is unreachable.
	Get(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error)
	// Set overwrites the snapshot wholesale and resets the TTL.
	Set(ctx context.Context, snapshot *domain.VenueCountSnapshot) error
	// Invalidate deletes the entry. Not used on the write path (which always
	// overwrites with a fresh value); exposed for operational flushes.
	Invalidate(ctx context.Context, venueID uuid.UUID) error
}

// redisVenueCountCache is the Redis implementation of VenueCountCache
type redisVenueCountCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewVenueCountCache creates a new VenueCountCache backed by Redis. A nil
// client is allowed and behaves as a cache that always misses.
func NewVenueCountCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) VenueCountCache {
	return &redisVenueCountCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func countKey(venueID uuid.UUID) string {
	return countKeyPrefix + venueID.String()
}

func (c *redisVenueCountCache) Get(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error) {
	if c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, countKey(venueID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read count cache: %w", err)
	}

	var snapshot domain.VenueCountSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// A corrupt entry is treated as a miss; the next write replaces it
		c.logger.Warn("discarding corrupt count cache entry",
			zap.String("venue_id", venueID.String()),
			zap.Error(err),
		)
		return nil, nil
	}

	return &snapshot, nil
}

func (c *redisVenueCountCache) Set(ctx context.Context, snapshot *domain.VenueCountSnapshot) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal count snapshot: %w", err)
	}

	if err := c.client.Set(ctx, countKey(snapshot.VenueID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write count cache: %w", err)
	}

	return nil
}

func (c *redisVenueCountCache) Invalidate(ctx context.Context, venueID uuid.UUID) error {
	if c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, countKey(venueID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate count cache: %w", err)
	}

	return nil
}
