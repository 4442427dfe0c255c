package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"venue-presence-api/internal/cache"
	"venue-presence-api/internal/client"
	"venue-presence-api/internal/domain"
	"venue-presence-api/internal/dto"
	"venue-presence-api/internal/metrics"
	"venue-presence-api/internal/repository"
	"venue-presence-api/internal/response"
)

// cacheOpTimeout bounds every count-cache call. A cache that times out is
// treated exactly like an unreachable cache: the read path recomputes from
// the store instead.
const cacheOpTimeout = 2 * time.Second

// PresenceService defines the interface for venue presence business logic.
// It is the only entry point callers use; the store, the count cache and the
// external user/venue services are wired behind it.
type PresenceService interface {
	SetPresence(ctx context.Context, userID, venueID uuid.UUID, token string, req *dto.SetPresenceRequest) (*dto.PresenceResponse, error)
	ClearPresence(ctx context.Context, userID, venueID uuid.UUID) error
	GetVenuePresence(ctx context.Context, venueID uuid.UUID, token string) ([]*dto.PresenceSummary, error)
	GetVenueCounts(ctx context.Context, venueID uuid.UUID) (*dto.VenueCountsResponse, error)
	InvalidateVenueCounts(ctx context.Context, venueID uuid.UUID) error
	RefreshVenueCounts(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error)
}

// presenceServiceImpl is the implementation of PresenceService
type presenceServiceImpl struct {
	presenceRepo repository.PresenceRepository
	countCache   cache.VenueCountCache
	venueClient  client.VenueClient
	userClient   client.UserClient
	redis        *redis.Client
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewPresenceService creates a new instance of PresenceService. The redis
// client is only used for publishing count-update events and may be nil.
func NewPresenceService(
	presenceRepo repository.PresenceRepository,
	countCache cache.VenueCountCache,
	venueClient client.VenueClient,
	userClient client.UserClient,
	redisClient *redis.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) PresenceService {
	return &presenceServiceImpl{
		presenceRepo: presenceRepo,
		countCache:   countCache,
		venueClient:  venueClient,
		userClient:   userClient,
		redis:        redisClient,
		metrics:      m,
		logger:       logger,
	}
}

// SetPresence marks the user as present at the venue, creating or updating
// the presence record, then synchronously refreshes the venue's count
// snapshot. The presence write is authoritative: a cache refresh failure
// degrades freshness, never the result.
func (s *presenceServiceImpl) SetPresence(ctx context.Context, userID, venueID uuid.UUID, token string, req *dto.SetPresenceRequest) (*dto.PresenceResponse, error) {
	// Existence checks happen before any store mutation so a NotFound never
	// leaves partial state behind
	if _, err := s.venueClient.GetVenue(ctx, venueID, token); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Venue not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to verify venue", err.Error())
	}

	if _, err := s.userClient.GetUserInfo(ctx, userID, token); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "User not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to verify user", err.Error())
	}

	update := domain.PresenceUpdate{
		WantsToBuy:     req.WantsToBuy,
		WantsToReceive: req.WantsToReceive,
	}
	if req.Latitude != nil {
		update.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		update.Longitude = *req.Longitude
	}

	record, err := s.presenceRepo.Upsert(ctx, userID, venueID, update)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to write presence", err.Error())
	}

	s.refreshCounts(ctx, venueID)
	s.metrics.IncrementPresenceSet()

	return dto.NewPresenceResponse(record), nil
}

// ClearPresence removes the user's presence record. Clearing presence that
// was never set is a no-op, not an error; the count refresh still runs and is
// intentionally cheap in that case.
func (s *presenceServiceImpl) ClearPresence(ctx context.Context, userID, venueID uuid.UUID) error {
	if err := s.presenceRepo.Delete(ctx, userID, venueID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to clear presence", err.Error())
	}

	s.refreshCounts(ctx, venueID)
	s.metrics.IncrementPresenceCleared()

	return nil
}

// GetVenuePresence returns the venue's presence records joined with user
// display fields. The join fetches all display fields in one batch call; a
// user-service outage degrades the summaries to bare records rather than
// failing the read.
func (s *presenceServiceImpl) GetVenuePresence(ctx context.Context, venueID uuid.UUID, token string) ([]*dto.PresenceSummary, error) {
	records, err := s.presenceRepo.ListByVenue(ctx, venueID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list venue presence", err.Error())
	}

	summaries := make([]*dto.PresenceSummary, 0, len(records))
	if len(records) == 0 {
		return summaries, nil
	}

	userIDs := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		userIDs = append(userIDs, r.UserID)
	}

	users := make(map[uuid.UUID]client.UserInfo, len(userIDs))
	infos, err := s.userClient.GetUsersInfo(ctx, userIDs, token)
	if err != nil {
		s.logger.Warn("failed to fetch user display fields, returning bare presence list",
			zap.String("venue_id", venueID.String()),
			zap.Error(err),
		)
	} else {
		for _, info := range infos {
			users[info.UserID] = info
		}
	}

	for _, r := range records {
		summary := &dto.PresenceSummary{
			UserID:         r.UserID,
			WantsToBuy:     r.WantsToBuy,
			WantsToReceive: r.WantsToReceive,
			LastSeen:       r.LastSeen,
		}
		if info, ok := users[r.UserID]; ok {
			summary.NickName = info.NickName
			summary.ProfileImageURL = info.ProfileImageURL
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// GetVenueCounts returns the venue's count snapshot, reading the cache first
// and recomputing from the store on a miss. The recomputed snapshot is
// written back best-effort; the caller gets a result even when the cache is
// completely down.
func (s *presenceServiceImpl) GetVenueCounts(ctx context.Context, venueID uuid.UUID) (*dto.VenueCountsResponse, error) {
	cacheCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	snapshot, err := s.countCache.Get(cacheCtx, venueID)
	cancel()
	if err != nil {
		s.metrics.RecordCountCacheError()
		s.logger.Warn("count cache read failed, falling back to recompute",
			zap.String("venue_id", venueID.String()),
			zap.Error(err),
		)
	}

	if snapshot != nil {
		s.metrics.RecordCountCacheHit()
		return dto.NewVenueCountsResponse(snapshot), nil
	}
	s.metrics.RecordCountCacheMiss()

	snapshot, err = s.recompute(ctx, venueID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to compute venue counts", err.Error())
	}

	s.cacheSet(ctx, snapshot)

	return dto.NewVenueCountsResponse(snapshot), nil
}

// InvalidateVenueCounts drops the cached snapshot. Operational use only; the
// write path always overwrites instead of invalidating.
func (s *presenceServiceImpl) InvalidateVenueCounts(ctx context.Context, venueID uuid.UUID) error {
	cacheCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	if err := s.countCache.Invalidate(cacheCtx, venueID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to invalidate count cache", err.Error())
	}
	return nil
}

// RefreshVenueCounts recomputes the snapshot from the store and overwrites
// the cache entry. Used by the cleanup job after it removes stale records.
func (s *presenceServiceImpl) RefreshVenueCounts(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error) {
	snapshot, err := s.recompute(ctx, venueID)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, snapshot)
	s.publishCounts(ctx, snapshot)

	return snapshot, nil
}

// recompute derives the count snapshot from the venue's current record set.
// The list is fetched once and folded over, so total/buys/receives always
// describe the same instant; three separate count queries could race against
// concurrent writers.
func (s *presenceServiceImpl) recompute(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error) {
	start := time.Now()

	records, err := s.presenceRepo.ListByVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.VenueCountSnapshot{
		VenueID:     venueID,
		Total:       len(records),
		LastUpdated: time.Now().UTC(),
	}
	for _, r := range records {
		if r.WantsToBuy {
			snapshot.Buys++
		}
		if r.WantsToReceive {
			snapshot.Receives++
		}
	}

	s.metrics.RecordRecompute(time.Since(start))

	return snapshot, nil
}

// refreshCounts runs the write-path recompute-and-overwrite. It runs after
// the store write has committed; any failure here is absorbed because the
// store is the authority and the cache self-heals on the next write or TTL
// expiry.
func (s *presenceServiceImpl) refreshCounts(ctx context.Context, venueID uuid.UUID) {
	snapshot, err := s.recompute(ctx, venueID)
	if err != nil {
		s.metrics.RecordCountCacheError()
		s.logger.Warn("count refresh failed after presence write, cache left stale",
			zap.String("venue_id", venueID.String()),
			zap.Error(err),
		)
		return
	}

	s.cacheSet(ctx, snapshot)
	s.publishCounts(ctx, snapshot)
}

// cacheSet overwrites the cache entry best-effort
func (s *presenceServiceImpl) cacheSet(ctx context.Context, snapshot *domain.VenueCountSnapshot) {
	cacheCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	if err := s.countCache.Set(cacheCtx, snapshot); err != nil {
		s.metrics.RecordCountCacheError()
		s.logger.Warn("count cache write failed",
			zap.String("venue_id", snapshot.VenueID.String()),
			zap.Error(err),
		)
	}
}

// publishCounts broadcasts the fresh snapshot for live dashboard streams
func (s *presenceServiceImpl) publishCounts(ctx context.Context, snapshot *domain.VenueCountSnapshot) {
	if s.redis == nil {
		return
	}

	channel := CountEventChannel(snapshot.VenueID)
	data, err := json.Marshal(map[string]interface{}{
		"type":        "VENUE_COUNTS",
		"venueId":     snapshot.VenueID.String(),
		"total":       snapshot.Total,
		"buys":        snapshot.Buys,
		"receives":    snapshot.Receives,
		"lastUpdated": snapshot.LastUpdated,
	})
	if err != nil {
		s.logger.Error("failed to marshal count event", zap.Error(err))
		return
	}

	if err := s.redis.Publish(ctx, channel, data).Err(); err != nil {
		s.logger.Error("failed to publish count event", zap.Error(err))
	}
}

// CountEventChannel returns the pub/sub channel carrying count updates for a
// venue
func CountEventChannel(venueID uuid.UUID) string {
	return fmt.Sprintf("venue:counts:events:%s", venueID.String())
}
