package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"venue-presence-api/internal/repository"
	"venue-presence-api/internal/service"
)

// CleanupJob removes presence records whose last heartbeat is older than
// maxAge. Disabled by default: clients are expected to check out explicitly,
// and the sweep exists for venues where they don't.
type CleanupJob struct {
	presenceRepo    repository.PresenceRepository
	presenceService service.PresenceService
	maxAge          time.Duration
	logger          *zap.Logger
}

// NewCleanupJob creates a new CleanupJob instance
func NewCleanupJob(
	presenceRepo repository.PresenceRepository,
	presenceService service.PresenceService,
	maxAge time.Duration,
	logger *zap.Logger,
) *CleanupJob {
	return &CleanupJob{
		presenceRepo:    presenceRepo,
		presenceService: presenceService,
		maxAge:          maxAge,
		logger:          logger,
	}
}

// Run executes one sweep. It deletes stale records and refreshes the count
// snapshot of every venue the sweep touched so cached counts do not keep
// reporting users who silently left.
func (j *CleanupJob) Run() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-j.maxAge)

	j.logger.Info("Starting stale presence sweep",
		zap.Time("cutoff", cutoff),
	)

	affectedVenues, err := j.presenceRepo.DeleteStaleBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("Failed to delete stale presence records",
			zap.Error(err),
		)
		return
	}

	if len(affectedVenues) == 0 {
		j.logger.Info("No stale presence records found")
		return
	}

	refreshed := 0
	for _, venueID := range affectedVenues {
		if _, err := j.presenceService.RefreshVenueCounts(ctx, venueID); err != nil {
			j.logger.Warn("Failed to refresh counts after sweep",
				zap.String("venue_id", venueID.String()),
				zap.Error(err),
			)
			continue
		}
		refreshed++
	}

	j.logger.Info("Stale presence sweep completed",
		zap.Int("venues_affected", len(affectedVenues)),
		zap.Int("venues_refreshed", refreshed),
	)
}
