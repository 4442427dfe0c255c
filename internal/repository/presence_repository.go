package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-presence-api/internal/domain"
)

// PresenceRepository defines the interface for presence data access
type PresenceRepository interface {
	Upsert(ctx context.Context, userID, venueID uuid.UUID, update domain.PresenceUpdate) (*domain.PresenceRecord, error)
	Delete(ctx context.Context, userID, venueID uuid.UUID) error
	FindByUserAndVenue(ctx context.Context, userID, venueID uuid.UUID) (*domain.PresenceRecord, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*domain.PresenceRecord, error)
	DeleteStaleBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// presenceRepositoryImpl is the GORM implementation of PresenceRepository
type presenceRepositoryImpl struct {
	db *gorm.DB
}

// NewPresenceRepository creates a new instance of PresenceRepository
func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &presenceRepositoryImpl{db: db}
}

// Upsert creates or overwrites the presence record for (userID, venueID) as a
// single atomic statement. Latitude, longitude and last_seen are always
// written; wants_to_buy/wants_to_receive are only written when the update
// carries them, so concurrent partial updates cannot clobber each other's
// flags. Unsupplied flags default to false on first insert.
func (r *presenceRepositoryImpl) Upsert(ctx context.Context, userID, venueID uuid.UUID, update domain.PresenceUpdate) (*domain.PresenceRecord, error) {
	record := &domain.PresenceRecord{
		UserID:    userID,
		VenueID:   venueID,
		Latitude:  update.Latitude,
		Longitude: update.Longitude,
		LastSeen:  time.Now().UTC(),
	}

	assignments := []string{"latitude", "longitude", "last_seen", "updated_at"}
	if update.WantsToBuy != nil {
		record.WantsToBuy = *update.WantsToBuy
		assignments = append(assignments, "wants_to_buy")
	}
	if update.WantsToReceive != nil {
		record.WantsToReceive = *update.WantsToReceive
		assignments = append(assignments, "wants_to_receive")
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "venue_id"}},
		DoUpdates: clause.AssignmentColumns(assignments),
	}).Create(record).Error
	if err != nil {
		return nil, err
	}

	// On the conflict path the in-memory record does not carry flags the
	// update left untouched, so return the stored row.
	return r.FindByUserAndVenue(ctx, userID, venueID)
}

// Delete removes the presence record if present. Deleting a record that does
// not exist is a no-op, not an error.
func (r *presenceRepositoryImpl) Delete(ctx context.Context, userID, venueID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND venue_id = ?", userID, venueID).
		Delete(&domain.PresenceRecord{}).Error
}

// FindByUserAndVenue finds the presence record for a (user, venue) pair
func (r *presenceRepositoryImpl) FindByUserAndVenue(ctx context.Context, userID, venueID uuid.UUID) (*domain.PresenceRecord, error) {
	var record domain.PresenceRecord
	if err := r.db.WithContext(ctx).
		First(&record, "user_id = ? AND venue_id = ?", userID, venueID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByVenue returns all current presence records for a venue in one query.
// The aggregation layer folds over this single result set so the three counts
// it derives are mutually consistent.
func (r *presenceRepositoryImpl) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*domain.PresenceRecord, error) {
	var records []*domain.PresenceRecord
	if err := r.db.WithContext(ctx).
		Where("venue_id = ?", venueID).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteStaleBefore removes every presence record whose last_seen is older
// than the cutoff and returns the distinct venue IDs that lost records, so
// the caller can recompute their snapshots.
func (r *presenceRepositoryImpl) DeleteStaleBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var venueIDs []uuid.UUID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.PresenceRecord{}).
			Distinct("venue_id").
			Where("last_seen < ?", cutoff).
			Pluck("venue_id", &venueIDs).Error; err != nil {
			return err
		}

		if len(venueIDs) == 0 {
			return nil
		}

		return tx.Where("last_seen < ?", cutoff).
			Delete(&domain.PresenceRecord{}).Error
	})
	if err != nil {
		return nil, err
	}

	return venueIDs, nil
}
