package database

import (
	"fmt"

	"gorm.io/gorm"

	"venue-presence-api/internal/domain"
)

// AutoMigrate runs GORM auto-migration for all domain models.
// The composite (user_id, venue_id) primary key and the venue_id secondary
// index come from the struct tags; the covering index below keeps the
// venue-scoped aggregation read fast.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.PresenceRecord{}); err != nil {
		return fmt.Errorf("failed to run auto-migration: %w", err)
	}

	createIndexes(db)

	return nil
}

func createIndexes(db *gorm.DB) {
	db.Exec(`CREATE INDEX IF NOT EXISTS idx_presence_venue_flags
		ON presence_records (venue_id, wants_to_buy, wants_to_receive)`)
}
