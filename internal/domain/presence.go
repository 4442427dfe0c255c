package domain

import (
	"time"

	"github.com/google/uuid"
)

// PresenceRecord represents one user's declared state at one venue.
// A row exists if and only if the user is currently present at the venue;
// presence is explicitly set and explicitly cleared.
type PresenceRecord struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	VenueID        uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_presence_venue_id" json:"venue_id"`
	WantsToBuy     bool      `gorm:"not null;default:false" json:"wants_to_buy"`
	WantsToReceive bool      `gorm:"not null;default:false" json:"wants_to_receive"`
	Latitude       float64   `gorm:"not null" json:"latitude"`
	Longitude      float64   `gorm:"not null" json:"longitude"`
	LastSeen       time.Time `gorm:"not null;index:idx_presence_last_seen" json:"last_seen"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for PresenceRecord
func (PresenceRecord) TableName() string {
	return "presence_records"
}

// PresenceUpdate carries the fields of a setPresence call. The two flags are
// pointers: nil means "leave the stored value unchanged", so a partial update
// never clobbers a flag the caller did not supply. Latitude, longitude and
// last_seen are always overwritten.
type PresenceUpdate struct {
	WantsToBuy     *bool
	WantsToReceive *bool
	Latitude       float64
	Longitude      float64
}
