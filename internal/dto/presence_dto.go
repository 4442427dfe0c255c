package dto

import (
	"time"

	"github.com/google/uuid"

	"venue-presence-api/internal/domain"
)

// SetPresenceRequest represents the request to declare presence at a venue
// @Description Request to mark the authenticated user as present at a venue.
// @Description wantsToBuy/wantsToReceive are optional: an omitted flag keeps
// @Description its previously stored value, it is never reset to false.
type SetPresenceRequest struct {
	WantsToBuy     *bool    `json:"wantsToBuy,omitempty" example:"true"`
	WantsToReceive *bool    `json:"wantsToReceive,omitempty" example:"false"`
	Latitude       *float64 `json:"latitude" binding:"required" example:"37.5326"`
	Longitude      *float64 `json:"longitude" binding:"required" example:"127.0246"`
}

// PresenceResponse represents one presence record
type PresenceResponse struct {
	UserID         uuid.UUID `json:"userId" example:"a1b2c3d4-e5f6-7890-abcd-ef1234567890"`
	VenueID        uuid.UUID `json:"venueId" example:"1275eac5-f0f9-4bee-8235-576a0042f42b"`
	WantsToBuy     bool      `json:"wantsToBuy" example:"true"`
	WantsToReceive bool      `json:"wantsToReceive" example:"false"`
	Latitude       float64   `json:"latitude" example:"37.5326"`
	Longitude      float64   `json:"longitude" example:"127.0246"`
	LastSeen       time.Time `json:"lastSeen" example:"2024-01-15T10:30:00Z"`
}

// NewPresenceResponse converts a domain record to its response form
func NewPresenceResponse(record *domain.PresenceRecord) *PresenceResponse {
	return &PresenceResponse{
		UserID:         record.UserID,
		VenueID:        record.VenueID,
		WantsToBuy:     record.WantsToBuy,
		WantsToReceive: record.WantsToReceive,
		Latitude:       record.Latitude,
		Longitude:      record.Longitude,
		LastSeen:       record.LastSeen,
	}
}

// PresenceSummary represents one present user joined with display fields
// @Description Presence record enriched with the user's display name and
// @Description avatar for venue detail screens
type PresenceSummary struct {
	UserID          uuid.UUID `json:"userId" example:"a1b2c3d4-e5f6-7890-abcd-ef1234567890"`
	NickName        string    `json:"nickName,omitempty" example:"jiho"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty" example:"https://cdn.example.com/u/jiho.png"`
	WantsToBuy      bool      `json:"wantsToBuy" example:"true"`
	WantsToReceive  bool      `json:"wantsToReceive" example:"false"`
	LastSeen        time.Time `json:"lastSeen" example:"2024-01-15T10:30:00Z"`
}

// VenueCountsResponse represents the aggregate counts for a venue
type VenueCountsResponse struct {
	VenueID     uuid.UUID `json:"venueId" example:"1275eac5-f0f9-4bee-8235-576a0042f42b"`
	Total       int       `json:"total" example:"12"`
	Buys        int       `json:"buys" example:"7"`
	Receives    int       `json:"receives" example:"5"`
	LastUpdated time.Time `json:"lastUpdated" example:"2024-01-15T10:30:00Z"`
}

// NewVenueCountsResponse converts a snapshot to its response form
func NewVenueCountsResponse(snapshot *domain.VenueCountSnapshot) *VenueCountsResponse {
	return &VenueCountsResponse{
		VenueID:     snapshot.VenueID,
		Total:       snapshot.Total,
		Buys:        snapshot.Buys,
		Receives:    snapshot.Receives,
		LastUpdated: snapshot.LastUpdated,
	}
}

// ClearPresenceResponse represents the response to a clearPresence call
type ClearPresenceResponse struct {
	Message string `json:"message" example:"Presence cleared"`
}
