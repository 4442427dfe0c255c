package domain

import (
	"time"

	"github.com/google/uuid"
)

// VenueCountSnapshot is the derived per-venue aggregate held in the count
// cache. It is a pure function of the venue's current PresenceRecord set and
// is always written wholesale, never patched incrementally.
type VenueCountSnapshot struct {
	VenueID     uuid.UUID `json:"venue_id"`
	Total       int       `json:"total"`
	Buys        int       `json:"buys"`
	Receives    int       `json:"receives"`
	LastUpdated time.Time `json:"last_updated"`
}
