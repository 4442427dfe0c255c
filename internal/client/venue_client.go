package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"venue-presence-api/internal/metrics"
)

// VenueClient talks to the venue catalog service. The presence core only
// needs existence and a handful of display fields.
type VenueClient interface {
	GetVenue(ctx context.Context, venueID uuid.UUID, token string) (*Venue, error)
}

// Venue holds the venue details the presence service cares about
type Venue struct {
	VenueID   uuid.UUID `json:"venueId"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

type venueClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewVenueClient creates a new VenueClient
func NewVenueClient(baseURL string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) VenueClient {
	return &venueClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: m,
	}
}

// GetVenue fetches a venue record. Returns ErrNotFound when the venue does
// not exist.
func (c *venueClient) GetVenue(ctx context.Context, venueID uuid.UUID, token string) (*Venue, error) {
	url := fmt.Sprintf("%s/api/venues/%s", c.baseURL, venueID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if c.metrics != nil {
		c.metrics.RecordExternalAPICall("/api/venues/{id}", http.MethodGet, statusCode, duration, err)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get venue failed: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	var result Venue
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
