package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"venue-presence-api/internal/metrics"
)

// ErrNotFound is returned when the remote service reports 404 for the
// requested resource
var ErrNotFound = errors.New("resource not found")

// UserClient talks to the user/auth services for token validation and user
// display fields
type UserClient interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
	GetUserInfo(ctx context.Context, userID uuid.UUID, token string) (*UserInfo, error)
	GetUsersInfo(ctx context.Context, userIDs []uuid.UUID, token string) ([]UserInfo, error)
}

type userClient struct {
	baseURL     string
	authBaseURL string
	httpClient  *http.Client
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// UserInfo holds the display fields the presence list is joined with
type UserInfo struct {
	UserID          uuid.UUID `json:"userId"`
	Email           string    `json:"email"`
	NickName        string    `json:"nickName,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
}

type tokenValidationResponse struct {
	UserID  string `json:"userId"`
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// NewUserClient creates a new UserClient
func NewUserClient(baseURL, authBaseURL string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) UserClient {
	return &userClient{
		baseURL:     baseURL,
		authBaseURL: authBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: m,
	}
}

// ValidateToken validates the JWT via auth-service (includes blacklist check)
func (c *userClient) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	url := fmt.Sprintf("%s/api/auth/validate", c.authBaseURL)

	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, "/api/auth/validate")
	if err != nil {
		return uuid.Nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return uuid.Nil, fmt.Errorf("validation failed: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	var result tokenValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.Valid {
		return uuid.Nil, fmt.Errorf("token rejected: %s", result.Message)
	}

	userID, err := uuid.Parse(result.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in validation response: %w", err)
	}

	return userID, nil
}

// GetUserInfo fetches one user's display fields. Returns ErrNotFound when the
// user does not exist.
func (c *userClient) GetUserInfo(ctx context.Context, userID uuid.UUID, token string) (*UserInfo, error) {
	url := fmt.Sprintf("%s/api/users/%s", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := c.do(req, "/api/users/{id}")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get user info failed: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	var result UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetUsersInfo fetches display fields for a set of users in a single call.
// The presence list join uses this instead of per-row lookups.
func (c *userClient) GetUsersInfo(ctx context.Context, userIDs []uuid.UUID, token string) ([]UserInfo, error) {
	if len(userIDs) == 0 {
		return []UserInfo{}, nil
	}

	url := fmt.Sprintf("%s/api/users/batch", c.baseURL)

	body, err := json.Marshal(map[string][]uuid.UUID{"userIds": userIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := c.do(req, "/api/users/batch")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get users info failed: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Users []UserInfo `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Users, nil
}

// do executes the request and records external API metrics
func (c *userClient) do(req *http.Request, endpoint string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if c.metrics != nil {
		c.metrics.RecordExternalAPICall(endpoint, req.Method, statusCode, duration, err)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}
