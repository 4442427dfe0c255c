package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"venue-presence-api/internal/domain"
	"venue-presence-api/internal/dto"
	"venue-presence-api/internal/response"
)

// MockPresenceService is a mock implementation of PresenceService
type MockPresenceService struct {
	SetPresenceFunc           func(ctx context.Context, userID, venueID uuid.UUID, token string, req *dto.SetPresenceRequest) (*dto.PresenceResponse, error)
	ClearPresenceFunc         func(ctx context.Context, userID, venueID uuid.UUID) error
	GetVenuePresenceFunc      func(ctx context.Context, venueID uuid.UUID, token string) ([]*dto.PresenceSummary, error)
	GetVenueCountsFunc        func(ctx context.Context, venueID uuid.UUID) (*dto.VenueCountsResponse, error)
	InvalidateVenueCountsFunc func(ctx context.Context, venueID uuid.UUID) error
	RefreshVenueCountsFunc    func(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error)
}

func (m *MockPresenceService) SetPresence(ctx context.Context, userID, venueID uuid.UUID, token string, req *dto.SetPresenceRequest) (*dto.PresenceResponse, error) {
	if m.SetPresenceFunc != nil {
		return m.SetPresenceFunc(ctx, userID, venueID, token, req)
	}
	return &dto.PresenceResponse{UserID: userID, VenueID: venueID}, nil
}

func (m *MockPresenceService) ClearPresence(ctx context.Context, userID, venueID uuid.UUID) error {
	if m.ClearPresenceFunc != nil {
		return m.ClearPresenceFunc(ctx, userID, venueID)
	}
	return nil
}

func (m *MockPresenceService) GetVenuePresence(ctx context.Context, venueID uuid.UUID, token string) ([]*dto.PresenceSummary, error) {
	if m.GetVenuePresenceFunc != nil {
		return m.GetVenuePresenceFunc(ctx, venueID, token)
	}
	return nil, nil
}

func (m *MockPresenceService) GetVenueCounts(ctx context.Context, venueID uuid.UUID) (*dto.VenueCountsResponse, error) {
	if m.GetVenueCountsFunc != nil {
		return m.GetVenueCountsFunc(ctx, venueID)
	}
	return &dto.VenueCountsResponse{VenueID: venueID}, nil
}

func (m *MockPresenceService) InvalidateVenueCounts(ctx context.Context, venueID uuid.UUID) error {
	if m.InvalidateVenueCountsFunc != nil {
		return m.InvalidateVenueCountsFunc(ctx, venueID)
	}
	return nil
}

func (m *MockPresenceService) RefreshVenueCounts(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error) {
	if m.RefreshVenueCountsFunc != nil {
		return m.RefreshVenueCountsFunc(ctx, venueID)
	}
	return &domain.VenueCountSnapshot{VenueID: venueID}, nil
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// withAuth injects the authenticated user into the context the way the auth
// middleware does
func withAuth(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("jwtToken", "test-token")
		c.Next()
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

func boolPtr(b bool) *bool {
	return &b
}

func TestPresenceHandler_SetPresence(t *testing.T) {
	userID := uuid.New()
	venueID := uuid.New()

	tests := []struct {
		name           string
		venueID        string
		requestBody    interface{}
		mockService    func(*MockPresenceService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name:    "성공: 체크인",
			venueID: venueID.String(),
			requestBody: dto.SetPresenceRequest{
				WantsToBuy: boolPtr(true),
				Latitude:   floatPtr(37.5665),
				Longitude:  floatPtr(126.9780),
			},
			mockService: func(m *MockPresenceService) {
				m.SetPresenceFunc = func(ctx context.Context, uID, vID uuid.UUID, token string, req *dto.SetPresenceRequest) (*dto.PresenceResponse, error) {
					return &dto.PresenceResponse{UserID: uID, VenueID: vID, WantsToBuy: true}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var resp map[string]interface{}
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				data := resp["data"].(map[string]interface{})
				if data["wantsToBuy"].(bool) != true {
					t.Errorf("Expected wantsToBuy=true, got %v", data["wantsToBuy"])
				}
			},
		},
		{
			name:    "성공: 플래그 생략 시에도 위치만으로 체크인",
			venueID: venueID.String(),
			requestBody: dto.SetPresenceRequest{
				Latitude:  floatPtr(37.5665),
				Longitude: floatPtr(126.9780),
			},
			mockService:    func(m *MockPresenceService) {},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "실패: 잘못된 Venue ID",
			venueID:        "not-a-uuid",
			requestBody:    dto.SetPresenceRequest{Latitude: floatPtr(1), Longitude: floatPtr(2)},
			mockService:    func(m *MockPresenceService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "실패: 위치 누락",
			venueID:        venueID.String(),
			requestBody:    map[string]interface{}{"wantsToBuy": true},
			mockService:    func(m *MockPresenceService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "실패: Venue가 존재하지 않음",
			venueID:     venueID.String(),
			requestBody: dto.SetPresenceRequest{Latitude: floatPtr(1), Longitude: floatPtr(2)},
			mockService: func(m *MockPresenceService) {
				m.SetPresenceFunc = func(ctx context.Context, uID, vID uuid.UUID, token string, req *dto.SetPresenceRequest) (*dto.PresenceResponse, error) {
					return nil, response.NewAppError(response.ErrCodeNotFound, "Venue not found", "")
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			mockService := &MockPresenceService{}
			tt.mockService(mockService)
			handler := NewPresenceHandler(mockService)

			router := setupTestRouter()
			router.PUT("/api/venues/:venueId/presence", withAuth(userID), handler.SetPresence)

			body, _ := json.Marshal(tt.requestBody)
			req := httptest.NewRequest(http.MethodPut, "/api/venues/"+tt.venueID+"/presence", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			// When
			router.ServeHTTP(w, req)

			// Then
			if w.Code != tt.expectedStatus {
				t.Errorf("SetPresence() status = %v, want %v, body: %s", w.Code, tt.expectedStatus, w.Body.String())
			}

			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}

func TestPresenceHandler_SetPresence_Unauthorized(t *testing.T) {
	handler := NewPresenceHandler(&MockPresenceService{})

	router := setupTestRouter()
	// No auth middleware: context has no user_id
	router.PUT("/api/venues/:venueId/presence", handler.SetPresence)

	body, _ := json.Marshal(dto.SetPresenceRequest{Latitude: floatPtr(1), Longitude: floatPtr(2)})
	req := httptest.NewRequest(http.MethodPut, "/api/venues/"+uuid.New().String()+"/presence", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %v", w.Code)
	}
}

func TestPresenceHandler_ClearPresence(t *testing.T) {
	userID := uuid.New()
	venueID := uuid.New()

	tests := []struct {
		name           string
		venueID        string
		mockService    func(*MockPresenceService)
		expectedStatus int
	}{
		{
			name:           "성공: 체크아웃",
			venueID:        venueID.String(),
			mockService:    func(m *MockPresenceService) {},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "실패: 잘못된 Venue ID",
			venueID:        "bad-id",
			mockService:    func(m *MockPresenceService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:    "실패: 저장소 에러",
			venueID: venueID.String(),
			mockService: func(m *MockPresenceService) {
				m.ClearPresenceFunc = func(ctx context.Context, uID, vID uuid.UUID) error {
					return response.NewAppError(response.ErrCodeInternal, "Failed to clear presence", "")
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockPresenceService{}
			tt.mockService(mockService)
			handler := NewPresenceHandler(mockService)

			router := setupTestRouter()
			router.DELETE("/api/venues/:venueId/presence", withAuth(userID), handler.ClearPresence)

			req := httptest.NewRequest(http.MethodDelete, "/api/venues/"+tt.venueID+"/presence", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("ClearPresence() status = %v, want %v, body: %s", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestPresenceHandler_GetVenuePresence(t *testing.T) {
	userID := uuid.New()
	venueID := uuid.New()

	mockService := &MockPresenceService{
		GetVenuePresenceFunc: func(ctx context.Context, vID uuid.UUID, token string) ([]*dto.PresenceSummary, error) {
			return []*dto.PresenceSummary{
				{UserID: uuid.New(), NickName: "mina", WantsToBuy: true},
				{UserID: uuid.New(), NickName: "jun", WantsToReceive: true},
			}, nil
		},
	}
	handler := NewPresenceHandler(mockService)

	router := setupTestRouter()
	router.GET("/api/venues/:venueId/presence", withAuth(userID), handler.GetVenuePresence)

	req := httptest.NewRequest(http.MethodGet, "/api/venues/"+venueID.String()+"/presence", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GetVenuePresence() status = %v, body: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	data := resp["data"].([]interface{})
	if len(data) != 2 {
		t.Errorf("Expected 2 summaries, got %d", len(data))
	}
}

func TestPresenceHandler_GetVenueCounts(t *testing.T) {
	venueID := uuid.New()

	tests := []struct {
		name           string
		venueID        string
		mockService    func(*MockPresenceService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name:    "성공: 카운트 조회",
			venueID: venueID.String(),
			mockService: func(m *MockPresenceService) {
				m.GetVenueCountsFunc = func(ctx context.Context, vID uuid.UUID) (*dto.VenueCountsResponse, error) {
					return &dto.VenueCountsResponse{VenueID: vID, Total: 5, Buys: 2, Receives: 3}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var resp map[string]interface{}
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				data := resp["data"].(map[string]interface{})
				if data["total"].(float64) != 5 {
					t.Errorf("Expected total=5, got %v", data["total"])
				}
				if data["buys"].(float64) != 2 {
					t.Errorf("Expected buys=2, got %v", data["buys"])
				}
			},
		},
		{
			name:           "실패: 잘못된 Venue ID",
			venueID:        "nope",
			mockService:    func(m *MockPresenceService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:    "실패: 재계산 실패",
			venueID: venueID.String(),
			mockService: func(m *MockPresenceService) {
				m.GetVenueCountsFunc = func(ctx context.Context, vID uuid.UUID) (*dto.VenueCountsResponse, error) {
					return nil, response.NewAppError(response.ErrCodeInternal, "Failed to compute venue counts", "")
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockPresenceService{}
			tt.mockService(mockService)
			handler := NewPresenceHandler(mockService)

			router := setupTestRouter()
			router.GET("/api/venues/:venueId/counts", handler.GetVenueCounts)

			req := httptest.NewRequest(http.MethodGet, "/api/venues/"+tt.venueID+"/counts", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("GetVenueCounts() status = %v, want %v, body: %s", w.Code, tt.expectedStatus, w.Body.String())
			}

			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}

func TestPresenceHandler_InvalidateVenueCounts(t *testing.T) {
	venueID := uuid.New()
	invalidated := false

	mockService := &MockPresenceService{
		InvalidateVenueCountsFunc: func(ctx context.Context, vID uuid.UUID) error {
			invalidated = true
			return nil
		},
	}
	handler := NewPresenceHandler(mockService)

	router := setupTestRouter()
	router.DELETE("/api/venues/:venueId/counts/cache", handler.InvalidateVenueCounts)

	req := httptest.NewRequest(http.MethodDelete, "/api/venues/"+venueID.String()+"/counts/cache", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("InvalidateVenueCounts() status = %v, body: %s", w.Code, w.Body.String())
	}
	if !invalidated {
		t.Error("Expected the cache invalidation to be called")
	}
}
