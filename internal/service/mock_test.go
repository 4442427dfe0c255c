package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"venue-presence-api/internal/client"
	"venue-presence-api/internal/domain"
)

// MockPresenceRepository is a mock implementation of PresenceRepository
type MockPresenceRepository struct {
	UpsertFunc             func(ctx context.Context, userID, venueID uuid.UUID, update domain.PresenceUpdate) (*domain.PresenceRecord, error)
	DeleteFunc             func(ctx context.Context, userID, venueID uuid.UUID) error
	FindByUserAndVenueFunc func(ctx context.Context, userID, venueID uuid.UUID) (*domain.PresenceRecord, error)
	ListByVenueFunc        func(ctx context.Context, venueID uuid.UUID) ([]*domain.PresenceRecord, error)
	DeleteStaleBeforeFunc  func(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	UpsertCalls int
	DeleteCalls int
}

func (m *MockPresenceRepository) Upsert(ctx context.Context, userID, venueID uuid.UUID, update domain.PresenceUpdate) (*domain.PresenceRecord, error) {
	m.UpsertCalls++
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, userID, venueID, update)
	}
	return &domain.PresenceRecord{UserID: userID, VenueID: venueID}, nil
}

func (m *MockPresenceRepository) Delete(ctx context.Context, userID, venueID uuid.UUID) error {
	m.DeleteCalls++
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, venueID)
	}
	return nil
}

func (m *MockPresenceRepository) FindByUserAndVenue(ctx context.Context, userID, venueID uuid.UUID) (*domain.PresenceRecord, error) {
	if m.FindByUserAndVenueFunc != nil {
		return m.FindByUserAndVenueFunc(ctx, userID, venueID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockPresenceRepository) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*domain.PresenceRecord, error) {
	if m.ListByVenueFunc != nil {
		return m.ListByVenueFunc(ctx, venueID)
	}
	return nil, nil
}

func (m *MockPresenceRepository) DeleteStaleBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	if m.DeleteStaleBeforeFunc != nil {
		return m.DeleteStaleBeforeFunc(ctx, cutoff)
	}
	return nil, nil
}

// MockVenueClient is a mock implementation of VenueClient
type MockVenueClient struct {
	GetVenueFunc func(ctx context.Context, venueID uuid.UUID, token string) (*client.Venue, error)
}

func (m *MockVenueClient) GetVenue(ctx context.Context, venueID uuid.UUID, token string) (*client.Venue, error) {
	if m.GetVenueFunc != nil {
		return m.GetVenueFunc(ctx, venueID, token)
	}
	return &client.Venue{VenueID: venueID, Name: "Test Venue"}, nil
}

// MockUserClient is a mock implementation of UserClient
type MockUserClient struct {
	ValidateTokenFunc func(ctx context.Context, token string) (uuid.UUID, error)
	GetUserInfoFunc   func(ctx context.Context, userID uuid.UUID, token string) (*client.UserInfo, error)
	GetUsersInfoFunc  func(ctx context.Context, userIDs []uuid.UUID, token string) ([]client.UserInfo, error)
}

func (m *MockUserClient) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, token)
	}
	return uuid.Nil, nil
}

func (m *MockUserClient) GetUserInfo(ctx context.Context, userID uuid.UUID, token string) (*client.UserInfo, error) {
	if m.GetUserInfoFunc != nil {
		return m.GetUserInfoFunc(ctx, userID, token)
	}
	return &client.UserInfo{UserID: userID}, nil
}

func (m *MockUserClient) GetUsersInfo(ctx context.Context, userIDs []uuid.UUID, token string) ([]client.UserInfo, error) {
	if m.GetUsersInfoFunc != nil {
		return m.GetUsersInfoFunc(ctx, userIDs, token)
	}
	infos := make([]client.UserInfo, 0, len(userIDs))
	for _, id := range userIDs {
		infos = append(infos, client.UserInfo{UserID: id})
	}
	return infos, nil
}

// FakeVenueCountCache is an in-memory VenueCountCache with optional error
// injection, standing in for Redis in service tests
type FakeVenueCountCache struct {
	mu       sync.Mutex
	entries  map[uuid.UUID]*domain.VenueCountSnapshot
	GetErr   error
	SetErr   error
	DelErr   error
	GetCalls int
	SetCalls int
}

func NewFakeVenueCountCache() *FakeVenueCountCache {
	return &FakeVenueCountCache{entries: make(map[uuid.UUID]*domain.VenueCountSnapshot)}
}

func (f *FakeVenueCountCache) Get(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.entries[venueID], nil
}

func (f *FakeVenueCountCache) Set(ctx context.Context, snapshot *domain.VenueCountSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetCalls++
	if f.SetErr != nil {
		return f.SetErr
	}
	f.entries[snapshot.VenueID] = snapshot
	return nil
}

func (f *FakeVenueCountCache) Invalidate(ctx context.Context, venueID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DelErr != nil {
		return f.DelErr
	}
	delete(f.entries, venueID)
	return nil
}

// Entry returns the cached snapshot without counting as a Get
func (f *FakeVenueCountCache) Entry(venueID uuid.UUID) *domain.VenueCountSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[venueID]
}
