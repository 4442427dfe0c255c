package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-presence-api/internal/domain"
	"venue-presence-api/internal/dto"
)

type stubPresenceRepo struct {
	deleteStaleBeforeFunc func(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

func (s *stubPresenceRepo) Upsert(ctx context.Context, userID, venueID uuid.UUID, update domain.PresenceUpdate) (*domain.PresenceRecord, error) {
	return nil, errors.New("not implemented")
}

func (s *stubPresenceRepo) Delete(ctx context.Context, userID, venueID uuid.UUID) error {
	return errors.New("not implemented")
}

func (s *stubPresenceRepo) FindByUserAndVenue(ctx context.Context, userID, venueID uuid.UUID) (*domain.PresenceRecord, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPresenceRepo) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*domain.PresenceRecord, error) {
	return nil, nil
}

func (s *stubPresenceRepo) DeleteStaleBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	if s.deleteStaleBeforeFunc != nil {
		return s.deleteStaleBeforeFunc(ctx, cutoff)
	}
	return nil, nil
}

type stubPresenceService struct {
	refreshFunc  func(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error)
	refreshCalls []uuid.UUID
}

func (s *stubPresenceService) SetPresence(ctx context.Context, userID, venueID uuid.UUID, token string, req *dto.SetPresenceRequest) (*dto.PresenceResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *stubPresenceService) ClearPresence(ctx context.Context, userID, venueID uuid.UUID) error {
	return errors.New("not implemented")
}

func (s *stubPresenceService) GetVenuePresence(ctx context.Context, venueID uuid.UUID, token string) ([]*dto.PresenceSummary, error) {
	return nil, nil
}

func (s *stubPresenceService) GetVenueCounts(ctx context.Context, venueID uuid.UUID) (*dto.VenueCountsResponse, error) {
	return nil, nil
}

func (s *stubPresenceService) InvalidateVenueCounts(ctx context.Context, venueID uuid.UUID) error {
	return nil
}

func (s *stubPresenceService) RefreshVenueCounts(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error) {
	s.refreshCalls = append(s.refreshCalls, venueID)
	if s.refreshFunc != nil {
		return s.refreshFunc(ctx, venueID)
	}
	return &domain.VenueCountSnapshot{VenueID: venueID}, nil
}

func TestCleanupJob_RefreshesAffectedVenues(t *testing.T) {
	venue1 := uuid.New()
	venue2 := uuid.New()

	var gotCutoff time.Time
	repo := &stubPresenceRepo{
		deleteStaleBeforeFunc: func(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
			gotCutoff = cutoff
			return []uuid.UUID{venue1, venue2}, nil
		},
	}
	svc := &stubPresenceService{}

	job := NewCleanupJob(repo, svc, 12*time.Hour, zap.NewNop())
	job.Run()

	if len(svc.refreshCalls) != 2 {
		t.Fatalf("Expected 2 refreshed venues, got %d", len(svc.refreshCalls))
	}
	if svc.refreshCalls[0] != venue1 || svc.refreshCalls[1] != venue2 {
		t.Errorf("Unexpected refreshed venues: %v", svc.refreshCalls)
	}

	// Cutoff must be maxAge in the past
	wantCutoff := time.Now().UTC().Add(-12 * time.Hour)
	if gotCutoff.After(wantCutoff.Add(time.Minute)) || gotCutoff.Before(wantCutoff.Add(-time.Minute)) {
		t.Errorf("Unexpected cutoff: got %v, want about %v", gotCutoff, wantCutoff)
	}
}

func TestCleanupJob_NoStaleRecords(t *testing.T) {
	repo := &stubPresenceRepo{
		deleteStaleBeforeFunc: func(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
			return nil, nil
		},
	}
	svc := &stubPresenceService{}

	job := NewCleanupJob(repo, svc, time.Hour, zap.NewNop())
	job.Run()

	if len(svc.refreshCalls) != 0 {
		t.Errorf("Expected no refreshes, got %d", len(svc.refreshCalls))
	}
}

func TestCleanupJob_SweepFailureSkipsRefresh(t *testing.T) {
	repo := &stubPresenceRepo{
		deleteStaleBeforeFunc: func(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
			return nil, errors.New("deadlock detected")
		},
	}
	svc := &stubPresenceService{}

	job := NewCleanupJob(repo, svc, time.Hour, zap.NewNop())
	job.Run()

	if len(svc.refreshCalls) != 0 {
		t.Errorf("Expected no refreshes after sweep failure, got %d", len(svc.refreshCalls))
	}
}

func TestCleanupJob_RefreshFailureContinues(t *testing.T) {
	venue1 := uuid.New()
	venue2 := uuid.New()

	repo := &stubPresenceRepo{
		deleteStaleBeforeFunc: func(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
			return []uuid.UUID{venue1, venue2}, nil
		},
	}
	svc := &stubPresenceService{
		refreshFunc: func(ctx context.Context, venueID uuid.UUID) (*domain.VenueCountSnapshot, error) {
			if venueID == venue1 {
				return nil, errors.New("store unavailable")
			}
			return &domain.VenueCountSnapshot{VenueID: venueID}, nil
		},
	}

	job := NewCleanupJob(repo, svc, time.Hour, zap.NewNop())
	job.Run()

	// venue2 is still refreshed after venue1 fails
	if len(svc.refreshCalls) != 2 {
		t.Errorf("Expected both venues attempted, got %d", len(svc.refreshCalls))
	}
}
