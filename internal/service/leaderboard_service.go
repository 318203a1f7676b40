package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/scoring"
)

// LeaderboardService ranks the graded responses of completed tests. Every
// call reads the store, so renamed students and records graded up to the
// moment of completion are always reflected.
type LeaderboardService struct {
	tests     TestStore
	responses ResponseStore
	now       func() time.Time
	log       zerolog.Logger
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(tests TestStore, responses ResponseStore, log zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{
		tests:     tests,
		responses: responses,
		now:       time.Now,
		log:       log.With().Str("component", "leaderboard_service").Logger(),
	}
}

// Rank returns the leaderboard of a completed test.
func (s *LeaderboardService) Rank(ctx context.Context, testID uuid.UUID) (*model.Leaderboard, error) {
	t, err := loadTest(ctx, s.tests, testID)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TestStatusCompleted {
		return nil, ErrInvalidState
	}

	graded, err := s.responses.ListGradedByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list graded responses: %w", err)
	}

	lb := &model.Leaderboard{
		TestID:      t.ID,
		TestTitle:   t.Title,
		Entries:     scoring.Rank(graded),
		GeneratedAt: s.now().UTC(),
	}
	s.log.Debug().Str("test_id", testID.String()).Int("entries", len(lb.Entries)).Msg("Leaderboard computed")
	return lb, nil
}
