package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/repository"
)

// TestService manages test definitions.
type TestService struct {
	tests TestStore
	cache *TestCache
	log   zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(tests TestStore, cache *TestCache, log zerolog.Logger) *TestService {
	return &TestService{
		tests: tests,
		cache: cache,
		log:   log.With().Str("component", "test_service").Logger(),
	}
}

// CanManage reports whether a caller may see answers and edit the test.
func CanManage(t *model.Test, userID uuid.UUID, role model.Role) bool {
	return role == model.RoleAdmin || t.OwnerID == userID
}

// Create validates and stores a new scheduled test owned by ownerID.
func (s *TestService) Create(ctx context.Context, ownerID uuid.UUID, req *model.CreateTestRequest) (*model.Test, error) {
	t := &model.Test{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      model.TestStatusScheduled,
		OwnerID:     ownerID,
		Questions:   make([]model.Question, len(req.Questions)),
	}
	for i, q := range req.Questions {
		t.Questions[i] = model.Question{
			ID:      uuid.New(),
			Content: q.Content,
			Options: q.Options,
			Marks:   q.Marks,
		}
		if q.CorrectAnswerIndex != nil {
			t.Questions[i].CorrectAnswerIndex = *q.CorrectAnswerIndex
		} else {
			t.Questions[i].CorrectAnswerIndex = -1
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := s.tests.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}
	s.cache.WarmQuestions(ctx, t.ID, t.Questions)

	s.log.Info().
		Str("test_id", t.ID.String()).
		Str("owner_id", ownerID.String()).
		Int("questions", len(t.Questions)).
		Msg("Test created")
	return t, nil
}

// Get returns a test with its full question bank.
func (s *TestService) Get(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t, err := loadTest(ctx, s.tests, id)
	if err != nil {
		return nil, err
	}
	qs, err := s.cache.Questions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	t.Questions = qs
	return t, nil
}

// ListByOwner returns the tests created by ownerID without their questions.
func (s *TestService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Test, error) {
	tests, err := s.tests.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if tests == nil {
		tests = []model.Test{}
	}
	return tests, nil
}

// UpdateSchedule moves the window of a test that has not completed yet.
func (s *TestService) UpdateSchedule(ctx context.Context, id, userID uuid.UUID, role model.Role, start, end time.Time) (*model.Test, error) {
	t, err := loadTest(ctx, s.tests, id)
	if err != nil {
		return nil, err
	}
	if !CanManage(t, userID, role) {
		return nil, ErrNotTestOwner
	}
	if err := model.ValidateSchedule(start, end); err != nil {
		return nil, err
	}
	if t.Status == model.TestStatusCompleted {
		return nil, ErrInvalidState
	}

	switch err := s.tests.UpdateSchedule(ctx, id, start, end); {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrTestNotFound
	case errors.Is(err, repository.ErrStale):
		return nil, ErrInvalidState
	case err != nil:
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	t.StartTime, t.EndTime = start, end
	s.log.Info().Str("test_id", id.String()).Time("start", start).Time("end", end).Msg("Test rescheduled")
	return t, nil
}

// Delete removes a test together with its questions and responses.
func (s *TestService) Delete(ctx context.Context, id, userID uuid.UUID, role model.Role) error {
	t, err := loadTest(ctx, s.tests, id)
	if err != nil {
		return err
	}
	if !CanManage(t, userID, role) {
		return ErrNotTestOwner
	}

	if err := s.tests.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTestNotFound
		}
		return fmt.Errorf("delete test: %w", err)
	}
	s.cache.Evict(ctx, id)

	s.log.Info().Str("test_id", id.String()).Msg("Test deleted")
	return nil
}

func loadTest(ctx context.Context, tests TestStore, id uuid.UUID) (*model.Test, error) {
	t, err := tests.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	return t, nil
}
