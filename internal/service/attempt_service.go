package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/config"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/repository"
	"github.com/stemsi/assessment-backend/internal/scoring"
)

// AttemptService drives a student's attempt at a test: start, submit and
// reading back the graded result.
type AttemptService struct {
	tests     TestStore
	responses ResponseStore
	users     UserStore
	cache     *TestCache

	completeOnFirstSubmit bool
	trustClientStart      bool

	now func() time.Time
	log zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	tests TestStore,
	responses ResponseStore,
	users UserStore,
	cache *TestCache,
	cfg *config.Config,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		tests:                 tests,
		responses:             responses,
		users:                 users,
		cache:                 cache,
		completeOnFirstSubmit: cfg.CompleteOnFirstSubmit,
		trustClientStart:      cfg.TimeTakenSource == config.TimeTakenSourceClient,
		now:                   time.Now,
		log:                   log.With().Str("component", "attempt_service").Logger(),
	}
}

// SetClock replaces the time source.
func (s *AttemptService) SetClock(now func() time.Time) {
	s.now = now
}

// StartTest opens the caller's single attempt at a test. The first start of a
// scheduled test moves it to live.
func (s *AttemptService) StartTest(ctx context.Context, testID, studentID uuid.UUID) (*model.ResponseRecord, error) {
	t, err := loadTest(ctx, s.tests, testID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if t.Status != model.TestStatusScheduled && t.Status != model.TestStatusLive {
		return nil, ErrInvalidState
	}
	if !t.HasStarted(now) {
		return nil, ErrTooEarly
	}
	if t.HasEnded(now) {
		return nil, ErrExpired
	}

	if t.Status == model.TestStatusScheduled {
		moved, err := s.tests.TransitionStatus(ctx, testID, model.TestStatusScheduled, model.TestStatusLive)
		if err != nil {
			return nil, fmt.Errorf("activate test: %w", err)
		}
		if moved {
			s.log.Info().Str("test_id", testID.String()).Msg("Test is live")
		} else if err := s.ensureStatus(ctx, testID, model.TestStatusLive); err != nil {
			return nil, err
		}
	}

	rec := &model.ResponseRecord{
		TestID:    testID,
		StudentID: studentID,
		StartTime: now,
	}
	if err := s.responses.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyStarted
		}
		return nil, fmt.Errorf("create response: %w", err)
	}

	s.log.Info().
		Str("test_id", testID.String()).
		Str("student_id", studentID.String()).
		Msg("Attempt started")
	return rec, nil
}

// ensureStatus re-reads a test after a lost transition race; anything other
// than want means the test moved past it.
func (s *AttemptService) ensureStatus(ctx context.Context, testID uuid.UUID, want model.TestStatus) error {
	t, err := loadTest(ctx, s.tests, testID)
	if err != nil {
		return err
	}
	if t.Status != want {
		return ErrInvalidState
	}
	return nil
}

// SubmitTest grades the caller's answers and records them on their attempt.
func (s *AttemptService) SubmitTest(ctx context.Context, testID, studentID uuid.UUID, req *model.SubmitTestRequest) (*model.SubmitResult, error) {
	t, err := loadTest(ctx, s.tests, testID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if t.Status != model.TestStatusLive {
		return nil, ErrInvalidState
	}
	if t.HasEnded(now) {
		return nil, ErrExpired
	}

	rec, err := s.responses.GetByTestAndStudent(ctx, testID, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoActiveAttempt
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	if rec.Submitted() {
		return nil, ErrAlreadySubmitted
	}
	if err := checkDistinctQuestions(req.Answers); err != nil {
		return nil, err
	}

	questions, err := s.cache.Questions(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	graded, score := scoring.Grade(questions, req.Answers)

	start := rec.StartTime
	if s.trustClientStart && req.StartTime != nil {
		start = *req.StartTime
	}
	sub := model.Submission{
		Answers:          graded,
		Score:            score,
		SubmittedAt:      now,
		TimeTakenSeconds: secondsBetween(start, now),
	}

	switch err := s.responses.RecordSubmission(ctx, rec.ID, sub); {
	case errors.Is(err, repository.ErrStale):
		return nil, ErrAlreadySubmitted
	case errors.Is(err, repository.ErrTestClosed):
		// The test completed or expired between the checks above and the write.
		return nil, ErrInvalidState
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNoActiveAttempt
	case err != nil:
		return nil, fmt.Errorf("record submission: %w", err)
	}

	log := s.log.With().
		Str("test_id", testID.String()).
		Str("student_id", studentID.String()).
		Logger()
	log.Info().Int("score", score).Int64("time_taken", sub.TimeTakenSeconds).Msg("Attempt submitted")

	if s.completeOnFirstSubmit {
		// The grade is already persisted; a failed transition is left to the expiry sweep.
		moved, err := s.tests.TransitionStatus(ctx, testID, model.TestStatusLive, model.TestStatusCompleted)
		if err != nil {
			log.Error().Err(err).Msg("Failed to complete test after submission")
		} else if moved {
			log.Info().Msg("Test completed")
		}
	}

	return &model.SubmitResult{
		ResponseID:       rec.ID,
		Score:            score,
		MaxScore:         scoring.MaxScore(questions),
		TimeTakenSeconds: sub.TimeTakenSeconds,
		SubmittedAt:      now,
		Answers:          graded,
	}, nil
}

// GetResult returns the caller's own attempt with display names attached.
func (s *AttemptService) GetResult(ctx context.Context, testID, studentID uuid.UUID) (*model.TestResult, error) {
	t, err := loadTest(ctx, s.tests, testID)
	if err != nil {
		return nil, err
	}

	rec, err := s.responses.GetByTestAndStudent(ctx, testID, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}

	result := &model.TestResult{ResponseRecord: *rec, TestTitle: t.Title}
	u, err := s.users.GetByID(ctx, studentID)
	switch {
	case err == nil:
		result.StudentName = u.DisplayName()
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("get student: %w", err)
	}
	return result, nil
}

func checkDistinctQuestions(answers []model.SubmittedAnswer) error {
	seen := make(map[uuid.UUID]struct{}, len(answers))
	for _, a := range answers {
		if _, dup := seen[a.QuestionID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateAnswer, a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
	}
	return nil
}

// secondsBetween is the whole seconds from start to end, floored at zero.
func secondsBetween(start, end time.Time) int64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
