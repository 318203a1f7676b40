package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/assessment-backend/internal/model"
)

// TestStore persists test definitions. Implemented by repository.TestRepository
// and memory.TestStore.
type TestStore interface {
	Create(ctx context.Context, t *model.Test) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
	ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Test, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, start, end time.Time) error
	// TransitionStatus reports whether this call moved the test from from to to.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.TestStatus) (bool, error)
	ListOverdue(ctx context.Context, status model.TestStatus, now time.Time) ([]uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ResponseStore persists response records.
type ResponseStore interface {
	Create(ctx context.Context, rec *model.ResponseRecord) error
	GetByTestAndStudent(ctx context.Context, testID, studentID uuid.UUID) (*model.ResponseRecord, error)
	RecordSubmission(ctx context.Context, recordID uuid.UUID, sub model.Submission) error
	ListGradedByTest(ctx context.Context, testID uuid.UUID) ([]model.GradedResponse, error)
}

// UserStore reads user accounts.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}
