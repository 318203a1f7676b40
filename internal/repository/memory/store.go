// Package memory provides in-process implementations of the repositories,
// used for tests and for STORE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/repository"
)

type attemptKey struct {
	testID    uuid.UUID
	studentID uuid.UUID
}

// Store holds every table behind a single lock so that conditional updates
// are atomic the same way a single SQL statement is.
type Store struct {
	mu        sync.RWMutex
	tests     map[uuid.UUID]model.Test
	responses map[uuid.UUID]model.ResponseRecord
	attempts  map[attemptKey]uuid.UUID
	users     map[uuid.UUID]model.User
	now       func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tests:     make(map[uuid.UUID]model.Test),
		responses: make(map[uuid.UUID]model.ResponseRecord),
		attempts:  make(map[attemptKey]uuid.UUID),
		users:     make(map[uuid.UUID]model.User),
		now:       time.Now,
	}
}

// Tests returns the test repository view of the store.
func (s *Store) Tests() *TestStore { return &TestStore{s: s} }

// Responses returns the response repository view of the store.
func (s *Store) Responses() *ResponseStore { return &ResponseStore{s: s} }

// Users returns the user repository view of the store.
func (s *Store) Users() *UserStore { return &UserStore{s: s} }

// PutUser inserts or replaces a user. The user service owns accounts, so
// this is only used for seeding.
func (s *Store) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func cloneTest(t model.Test) model.Test {
	t.Questions = slices.Clone(t.Questions)
	for i := range t.Questions {
		t.Questions[i].Options = slices.Clone(t.Questions[i].Options)
	}
	return t
}

func cloneRecord(r model.ResponseRecord) model.ResponseRecord {
	r.Answers = slices.Clone(r.Answers)
	if r.Answers == nil {
		r.Answers = []model.GradedAnswer{}
	}
	return r
}

// TestStore is the in-memory test repository.
type TestStore struct {
	s *Store
}

func (r *TestStore) Create(_ context.Context, t *model.Test) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if _, ok := r.s.tests[t.ID]; ok {
		return repository.ErrConflict
	}
	now := r.s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	r.s.tests[t.ID] = cloneTest(*t)
	return nil
}

// GetByID returns the test without questions, matching the Postgres repository.
func (r *TestStore) GetByID(_ context.Context, id uuid.UUID) (*model.Test, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.Questions = nil
	return &t, nil
}

func (r *TestStore) ListQuestions(_ context.Context, testID uuid.UUID) ([]model.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tests[testID]
	if !ok {
		return nil, nil
	}
	return cloneTest(t).Questions, nil
}

func (r *TestStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Test, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []model.Test
	for _, t := range r.s.tests {
		if t.OwnerID == ownerID {
			t.Questions = nil
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *TestStore) UpdateSchedule(_ context.Context, id uuid.UUID, start, end time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Status == model.TestStatusCompleted {
		return repository.ErrStale
	}
	t.StartTime, t.EndTime = start, end
	t.UpdatedAt = r.s.now()
	r.s.tests[id] = t
	return nil
}

func (r *TestStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to model.TestStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, from, to)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tests[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = r.s.now()
	r.s.tests[id] = t
	return true, nil
}

func (r *TestStore) ListOverdue(_ context.Context, status model.TestStatus, now time.Time) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var ids []uuid.UUID
	for id, t := range r.s.tests {
		if t.Status == status && t.EndTime.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Delete removes the test and every attempt at it.
func (r *TestStore) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.tests, id)
	for key, recID := range r.s.attempts {
		if key.testID == id {
			delete(r.s.attempts, key)
			delete(r.s.responses, recID)
		}
	}
	return nil
}

// ResponseStore is the in-memory response repository.
type ResponseStore struct {
	s *Store
}

func (r *ResponseStore) Create(_ context.Context, rec *model.ResponseRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := attemptKey{testID: rec.TestID, studentID: rec.StudentID}
	if _, ok := r.s.attempts[key]; ok {
		return repository.ErrConflict
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.Answers = []model.GradedAnswer{}
	r.s.attempts[key] = rec.ID
	r.s.responses[rec.ID] = cloneRecord(*rec)
	return nil
}

func (r *ResponseStore) GetByTestAndStudent(_ context.Context, testID, studentID uuid.UUID) (*model.ResponseRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.attempts[attemptKey{testID: testID, studentID: studentID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rec := cloneRecord(r.s.responses[id])
	return &rec, nil
}

func (r *ResponseStore) RecordSubmission(_ context.Context, recordID uuid.UUID, sub model.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.responses[recordID]
	if !ok {
		return repository.ErrNotFound
	}
	if rec.Submitted() {
		return repository.ErrStale
	}
	// Checked under the same lock as TransitionStatus, so nothing lands after completion.
	t, ok := r.s.tests[rec.TestID]
	if !ok || t.Status != model.TestStatusLive || sub.SubmittedAt.After(t.EndTime) {
		return repository.ErrTestClosed
	}
	submittedAt, score, taken := sub.SubmittedAt, sub.Score, sub.TimeTakenSeconds
	rec.Answers = slices.Clone(sub.Answers)
	rec.SubmittedAt = &submittedAt
	rec.Score = &score
	rec.TimeTakenSeconds = &taken
	r.s.responses[recordID] = rec
	return nil
}

func (r *ResponseStore) ListGradedByTest(_ context.Context, testID uuid.UUID) ([]model.GradedResponse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []model.GradedResponse
	for key, id := range r.s.attempts {
		if key.testID != testID {
			continue
		}
		rec := r.s.responses[id]
		if !rec.Submitted() {
			continue
		}
		g := model.GradedResponse{
			StudentID:        rec.StudentID,
			Score:            rec.Score,
			TimeTakenSeconds: rec.TimeTakenSeconds,
			SubmittedAt:      rec.SubmittedAt,
		}
		if u, ok := r.s.users[rec.StudentID]; ok {
			g.StudentName = u.DisplayName()
		}
		out = append(out, g)
	}
	return out, nil
}

// UserStore is the in-memory user repository.
type UserStore struct {
	s *Store
}

func (r *UserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}
