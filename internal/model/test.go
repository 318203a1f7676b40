package model

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// TestStatus enumerates the lifecycle states of a test.
type TestStatus string

const (
	TestStatusScheduled TestStatus = "scheduled"
	TestStatusLive      TestStatus = "live"
	TestStatusCompleted TestStatus = "completed"
)

// statusOrder positions each state on the forward-only lifecycle.
var statusOrder = map[TestStatus]int{
	TestStatusScheduled: 0,
	TestStatusLive:      1,
	TestStatusCompleted: 2,
}

// Valid reports whether s is a known status.
func (s TestStatus) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// CanTransitionTo reports whether next is the single forward step after s.
// completed is terminal.
func (s TestStatus) CanTransitionTo(next TestStatus) bool {
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

// Test is a timed test definition. Questions carry correct answers and must
// never be returned to students as-is; use Paper for that.
type Test struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Status      TestStatus `json:"status"`
	Questions   []Question `json:"questions"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Question is a single multiple-choice question.
type Question struct {
	ID                 uuid.UUID `json:"id"`
	Content            string    `json:"content"`
	Options            []string  `json:"options"`
	CorrectAnswerIndex int       `json:"correct_answer_index"`
	Marks              int       `json:"marks"`
}

// Duration is the length of the test window.
func (t *Test) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// DurationMinutes is the window length rounded to whole minutes.
func (t *Test) DurationMinutes() int {
	return int(math.Round(t.Duration().Minutes()))
}

// HasStarted reports whether the window has opened at now.
func (t *Test) HasStarted(now time.Time) bool {
	return !now.Before(t.StartTime)
}

// HasEnded reports whether now is past the end of the window.
func (t *Test) HasEnded(now time.Time) bool {
	return now.After(t.EndTime)
}

// ValidationError describes a single invalid field of a test definition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidateSchedule checks the window invariant start < end.
func ValidateSchedule(start, end time.Time) error {
	if start.IsZero() {
		return &ValidationError{Field: "start_time", Reason: "is required"}
	}
	if !start.Before(end) {
		return &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	return nil
}

// Validate checks every invariant of a test definition.
func (t *Test) Validate() error {
	if t.Title == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if err := ValidateSchedule(t.StartTime, t.EndTime); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", t.Status)}
	}
	if len(t.Questions) == 0 {
		return &ValidationError{Field: "questions", Reason: "at least one question is required"}
	}

	seen := make(map[uuid.UUID]struct{}, len(t.Questions))
	for i, q := range t.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if _, dup := seen[q.ID]; dup {
			return &ValidationError{Field: field + ".id", Reason: "duplicate question id"}
		}
		seen[q.ID] = struct{}{}
		if err := q.validate(field); err != nil {
			return err
		}
	}
	return nil
}

func (q *Question) validate(field string) error {
	if q.Content == "" {
		return &ValidationError{Field: field + ".content", Reason: "is required"}
	}
	if len(q.Options) < 2 {
		return &ValidationError{Field: field + ".options", Reason: "at least two options are required"}
	}
	for j, opt := range q.Options {
		if opt == "" {
			return &ValidationError{Field: fmt.Sprintf("%s.options[%d]", field, j), Reason: "must not be empty"}
		}
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return &ValidationError{Field: field + ".correct_answer_index", Reason: "must index into options"}
	}
	if q.Marks <= 0 {
		return &ValidationError{Field: field + ".marks", Reason: "must be positive"}
	}
	return nil
}

// Paper returns the student-facing view of the test with correct answers removed.
func (t *Test) Paper() TestPaper {
	questions := make([]PaperQuestion, len(t.Questions))
	for i, q := range t.Questions {
		questions[i] = PaperQuestion{
			ID:      q.ID,
			Content: q.Content,
			Options: q.Options,
			Marks:   q.Marks,
		}
	}
	return TestPaper{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		StartTime:       t.StartTime,
		EndTime:         t.EndTime,
		DurationMinutes: t.DurationMinutes(),
		Status:          t.Status,
		Questions:       questions,
	}
}

// TestPaper is a test as shown to students (no correct answers).
type TestPaper struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Status          TestStatus      `json:"status"`
	Questions       []PaperQuestion `json:"questions"`
}

// PaperQuestion is a question without its correct answer.
type PaperQuestion struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
	Options []string  `json:"options"`
	Marks   int       `json:"marks"`
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Title       string                  `json:"title" binding:"required,min=3,max=255"`
	Description string                  `json:"description" binding:"omitempty,max=5000"`
	StartTime   time.Time               `json:"start_time" binding:"required"`
	EndTime     time.Time               `json:"end_time" binding:"required,gtfield=StartTime"`
	Questions   []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// CreateQuestionRequest is a single question inside CreateTestRequest.
type CreateQuestionRequest struct {
	Content            string   `json:"content" binding:"required,min=1,max=2000"`
	Options            []string `json:"options" binding:"required,min=2,dive,required,max=500"`
	CorrectAnswerIndex *int     `json:"correct_answer_index" binding:"required,min=0"`
	Marks              int      `json:"marks" binding:"required,min=1"`
}

// UpdateScheduleRequest is the payload for moving a test's window.
type UpdateScheduleRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
}
