package model

import (
	"time"

	"github.com/google/uuid"
)

// ResponseRecord is one student's single attempt at one test.
// SubmittedAt, Score and TimeTakenSeconds are either all nil (in progress)
// or all set (graded).
type ResponseRecord struct {
	ID               uuid.UUID      `json:"id"`
	TestID           uuid.UUID      `json:"test_id"`
	StudentID        uuid.UUID      `json:"student_id"`
	StartTime        time.Time      `json:"start_time"`
	SubmittedAt      *time.Time     `json:"submitted_at,omitempty"`
	Score            *int           `json:"score,omitempty"`
	TimeTakenSeconds *int64         `json:"time_taken_seconds,omitempty"`
	Answers          []GradedAnswer `json:"answers"`
}

// Submitted reports whether the attempt has been graded.
func (r *ResponseRecord) Submitted() bool {
	return r.SubmittedAt != nil
}

// SubmittedAnswer is a student's selection for one question.
type SubmittedAnswer struct {
	QuestionID    uuid.UUID `json:"question_id" binding:"required"`
	SelectedIndex int       `json:"selected_index" binding:"min=0"`
}

// GradedAnswer is a submitted answer with the marks it earned.
type GradedAnswer struct {
	QuestionID    uuid.UUID `json:"question_id"`
	SelectedIndex int       `json:"selected_index"`
	MarksAwarded  int       `json:"marks_awarded"`
}

// Submission is the grading outcome written to a record in one update.
type Submission struct {
	Answers          []GradedAnswer
	Score            int
	SubmittedAt      time.Time
	TimeTakenSeconds int64
}

// SubmitTestRequest is the payload for submitting an attempt.
// StartTime is the client's own record of when it started; it is only
// trusted when the server is configured to do so.
type SubmitTestRequest struct {
	Answers   []SubmittedAnswer `json:"answers" binding:"omitempty,dive"`
	StartTime *time.Time        `json:"start_time" binding:"omitempty"`
}

// SubmitResult is returned to the student after grading.
type SubmitResult struct {
	ResponseID       uuid.UUID      `json:"response_id"`
	Score            int            `json:"score"`
	MaxScore         int            `json:"max_score"`
	TimeTakenSeconds int64          `json:"time_taken_seconds"`
	SubmittedAt      time.Time      `json:"submitted_at"`
	Answers          []GradedAnswer `json:"answers"`
}

// TestResult is a response record with display names attached.
type TestResult struct {
	ResponseRecord
	TestTitle   string `json:"test_title"`
	StudentName string `json:"student_name"`
}
