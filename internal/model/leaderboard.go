package model

import (
	"time"

	"github.com/google/uuid"
)

// GradedResponse is the projection of a response record the ranker needs.
type GradedResponse struct {
	StudentID        uuid.UUID
	StudentName      string
	Score            *int
	TimeTakenSeconds *int64
	SubmittedAt      *time.Time
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank             int       `json:"rank"`
	StudentID        uuid.UUID `json:"student_id"`
	StudentName      string    `json:"student_name"`
	Score            int       `json:"score"`
	TimeTakenSeconds int64     `json:"time_taken_seconds"`
}

// Leaderboard is the ranked view over a completed test.
type Leaderboard struct {
	TestID      uuid.UUID          `json:"test_id"`
	TestTitle   string             `json:"test_title"`
	Entries     []LeaderboardEntry `json:"leaderboard"`
	GeneratedAt time.Time          `json:"generated_at"`
}
