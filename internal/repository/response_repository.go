package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/assessment-backend/internal/model"
)

// ResponseRepository handles response record data access.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Create inserts a new attempt. A second attempt for the same (test, student)
// pair yields ErrConflict.
func (r *ResponseRepository) Create(ctx context.Context, rec *model.ResponseRecord) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO responses (test_id, student_id, start_time, answers)
		 VALUES ($1, $2, $3, '[]'::jsonb)
		 ON CONFLICT (test_id, student_id) DO NOTHING
		 RETURNING id`,
		rec.TestID, rec.StudentID, rec.StartTime,
	).Scan(&rec.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	rec.Answers = []model.GradedAnswer{}
	return nil
}

// GetByTestAndStudent retrieves the attempt of one student at one test.
func (r *ResponseRepository) GetByTestAndStudent(ctx context.Context, testID, studentID uuid.UUID) (*model.ResponseRecord, error) {
	rec := &model.ResponseRecord{}
	var answers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, student_id, start_time, submitted_at, score, time_taken_seconds, answers
		 FROM responses
		 WHERE test_id = $1 AND student_id = $2`, testID, studentID,
	).Scan(&rec.ID, &rec.TestID, &rec.StudentID, &rec.StartTime,
		&rec.SubmittedAt, &rec.Score, &rec.TimeTakenSeconds, &answers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &rec.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return rec, nil
}

// RecordSubmission writes the grading outcome to a record that has not been
// submitted yet (otherwise ErrStale), while its test is still live and open at
// sub.SubmittedAt (otherwise ErrTestClosed). The test row is share-locked for
// the write, so a concurrent status change waits for it and a submission can
// never land after its test completed.
func (r *ResponseRepository) RecordSubmission(ctx context.Context, recordID uuid.UUID, sub model.Submission) error {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			status    model.TestStatus
			endTime   time.Time
			submitted bool
		)
		err := tx.QueryRow(ctx,
			`SELECT t.status, t.end_time, r.submitted_at IS NOT NULL
			 FROM responses r
			 JOIN tests t ON t.id = r.test_id
			 WHERE r.id = $1
			 FOR SHARE OF t`, recordID,
		).Scan(&status, &endTime, &submitted)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if submitted {
			return ErrStale
		}
		if status != model.TestStatusLive || sub.SubmittedAt.After(endTime) {
			return ErrTestClosed
		}

		tag, err := tx.Exec(ctx,
			`UPDATE responses
			 SET answers = $1, score = $2, submitted_at = $3, time_taken_seconds = $4
			 WHERE id = $5 AND submitted_at IS NULL`,
			answers, sub.Score, sub.SubmittedAt, sub.TimeTakenSeconds, recordID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStale
		}
		return nil
	})
}

// ListGradedByTest returns every submitted attempt at a test with the student's display name.
func (r *ResponseRepository) ListGradedByTest(ctx context.Context, testID uuid.UUID) ([]model.GradedResponse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.student_id, CONCAT_WS(' ', NULLIF(u.first_name, ''), NULLIF(u.last_name, '')),
		        r.score, r.time_taken_seconds, r.submitted_at
		 FROM responses r
		 LEFT JOIN users u ON u.id = r.student_id
		 WHERE r.test_id = $1 AND r.submitted_at IS NOT NULL
		 ORDER BY r.score DESC, r.time_taken_seconds ASC, r.submitted_at ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GradedResponse
	for rows.Next() {
		var g model.GradedResponse
		if err := rows.Scan(&g.StudentID, &g.StudentName, &g.Score, &g.TimeTakenSeconds, &g.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
