package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/assessment-backend/internal/model"
)

// TestRepository handles test definition data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, title, description, start_time, end_time, status, owner_id, created_at, updated_at`

func scanTest(row pgx.Row, t *model.Test) error {
	return row.Scan(&t.ID, &t.Title, &t.Description, &t.StartTime, &t.EndTime,
		&t.Status, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
}

// Create inserts a test and its questions in one transaction.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO tests (title, description, start_time, end_time, status, owner_id)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at, updated_at`,
			t.Title, t.Description, t.StartTime, t.EndTime, t.Status, t.OwnerID,
		).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert test: %w", err)
		}

		batch := &pgx.Batch{}
		for i, q := range t.Questions {
			batch.Queue(
				`INSERT INTO questions (id, test_id, content, options, correct_answer_index, marks, order_num)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				q.ID, t.ID, q.Content, q.Options, q.CorrectAnswerIndex, q.Marks, i,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a test without its questions.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id), t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListQuestions retrieves a test's questions in their original order.
func (r *TestRepository) ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, options, correct_answer_index, marks
		 FROM questions WHERE test_id = $1
		 ORDER BY order_num`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Content, &q.Options, &q.CorrectAnswerIndex, &q.Marks); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListByOwner retrieves all tests created by ownerID, newest first.
func (r *TestRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := scanTest(rows, &t); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// UpdateSchedule moves a test's window unless it has already completed.
func (r *TestRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tests SET start_time = $1, end_time = $2, updated_at = NOW()
		 WHERE id = $3 AND status <> $4`,
		start, end, id, model.TestStatusCompleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, id)
	}
	return nil
}

// TransitionStatus moves a test from one status to another only if it is
// still in from. It reports whether this call performed the transition.
// Only single forward steps are accepted.
func (r *TestRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.TestStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE tests SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListOverdue returns ids of tests in status whose window ended before now.
func (r *TestRepository) ListOverdue(ctx context.Context, status model.TestStatus, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM tests WHERE status = $1 AND end_time < $2`, status, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a test. Questions and responses go with it (ON DELETE CASCADE).
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TestRepository) missingOrStale(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStale
}
