package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/config"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// fakeClock is a settable time source shared by the services under test.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(t time.Time) { c.now = t }

type env struct {
	store       *memory.Store
	mr          *miniredis.Miniredis
	rdb         *redis.Client
	cache       *TestCache
	clock       *fakeClock
	tests       *TestService
	attempts    *AttemptService
	leaderboard *LeaderboardService
	instructor  uuid.UUID
}

func testConfig() *config.Config {
	return &config.Config{
		QuestionCacheTTL:      time.Hour,
		CompleteOnFirstSubmit: true,
		TimeTakenSource:       config.TimeTakenSourceServer,
	}
}

func newEnv(t *testing.T, mutate ...func(*config.Config)) *env {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memory.New()
	log := zerolog.Nop()
	cache := NewTestCache(rdb, store.Tests(), cfg, log)
	clock := &fakeClock{now: t0.Add(-time.Hour)}

	attempts := NewAttemptService(store.Tests(), store.Responses(), store.Users(), cache, cfg, log)
	attempts.SetClock(clock.Now)
	leaderboard := NewLeaderboardService(store.Tests(), store.Responses(), log)
	leaderboard.now = clock.Now

	return &env{
		store:       store,
		mr:          mr,
		rdb:         rdb,
		cache:       cache,
		clock:       clock,
		tests:       NewTestService(store.Tests(), cache, log),
		attempts:    attempts,
		leaderboard: leaderboard,
		instructor:  uuid.New(),
	}
}

func intPtr(i int) *int { return &i }

// createTest makes a one hour test starting at t0 with two questions worth 5 and 3.
func (e *env) createTest(t *testing.T) *model.Test {
	t.Helper()
	created, err := e.tests.Create(context.Background(), e.instructor, &model.CreateTestRequest{
		Title:     "Chemistry midterm",
		StartTime: t0,
		EndTime:   t0.Add(time.Hour),
		Questions: []model.CreateQuestionRequest{
			{Content: "H2O is", Options: []string{"water", "salt", "air"}, CorrectAnswerIndex: intPtr(0), Marks: 5},
			{Content: "NaCl is", Options: []string{"water", "salt"}, CorrectAnswerIndex: intPtr(1), Marks: 3},
		},
	})
	require.NoError(t, err)
	return created
}

func (e *env) student(t *testing.T, first, last string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	e.store.PutUser(model.User{ID: id, FirstName: first, LastName: last, Role: model.RoleStudent})
	return id
}

func answers(tt *model.Test, selected ...int) []model.SubmittedAnswer {
	out := make([]model.SubmittedAnswer, len(selected))
	for i, sel := range selected {
		out[i] = model.SubmittedAnswer{QuestionID: tt.Questions[i].ID, SelectedIndex: sel}
	}
	return out
}

// complete walks a scheduled test through live to completed.
func (e *env) complete(t *testing.T, id uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	moved, err := e.store.Tests().TransitionStatus(ctx, id, model.TestStatusScheduled, model.TestStatusLive)
	require.NoError(t, err)
	require.True(t, moved)
	moved, err = e.store.Tests().TransitionStatus(ctx, id, model.TestStatusLive, model.TestStatusCompleted)
	require.NoError(t, err)
	require.True(t, moved)
}

func statusOf(t *testing.T, e *env, id uuid.UUID) model.TestStatus {
	t.Helper()
	got, err := e.store.Tests().GetByID(context.Background(), id)
	require.NoError(t, err)
	return got.Status
}
