package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graded(name string, score int, taken int64) model.GradedResponse {
	submitted := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(taken) * time.Second)
	return model.GradedResponse{
		StudentID:        uuid.New(),
		StudentName:      name,
		Score:            &score,
		TimeTakenSeconds: &taken,
		SubmittedAt:      &submitted,
	}
}

func names(entries []model.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.StudentName
	}
	return out
}

func TestRankOrdersByScoreThenTime(t *testing.T) {
	in := []model.GradedResponse{
		graded("slow-high", 30, 900),
		graded("low", 10, 60),
		graded("fast-high", 30, 300),
		graded("mid", 20, 100),
	}

	entries := Rank(in)

	require.Len(t, entries, 4)
	assert.Equal(t, []string{"fast-high", "slow-high", "mid", "low"}, names(entries))
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, int64(300), entries[0].TimeTakenSeconds)
}

func TestRankDistinctScoresStrictlyDescending(t *testing.T) {
	in := []model.GradedResponse{
		graded("a", 5, 10), graded("b", 50, 10), graded("c", 25, 10), graded("d", 40, 10), graded("e", 1, 10),
	}

	entries := Rank(in)

	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i-1].Score, entries[i].Score)
	}
}

func TestRankFullTiesGetSequentialRanks(t *testing.T) {
	a, b := graded("a", 10, 60), graded("b", 10, 60)

	entries := Rank([]model.GradedResponse{a, b})

	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestRankSkipsUngraded(t *testing.T) {
	pending := model.GradedResponse{StudentID: uuid.New(), StudentName: "pending"}

	entries := Rank([]model.GradedResponse{pending, graded("done", 3, 30)})

	require.Len(t, entries, 1)
	assert.Equal(t, "done", entries[0].StudentName)
	assert.Equal(t, 1, entries[0].Rank)
}

func TestRankIsIdempotent(t *testing.T) {
	in := []model.GradedResponse{
		graded("a", 10, 60), graded("b", 10, 60), graded("c", 10, 30), graded("d", 7, 5),
	}
	reversed := []model.GradedResponse{in[3], in[2], in[1], in[0]}

	first := Rank(in)
	second := Rank(in)
	fromReversed := Rank(reversed)

	assert.Equal(t, first, second)
	assert.Equal(t, first, fromReversed)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}
