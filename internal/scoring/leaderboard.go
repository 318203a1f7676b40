package scoring

import (
	"sort"

	"github.com/stemsi/assessment-backend/internal/model"
)

// Rank orders graded responses by score (desc) then time taken (asc) and
// assigns 1-based ranks. Ties get distinct consecutive ranks. Responses without
// a score were never submitted and are left out.
//
// Remaining ties fall back to submission time and student id so that the same
// input always yields the same order regardless of how it was fetched.
func Rank(responses []model.GradedResponse) []model.LeaderboardEntry {
	graded := make([]model.GradedResponse, 0, len(responses))
	for _, r := range responses {
		if r.Score == nil {
			continue
		}
		graded = append(graded, r)
	}

	sort.SliceStable(graded, func(i, j int) bool {
		a, b := graded[i], graded[j]
		if *a.Score != *b.Score {
			return *a.Score > *b.Score
		}
		if ta, tb := timeTaken(a), timeTaken(b); ta != tb {
			return ta < tb
		}
		if a.SubmittedAt != nil && b.SubmittedAt != nil && !a.SubmittedAt.Equal(*b.SubmittedAt) {
			return a.SubmittedAt.Before(*b.SubmittedAt)
		}
		return a.StudentID.String() < b.StudentID.String()
	})

	entries := make([]model.LeaderboardEntry, len(graded))
	for i, r := range graded {
		entries[i] = model.LeaderboardEntry{
			Rank:             i + 1,
			StudentID:        r.StudentID,
			StudentName:      r.StudentName,
			Score:            *r.Score,
			TimeTakenSeconds: timeTaken(r),
		}
	}
	return entries
}

func timeTaken(r model.GradedResponse) int64 {
	if r.TimeTakenSeconds == nil {
		return 0
	}
	return *r.TimeTakenSeconds
}
