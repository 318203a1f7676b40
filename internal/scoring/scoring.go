// Package scoring grades submitted answers and ranks graded attempts.
// Everything here is pure: no I/O, no clocks, integer arithmetic only.
package scoring

import (
	"github.com/google/uuid"
	"github.com/stemsi/assessment-backend/internal/model"
)

// Grade awards each answer the question's marks when the selected index is
// the correct one, and 0 otherwise. Answers for question ids missing from the
// bank are kept with 0 marks. The returned total always equals the sum of
// MarksAwarded.
func Grade(questions []model.Question, answers []model.SubmittedAnswer) ([]model.GradedAnswer, int) {
	bank := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		bank[questions[i].ID] = &questions[i]
	}

	graded := make([]model.GradedAnswer, len(answers))
	total := 0
	for i, a := range answers {
		awarded := 0
		if q, ok := bank[a.QuestionID]; ok && a.SelectedIndex == q.CorrectAnswerIndex {
			awarded = q.Marks
		}
		graded[i] = model.GradedAnswer{
			QuestionID:    a.QuestionID,
			SelectedIndex: a.SelectedIndex,
			MarksAwarded:  awarded,
		}
		total += awarded
	}
	return graded, total
}

// MaxScore is the score of a fully correct attempt.
func MaxScore(questions []model.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Marks
	}
	return total
}
