package services

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"studyroom-backend/internal/models"
)

// ScoreQuiz grades one chosen option index per question. Missing answers and
// indexes outside the question's options count as wrong. More answers than
// questions is a validation error.
func ScoreQuiz(materialID uuid.UUID, questions []models.QuizQuestion, answers []int) (*models.QuizScore, error) {
	if len(answers) > len(questions) {
		return nil, &ValidationError{Fields: map[string]string{
			"answers": fmt.Sprintf("got %d answers for %d questions", len(answers), len(questions)),
		}}
	}

	score := &models.QuizScore{
		StudyMaterialID: materialID,
		Total:           len(questions),
		Results:         make([]bool, len(questions)),
	}

	for i, q := range questions {
		if i >= len(answers) {
			continue
		}
		if answers[i] == q.CorrectAnswerIndex && answers[i] >= 0 && answers[i] < len(q.Options) {
			score.Results[i] = true
			score.CorrectCount++
		}
	}

	if score.Total > 0 {
		pct := float64(score.CorrectCount) / float64(score.Total) * 100
		score.ScorePercent = math.Round(pct*100) / 100
	}

	return score, nil
}
