package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom-backend/internal/models"
)

func quizFixture() []models.QuizQuestion {
	opts := []string{"a", "b", "c", "d"}
	return []models.QuizQuestion{
		{Question: "Q1", Options: opts, CorrectAnswerIndex: 0},
		{Question: "Q2", Options: opts, CorrectAnswerIndex: 2},
		{Question: "Q3", Options: opts, CorrectAnswerIndex: 3},
	}
}

func TestScoreQuiz(t *testing.T) {
	tests := []struct {
		name    string
		answers []int
		correct int
		percent float64
		results []bool
	}{
		{"all correct", []int{0, 2, 3}, 3, 100, []bool{true, true, true}},
		{"one wrong", []int{0, 1, 3}, 2, 66.67, []bool{true, false, true}},
		{"missing answers count as wrong", []int{0}, 1, 33.33, []bool{true, false, false}},
		{"out of range is wrong", []int{-1, 7, 3}, 1, 33.33, []bool{false, false, true}},
		{"no answers", nil, 0, 0, []bool{false, false, false}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			score, err := ScoreQuiz(uuid.Nil, quizFixture(), tc.answers)
			require.NoError(t, err)
			assert.Equal(t, tc.correct, score.CorrectCount)
			assert.Equal(t, 3, score.Total)
			assert.InDelta(t, tc.percent, score.ScorePercent, 0.001)
			assert.Equal(t, tc.results, score.Results)
		})
	}
}

func TestScoreQuiz_TooManyAnswers(t *testing.T) {
	_, err := ScoreQuiz(uuid.Nil, quizFixture(), []int{0, 0, 0, 0})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "answers")
}

func TestScoreQuiz_EmptyQuiz(t *testing.T) {
	score, err := ScoreQuiz(uuid.Nil, []models.QuizQuestion{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, score.Total)
	assert.Equal(t, 0.0, score.ScorePercent)
	assert.NotNil(t, score.Results)
}
