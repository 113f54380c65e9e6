package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom-backend/internal/database"
	"studyroom-backend/internal/models"
)

func TestEncodeArtifactsEmptySlices(t *testing.T) {
	m := &models.StudyMaterial{}
	m.EnsureNonNil()

	flashcards, questions, err := encodeArtifacts(m)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(flashcards))
	assert.Equal(t, "[]", string(questions))
}

func newTestRepo(t *testing.T) *StudyMaterialRepo {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping repository test - TEST_DATABASE_URL not set")
	}

	pool, err := database.NewPostgresPool(dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.RunMigrations(pool, nil))
	return NewStudyMaterialRepo(pool)
}

func TestStudyMaterialRepoRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	m := &models.StudyMaterial{
		UserID:          userID,
		Title:           "Photosynthesis",
		OriginalContent: "Plants convert light into chemical energy.",
		Flashcards:      []models.Flashcard{{Question: "What is produced?", Answer: "Glucose"}},
		QuizQuestions: []models.QuizQuestion{{
			Question:           "Where does it happen?",
			Options:            []string{"Chloroplast", "Nucleus", "Ribosome", "Vacuole"},
			CorrectAnswerIndex: 0,
		}},
		StudyGuide: "# Photosynthesis",
		Tags:       []string{"biology"},
	}
	require.NoError(t, repo.Create(ctx, m))
	t.Cleanup(func() { _ = repo.Delete(context.Background(), m.ID, userID) })

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Title, got.Title)
	assert.Equal(t, m.Flashcards, got.Flashcards)
	assert.Equal(t, m.QuizQuestions, got.QuizQuestions)
	assert.Equal(t, m.Tags, got.Tags)
	assert.Equal(t, models.CurrentSchemaVersion, got.SchemaVersion)

	got.Title = "Photosynthesis II"
	require.NoError(t, repo.Update(ctx, got))

	list, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Photosynthesis II", list[0].Title)
}

func TestStudyMaterialRepoOwnerScopedWrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := uuid.New()

	m := &models.StudyMaterial{UserID: owner, Title: "Cells", OriginalContent: "Cells are small."}
	require.NoError(t, repo.Create(ctx, m))
	t.Cleanup(func() { _ = repo.Delete(context.Background(), m.ID, owner) })

	stranger := *m
	stranger.UserID = uuid.New()
	stranger.Title = "Hijacked"
	err := repo.Update(ctx, &stranger)
	assert.True(t, errors.Is(err, pgx.ErrNoRows), "expected ErrNoRows, got %v", err)

	err = repo.Delete(ctx, m.ID, stranger.UserID)
	assert.True(t, errors.Is(err, pgx.ErrNoRows), "expected ErrNoRows, got %v", err)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cells", got.Title)
}

func TestStudyMaterialRepoGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}
