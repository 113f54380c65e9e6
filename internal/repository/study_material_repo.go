package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyroom-backend/internal/models"
)

type StudyMaterialRepo struct {
	pool *pgxpool.Pool
}

func NewStudyMaterialRepo(pool *pgxpool.Pool) *StudyMaterialRepo {
	return &StudyMaterialRepo{pool: pool}
}

const studyMaterialColumns = `id, user_id, title, original_content, flashcards, quiz_questions,
	study_guide, tags, schema_version, created_at, updated_at`

// Create inserts the record and its generated artifacts in one statement.
func (r *StudyMaterialRepo) Create(ctx context.Context, m *models.StudyMaterial) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.EnsureNonNil()
	if m.SchemaVersion == 0 {
		m.SchemaVersion = models.CurrentSchemaVersion
	}

	flashcards, questions, err := encodeArtifacts(m)
	if err != nil {
		return err
	}

	query := `INSERT INTO study_materials (id, user_id, title, original_content, flashcards, quiz_questions, study_guide, tags, schema_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		m.ID, m.UserID, m.Title, m.OriginalContent, flashcards, questions,
		m.StudyGuide, m.Tags, m.SchemaVersion,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *StudyMaterialRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudyMaterial, error) {
	query := `SELECT ` + studyMaterialColumns + ` FROM study_materials WHERE id = $1`
	return scanStudyMaterial(r.pool.QueryRow(ctx, query, id))
}

// ListByUser returns the user's records newest first. id breaks ties so the
// order is stable between calls.
func (r *StudyMaterialRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyMaterial, error) {
	query := `SELECT ` + studyMaterialColumns + ` FROM study_materials
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	materials := []*models.StudyMaterial{}
	for rows.Next() {
		m, err := scanStudyMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// Update overwrites every mutable column of the owner's record. The owner
// column is part of the filter and never written.
func (r *StudyMaterialRepo) Update(ctx context.Context, m *models.StudyMaterial) error {
	m.EnsureNonNil()

	flashcards, questions, err := encodeArtifacts(m)
	if err != nil {
		return err
	}

	query := `UPDATE study_materials SET title = $1, original_content = $2, flashcards = $3,
		quiz_questions = $4, study_guide = $5, tags = $6, schema_version = $7, updated_at = NOW()
		WHERE id = $8 AND user_id = $9 RETURNING updated_at`

	return r.pool.QueryRow(ctx, query,
		m.Title, m.OriginalContent, flashcards, questions, m.StudyGuide, m.Tags,
		m.SchemaVersion, m.ID, m.UserID,
	).Scan(&m.UpdatedAt)
}

func (r *StudyMaterialRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM study_materials WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func encodeArtifacts(m *models.StudyMaterial) ([]byte, []byte, error) {
	flashcards, err := json.Marshal(m.Flashcards)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode flashcards: %w", err)
	}
	questions, err := json.Marshal(m.QuizQuestions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode quiz questions: %w", err)
	}
	return flashcards, questions, nil
}

func scanStudyMaterial(row pgx.Row) (*models.StudyMaterial, error) {
	m := &models.StudyMaterial{}
	var flashcards, questions []byte

	err := row.Scan(
		&m.ID, &m.UserID, &m.Title, &m.OriginalContent, &flashcards, &questions,
		&m.StudyGuide, &m.Tags, &m.SchemaVersion, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(flashcards, &m.Flashcards); err != nil {
		return nil, fmt.Errorf("failed to decode flashcards for %s: %w", m.ID, err)
	}
	if err := json.Unmarshal(questions, &m.QuizQuestions); err != nil {
		return nil, fmt.Errorf("failed to decode quiz questions for %s: %w", m.ID, err)
	}

	m.EnsureNonNil()
	return m, nil
}
