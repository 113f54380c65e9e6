package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyroom-backend/internal/logger"
	"studyroom-backend/internal/models"
)

// StudyMaterialRepository is the persistence the service needs.
// repository.StudyMaterialRepo implements it.
type StudyMaterialRepository interface {
	Create(ctx context.Context, m *models.StudyMaterial) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StudyMaterial, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyMaterial, error)
	Update(ctx context.Context, m *models.StudyMaterial) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// ContentAggregator produces the generated artifacts for a block of text.
type ContentAggregator interface {
	Generate(ctx context.Context, content string, onDone func(ArtifactOutcome)) AggregateResult
}

type StudyMaterialService struct {
	repo       StudyMaterialRepository
	aggregator ContentAggregator
	extractor  *FileExtractService
	publisher  Publisher
	validate   *validator.Validate
	log        *logger.Logger
}

func NewStudyMaterialService(
	repo StudyMaterialRepository,
	aggregator ContentAggregator,
	extractor *FileExtractService,
	publisher Publisher,
	log *logger.Logger,
) *StudyMaterialService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &StudyMaterialService{
		repo:       repo,
		aggregator: aggregator,
		extractor:  extractor,
		publisher:  publisher,
		validate:   newValidator(),
		log:        log,
	}
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Create validates the request, runs the generation pipeline and stores the
// result. Generation never fails the request: artifacts that could not be
// produced are stored empty.
func (s *StudyMaterialService) Create(ctx context.Context, userID uuid.UUID, req models.CreateStudyMaterialRequest) (*models.StudyMaterial, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.OriginalContent = strings.TrimSpace(req.OriginalContent)
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	result := s.aggregator.Generate(ctx, req.OriginalContent, func(o ArtifactOutcome) {
		s.publisher.PublishUpdate(ctx, userID, models.WSMessage{
			Type: EventGenerationProgress,
			Payload: models.GenerationProgress{
				Artifact:  string(o.Artifact),
				Succeeded: o.Succeeded(),
				Items:     o.Items,
			},
		})
	})

	return s.Save(ctx, userID, req, result.Content)
}

// CreateFromFile extracts the text of an uploaded file and creates a study
// material from it.
func (s *StudyMaterialService) CreateFromFile(ctx context.Context, userID uuid.UUID, title string, tags models.TagList, filename string, data []byte) (*models.StudyMaterial, error) {
	if strings.TrimSpace(title) == "" {
		base := filepath.Base(filename)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	text, err := s.extractor.Extract(filename, data)
	if err != nil {
		return nil, err
	}

	return s.Create(ctx, userID, models.CreateStudyMaterialRequest{
		Title:           title,
		OriginalContent: text,
		Tags:            tags,
	})
}

// Save persists a new record with already generated content.
func (s *StudyMaterialService) Save(ctx context.Context, userID uuid.UUID, req models.CreateStudyMaterialRequest, generated models.GeneratedContent) (*models.StudyMaterial, error) {
	m := &models.StudyMaterial{
		ID:              uuid.New(),
		UserID:          userID,
		Title:           strings.TrimSpace(req.Title),
		OriginalContent: strings.TrimSpace(req.OriginalContent),
		Flashcards:      generated.Flashcards,
		QuizQuestions:   generated.QuizQuestions,
		StudyGuide:      generated.StudyGuide,
		Tags:            models.NormalizeTags(req.Tags),
		SchemaVersion:   models.CurrentSchemaVersion,
	}
	m.EnsureNonNil()

	if err := s.validateStruct(m); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create study material: %w", err)
	}

	s.log.Info("study material created",
		"study_material_id", m.ID,
		"user_id", userID,
		"flashcards", len(m.Flashcards),
		"quiz_questions", len(m.QuizQuestions),
		"study_guide_chars", len(m.StudyGuide),
	)
	s.publisher.PublishUpdate(ctx, userID, models.WSMessage{
		Type:    EventStudyMaterialCreated,
		Payload: models.StudyMaterialEvent{StudyMaterialID: m.ID, Title: m.Title},
	})

	return m, nil
}

// List returns the user's study materials, newest first.
func (s *StudyMaterialService) List(ctx context.Context, userID uuid.UUID) ([]models.StudyMaterialListing, error) {
	materials, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list study materials: %w", err)
	}

	listings := make([]models.StudyMaterialListing, 0, len(materials))
	for _, m := range materials {
		m.EnsureNonNil()
		listings = append(listings, m.Listing())
	}
	return listings, nil
}

// Get returns the record if it exists and belongs to the user.
func (s *StudyMaterialService) Get(ctx context.Context, id, userID uuid.UUID) (*models.StudyMaterial, error) {
	m, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Message: "Study material not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load study material: %w", err)
	}
	if m.UserID != userID {
		return nil, &ForbiddenError{Message: "You do not have access to this study material"}
	}

	m.EnsureNonNil()
	return m, nil
}

// Update overwrites every field present in req. Concurrent updates are last
// write wins.
func (s *StudyMaterialService) Update(ctx context.Context, id, userID uuid.UUID, req models.UpdateStudyMaterialRequest) (*models.StudyMaterial, error) {
	m, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	fieldErrors := make(map[string]string)

	if req.Title != nil {
		m.Title = strings.TrimSpace(*req.Title)
	}
	if req.OriginalContent != nil {
		m.OriginalContent = strings.TrimSpace(*req.OriginalContent)
	}
	if req.Tags != nil {
		m.Tags = models.NormalizeTags(*req.Tags)
	}
	if req.Flashcards != nil {
		if err := validateFlashcards(*req.Flashcards); err != nil {
			fieldErrors["flashcards"] = err.Error()
		}
		m.Flashcards = *req.Flashcards
	}
	if req.QuizQuestions != nil {
		if err := validateQuizQuestions(*req.QuizQuestions); err != nil {
			fieldErrors["quiz_questions"] = err.Error()
		}
		m.QuizQuestions = *req.QuizQuestions
	}
	if req.StudyGuide != nil {
		m.StudyGuide = *req.StudyGuide
	}

	if err := s.validateStruct(m); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			for k, v := range ve.Fields {
				fieldErrors[k] = v
			}
		} else {
			return nil, err
		}
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	m.EnsureNonNil()
	if err := s.repo.Update(ctx, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Study material not found"}
		}
		return nil, fmt.Errorf("failed to update study material: %w", err)
	}

	s.publisher.PublishUpdate(ctx, userID, models.WSMessage{
		Type:    EventStudyMaterialUpdated,
		Payload: models.StudyMaterialEvent{StudyMaterialID: m.ID, Title: m.Title},
	})

	return m, nil
}

func (s *StudyMaterialService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Message: "Study material not found"}
		}
		return fmt.Errorf("failed to delete study material: %w", err)
	}

	s.log.Info("study material deleted", "study_material_id", id, "user_id", userID)
	s.publisher.PublishUpdate(ctx, userID, models.WSMessage{
		Type:    EventStudyMaterialDeleted,
		Payload: models.StudyMaterialEvent{StudyMaterialID: id},
	})

	return nil
}

// ScoreQuiz grades the owner's answers against the stored quiz.
func (s *StudyMaterialService) ScoreQuiz(ctx context.Context, id, userID uuid.UUID, req models.ScoreQuizRequest) (*models.QuizScore, error) {
	m, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return ScoreQuiz(m.ID, m.QuizQuestions, req.Answers)
}

func (s *StudyMaterialService) validateStruct(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
