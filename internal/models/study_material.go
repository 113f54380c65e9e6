package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CurrentSchemaVersion tags the shape of the generated artifacts stored on a
// study material. Bump it when Flashcard or QuizQuestion gain fields.
const CurrentSchemaVersion = 1

// QuizOptionCount is the number of options every quiz question carries.
const QuizOptionCount = 4

type StudyMaterial struct {
	ID              uuid.UUID      `json:"id"`
	UserID          uuid.UUID      `json:"user_id"`
	Title           string         `json:"title" validate:"required,max=200"`
	OriginalContent string         `json:"original_content" validate:"required"`
	Flashcards      []Flashcard    `json:"flashcards"`
	QuizQuestions   []QuizQuestion `json:"quiz_questions"`
	StudyGuide      string         `json:"study_guide"`
	Tags            []string       `json:"tags"`
	SchemaVersion   int            `json:"schema_version"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// StudyMaterialListing is the list projection. The owner already knows who
// they are, so the owner id is left out.
type StudyMaterialListing struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	OriginalContent string         `json:"original_content"`
	Flashcards      []Flashcard    `json:"flashcards"`
	QuizQuestions   []QuizQuestion `json:"quiz_questions"`
	StudyGuide      string         `json:"study_guide"`
	Tags            []string       `json:"tags"`
	SchemaVersion   int            `json:"schema_version"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (m *StudyMaterial) Listing() StudyMaterialListing {
	return StudyMaterialListing{
		ID:              m.ID,
		Title:           m.Title,
		OriginalContent: m.OriginalContent,
		Flashcards:      m.Flashcards,
		QuizQuestions:   m.QuizQuestions,
		StudyGuide:      m.StudyGuide,
		Tags:            m.Tags,
		SchemaVersion:   m.SchemaVersion,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// EnsureNonNil replaces nil artifact slices with empty ones so they encode
// as [] instead of null.
func (m *StudyMaterial) EnsureNonNil() {
	if m.Flashcards == nil {
		m.Flashcards = []Flashcard{}
	}
	if m.QuizQuestions == nil {
		m.QuizQuestions = []QuizQuestion{}
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
}

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
	Explanation        string   `json:"explanation,omitempty"`
}

// GeneratedContent is the merged output of the three generation tasks.
type GeneratedContent struct {
	Flashcards    []Flashcard    `json:"flashcards"`
	QuizQuestions []QuizQuestion `json:"quiz_questions"`
	StudyGuide    string         `json:"study_guide"`
}

// EmptyGeneratedContent is what a record gets when generation produced nothing.
func EmptyGeneratedContent() GeneratedContent {
	return GeneratedContent{
		Flashcards:    []Flashcard{},
		QuizQuestions: []QuizQuestion{},
		StudyGuide:    "",
	}
}

type CreateStudyMaterialRequest struct {
	Title           string  `json:"title" validate:"required,max=200"`
	OriginalContent string  `json:"original_content" validate:"required"`
	Tags            TagList `json:"tags"`
}

// UpdateStudyMaterialRequest uses pointers so "absent" and "empty" differ:
// a nil field is left untouched, a non-nil field overwrites.
type UpdateStudyMaterialRequest struct {
	Title           *string         `json:"title,omitempty" validate:"omitempty,max=200"`
	OriginalContent *string         `json:"original_content,omitempty"`
	Tags            *TagList        `json:"tags,omitempty"`
	Flashcards      *[]Flashcard    `json:"flashcards,omitempty"`
	QuizQuestions   *[]QuizQuestion `json:"quiz_questions,omitempty"`
	StudyGuide      *string         `json:"study_guide,omitempty"`
}

type ScoreQuizRequest struct {
	Answers []int `json:"answers"`
}

type QuizScore struct {
	StudyMaterialID uuid.UUID `json:"study_material_id"`
	CorrectCount    int       `json:"correct_count"`
	Total           int       `json:"total"`
	ScorePercent    float64   `json:"score_percent"`
	Results         []bool    `json:"results"`
}

// TagList accepts either a JSON array of strings or a single comma-separated
// string and normalises both into trimmed, non-empty, de-duplicated tags.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*t = TagList{}
		return nil
	}

	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = NormalizeTags(strings.Split(s, ","))
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = NormalizeTags(list)
	return nil
}

// NormalizeTags trims each tag, drops empties and keeps the first occurrence
// of duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
