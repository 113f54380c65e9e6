package services

import (
	"fmt"
	"sort"
	"strings"
)

// Artifact names one of the three generated outputs of a study material.
type Artifact string

const (
	ArtifactFlashcards    Artifact = "flashcards"
	ArtifactQuizQuestions Artifact = "quiz_questions"
	ArtifactStudyGuide    Artifact = "study_guide"
)

// GenerationError means the model call for an artifact failed.
type GenerationError struct {
	Artifact Artifact
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for %s: %v", e.Artifact, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ParseError means the model replied but the reply was not a valid artifact.
type ParseError struct {
	Artifact Artifact
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s response: %v", e.Artifact, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type UnsupportedFormatError struct{ Message string }

func (e *UnsupportedFormatError) Error() string { return e.Message }
