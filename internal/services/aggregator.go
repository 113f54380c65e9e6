package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"studyroom-backend/internal/logger"
	"studyroom-backend/internal/models"
)

// ContentGenerator produces each artifact independently.
type ContentGenerator interface {
	GenerateFlashcards(ctx context.Context, content string) ([]models.Flashcard, error)
	GenerateQuizQuestions(ctx context.Context, content string) ([]models.QuizQuestion, error)
	GenerateStudyGuide(ctx context.Context, content string) (string, error)
}

// ArtifactOutcome records how one generation task ended.
type ArtifactOutcome struct {
	Artifact Artifact
	Items    int
	Duration time.Duration
	Err      error
}

func (o ArtifactOutcome) Succeeded() bool { return o.Err == nil }

// AggregateResult is the merged content plus one outcome per artifact, in
// flashcards, quiz, guide order.
type AggregateResult struct {
	Content  models.GeneratedContent
	Outcomes []ArtifactOutcome
}

// Aggregator runs the three generation tasks concurrently and merges them.
// A failed task only empties its own artifact; the merge itself never fails.
type Aggregator struct {
	gen ContentGenerator
	log *logger.Logger
}

func NewAggregator(gen ContentGenerator, log *logger.Logger) *Aggregator {
	return &Aggregator{gen: gen, log: log}
}

// Generate blocks until all three tasks finish. onDone, when non-nil, is
// called once per artifact as it completes and may be called concurrently.
func (a *Aggregator) Generate(ctx context.Context, content string, onDone func(ArtifactOutcome)) AggregateResult {
	var (
		flashcards []models.Flashcard
		questions  []models.QuizQuestion
		guide      string
		outcomes   [3]ArtifactOutcome
	)

	var g errgroup.Group

	g.Go(func() error {
		outcomes[0] = a.run(ArtifactFlashcards, onDone, func() (int, error) {
			cards, err := a.gen.GenerateFlashcards(ctx, content)
			if err != nil {
				return 0, err
			}
			flashcards = cards
			return len(cards), nil
		})
		return outcomes[0].Err
	})

	g.Go(func() error {
		outcomes[1] = a.run(ArtifactQuizQuestions, onDone, func() (int, error) {
			qs, err := a.gen.GenerateQuizQuestions(ctx, content)
			if err != nil {
				return 0, err
			}
			questions = qs
			return len(qs), nil
		})
		return outcomes[1].Err
	})

	g.Go(func() error {
		outcomes[2] = a.run(ArtifactStudyGuide, onDone, func() (int, error) {
			text, err := a.gen.GenerateStudyGuide(ctx, content)
			if err != nil {
				return 0, err
			}
			guide = text
			if text == "" {
				return 0, nil
			}
			return 1, nil
		})
		return outcomes[2].Err
	})

	// A plain Group never cancels its siblings, so one failure leaves the
	// other artifacts running. Wait reports the first failure.
	if err := g.Wait(); err != nil {
		failed := 0
		for _, o := range outcomes {
			if !o.Succeeded() {
				failed++
			}
		}
		a.log.Warn("generation degraded", "failed_artifacts", failed, "first_error", err)
	}

	result := AggregateResult{
		Content:  models.EmptyGeneratedContent(),
		Outcomes: outcomes[:],
	}
	if outcomes[0].Succeeded() && flashcards != nil {
		result.Content.Flashcards = flashcards
	}
	if outcomes[1].Succeeded() && questions != nil {
		result.Content.QuizQuestions = questions
	}
	if outcomes[2].Succeeded() {
		result.Content.StudyGuide = guide
	}

	return result
}

// run executes one task, turning a panic into that artifact's failure.
func (a *Aggregator) run(artifact Artifact, onDone func(ArtifactOutcome), task func() (int, error)) (outcome ArtifactOutcome) {
	start := time.Now()
	outcome.Artifact = artifact

	defer func() {
		if r := recover(); r != nil {
			outcome.Items = 0
			outcome.Err = &GenerationError{Artifact: artifact, Err: fmt.Errorf("panic: %v", r)}
		}
		outcome.Duration = time.Since(start)

		if outcome.Err != nil {
			a.log.Warn("artifact generation failed, using empty default",
				"artifact", artifact,
				"duration_ms", outcome.Duration.Milliseconds(),
				"error", outcome.Err,
			)
		} else {
			a.log.Info("artifact generated",
				"artifact", artifact,
				"items", outcome.Items,
				"duration_ms", outcome.Duration.Milliseconds(),
			)
		}

		if onDone != nil {
			onDone(outcome)
		}
	}()

	outcome.Items, outcome.Err = task()
	return outcome
}
