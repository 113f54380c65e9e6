package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"studyroom-backend/internal/logger"
	"studyroom-backend/internal/models"
)

type GeneratorConfig struct {
	// ModelName is part of the cache key.
	ModelName           string
	Temperature         float32
	Timeout             time.Duration
	MaxConcurrent       int
	FlashcardMaxTokens  int32
	QuizMaxTokens       int32
	StudyGuideMaxTokens int32
}

// Generator turns study text into the three artifacts, one model call each.
// Calls share a process-wide concurrency bound and each runs under its own
// timeout, which also covers waiting for a slot.
type Generator struct {
	model  TextModel
	cache  GenerationCache
	sem    *semaphore.Weighted
	cfg    GeneratorConfig
	log    *logger.Logger
	tracer trace.Tracer
}

// NewGenerator builds a generator. cache may be nil.
func NewGenerator(model TextModel, cache GenerationCache, cfg GeneratorConfig, log *logger.Logger) *Generator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Generator{
		model:  model,
		cache:  cache,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		cfg:    cfg,
		log:    log,
		tracer: otel.Tracer("studyroom/generation"),
	}
}

func (g *Generator) GenerateFlashcards(ctx context.Context, content string) ([]models.Flashcard, error) {
	raw, err := g.complete(ctx, ArtifactFlashcards, content, buildFlashcardPrompt(content), GenerationParams{
		SystemInstruction: jsonSystemInstruction,
		Temperature:       g.cfg.Temperature,
		MaxTokens:         g.cfg.FlashcardMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return ParseFlashcards(raw)
}

func (g *Generator) GenerateQuizQuestions(ctx context.Context, content string) ([]models.QuizQuestion, error) {
	raw, err := g.complete(ctx, ArtifactQuizQuestions, content, buildQuizPrompt(content), GenerationParams{
		SystemInstruction: jsonSystemInstruction,
		Temperature:       g.cfg.Temperature,
		MaxTokens:         g.cfg.QuizMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return ParseQuizQuestions(raw)
}

func (g *Generator) GenerateStudyGuide(ctx context.Context, content string) (string, error) {
	raw, err := g.complete(ctx, ArtifactStudyGuide, content, buildStudyGuidePrompt(content), GenerationParams{
		SystemInstruction: guideSystemInstruction,
		Temperature:       g.cfg.Temperature,
		MaxTokens:         g.cfg.StudyGuideMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return ParseStudyGuide(raw), nil
}

// complete returns the raw model text for one artifact, consulting the cache
// first. Only non-empty successful replies are cached.
func (g *Generator) complete(ctx context.Context, artifact Artifact, content, prompt string, params GenerationParams) (string, error) {
	ctx, span := g.tracer.Start(ctx, "generation."+string(artifact))
	defer span.End()
	span.SetAttributes(
		attribute.String("artifact", string(artifact)),
		attribute.Int("content_length", len(content)),
	)

	cacheKey := generationCacheKey(g.cfg.ModelName, artifact, prompt, params)
	if g.cache != nil {
		text, ok, err := g.cache.Get(ctx, cacheKey)
		if err != nil {
			g.log.Warn("generation cache lookup failed", "artifact", artifact, "error", err)
		} else if ok {
			span.SetAttributes(attribute.Bool("cache_hit", true), attribute.Int("response_length", len(text)))
			return text, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if err := g.sem.Acquire(callCtx, 1); err != nil {
		return "", g.fail(span, artifact, fmt.Errorf("timeout waiting for Gemini rate slot: %w", err))
	}
	text, err := g.model.GenerateText(callCtx, prompt, params)
	g.sem.Release(1)
	if err != nil {
		return "", g.fail(span, artifact, err)
	}

	span.SetAttributes(attribute.Bool("cache_hit", false), attribute.Int("response_length", len(text)))

	if g.cache != nil && text != "" {
		if err := g.cache.Set(ctx, cacheKey, text); err != nil {
			g.log.Warn("generation cache store failed", "artifact", artifact, "error", err)
		}
	}

	return text, nil
}

func (g *Generator) fail(span trace.Span, artifact Artifact, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return &GenerationError{Artifact: artifact, Err: err}
}
