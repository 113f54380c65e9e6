package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom-backend/internal/logger"
)

func testGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		ModelName:           "gemini-test",
		Temperature:         0.7,
		Timeout:             time.Second,
		MaxConcurrent:       6,
		FlashcardMaxTokens:  2000,
		QuizMaxTokens:       2500,
		StudyGuideMaxTokens: 2000,
	}
}

func TestGenerator_PhotosynthesisExample(t *testing.T) {
	model := newStubModel()
	gen := NewGenerator(model, nil, testGeneratorConfig(), logger.Nop())
	ctx := context.Background()
	content := "Photosynthesis converts light energy into chemical energy in chloroplasts."

	cards, err := gen.GenerateFlashcards(ctx, content)
	require.NoError(t, err)
	require.NotEmpty(t, cards)
	for _, c := range cards {
		assert.NotEmpty(t, c.Question)
		assert.NotEmpty(t, c.Answer)
	}

	questions, err := gen.GenerateQuizQuestions(ctx, content)
	require.NoError(t, err)
	require.NotEmpty(t, questions)
	for _, q := range questions {
		assert.Len(t, q.Options, 4)
		assert.GreaterOrEqual(t, q.CorrectAnswerIndex, 0)
		assert.Less(t, q.CorrectAnswerIndex, 4)
	}

	guide, err := gen.GenerateStudyGuide(ctx, content)
	require.NoError(t, err)
	assert.NotEmpty(t, guide)
}

func TestGenerator_PassesPerArtifactParams(t *testing.T) {
	model := newStubModel()
	gen := NewGenerator(model, nil, testGeneratorConfig(), logger.Nop())
	ctx := context.Background()

	_, _ = gen.GenerateFlashcards(ctx, "x")
	_, _ = gen.GenerateQuizQuestions(ctx, "x")
	_, _ = gen.GenerateStudyGuide(ctx, "x")

	assert.Equal(t, int32(2000), model.params[ArtifactFlashcards].MaxTokens)
	assert.Equal(t, int32(2500), model.params[ArtifactQuizQuestions].MaxTokens)
	assert.Equal(t, int32(2000), model.params[ArtifactStudyGuide].MaxTokens)
	assert.InDelta(t, 0.7, model.params[ArtifactFlashcards].Temperature, 0.0001)
	assert.Equal(t, jsonSystemInstruction, model.params[ArtifactQuizQuestions].SystemInstruction)
	assert.Equal(t, guideSystemInstruction, model.params[ArtifactStudyGuide].SystemInstruction)
}

func TestGenerator_ModelFailureIsGenerationError(t *testing.T) {
	model := newStubModel()
	model.errs[ArtifactQuizQuestions] = errors.New("connection refused")
	gen := NewGenerator(model, nil, testGeneratorConfig(), logger.Nop())

	questions, err := gen.GenerateQuizQuestions(context.Background(), "content")
	assert.Nil(t, questions)

	var ge *GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, ArtifactQuizQuestions, ge.Artifact)
}

func TestGenerator_MalformedReplyIsParseError(t *testing.T) {
	model := newStubModel()
	model.responses[ArtifactFlashcards] = "I'm sorry, I can't help with that."
	gen := NewGenerator(model, nil, testGeneratorConfig(), logger.Nop())

	_, err := gen.GenerateFlashcards(context.Background(), "content")

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ArtifactFlashcards, pe.Artifact)
}

func TestGenerator_EmptyGuideIsNotAnError(t *testing.T) {
	model := newStubModel()
	model.responses[ArtifactStudyGuide] = "   "
	gen := NewGenerator(model, nil, testGeneratorConfig(), logger.Nop())

	guide, err := gen.GenerateStudyGuide(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", guide)
}

func TestGenerator_PerCallTimeout(t *testing.T) {
	model := newStubModel()
	model.delay = time.Second
	cfg := testGeneratorConfig()
	cfg.Timeout = 20 * time.Millisecond
	gen := NewGenerator(model, nil, cfg, logger.Nop())

	start := time.Now()
	_, err := gen.GenerateStudyGuide(context.Background(), "content")

	var ge *GenerationError
	require.True(t, errors.As(err, &ge))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGenerator_ConcurrencyBound(t *testing.T) {
	model := newStubModel()
	model.delay = 20 * time.Millisecond
	cfg := testGeneratorConfig()
	cfg.MaxConcurrent = 1
	gen := NewGenerator(model, nil, cfg, logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = gen.GenerateStudyGuide(context.Background(), "content")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&model.maxInFlight))
}

func TestGenerator_CacheHitSkipsModel(t *testing.T) {
	model := newStubModel()
	cache := newMemoryCache()
	gen := NewGenerator(model, cache, testGeneratorConfig(), logger.Nop())
	ctx := context.Background()

	first, err := gen.GenerateFlashcards(ctx, "content")
	require.NoError(t, err)
	second, err := gen.GenerateFlashcards(ctx, "content")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.callCount(ArtifactFlashcards))

	_, err = gen.GenerateFlashcards(ctx, "other content")
	require.NoError(t, err)
	assert.Equal(t, 2, model.callCount(ArtifactFlashcards))
}

func TestGenerator_FailuresAreNotCached(t *testing.T) {
	model := newStubModel()
	model.errs[ArtifactStudyGuide] = errors.New("unavailable")
	cache := newMemoryCache()
	gen := NewGenerator(model, cache, testGeneratorConfig(), logger.Nop())

	_, err := gen.GenerateStudyGuide(context.Background(), "content")
	require.Error(t, err)
	assert.Empty(t, cache.items)
}

func TestGenerationCacheKey(t *testing.T) {
	params := GenerationParams{SystemInstruction: jsonSystemInstruction, Temperature: 0.7, MaxTokens: 2000}
	prompt := buildFlashcardPrompt("content")

	base := generationCacheKey("gemini-a", ArtifactFlashcards, prompt, params)
	assert.Equal(t, base, generationCacheKey("gemini-a", ArtifactFlashcards, prompt, params))
	assert.Contains(t, base, "generation:v1:flashcards:")

	hotter := params
	hotter.Temperature = 0.9
	longer := params
	longer.MaxTokens = 4000

	for name, key := range map[string]string{
		"artifact":    generationCacheKey("gemini-a", ArtifactQuizQuestions, prompt, params),
		"model":       generationCacheKey("gemini-b", ArtifactFlashcards, prompt, params),
		"content":     generationCacheKey("gemini-a", ArtifactFlashcards, buildFlashcardPrompt("other"), params),
		"temperature": generationCacheKey("gemini-a", ArtifactFlashcards, prompt, hotter),
		"max tokens":  generationCacheKey("gemini-a", ArtifactFlashcards, prompt, longer),
	} {
		assert.NotEqual(t, base, key, "changing %s must change the key", name)
	}
}

func TestGenerator_ModelChangeMissesCache(t *testing.T) {
	model := newStubModel()
	cache := newMemoryCache()
	ctx := context.Background()

	cfg := testGeneratorConfig()
	_, err := NewGenerator(model, cache, cfg, logger.Nop()).GenerateFlashcards(ctx, "content")
	require.NoError(t, err)

	cfg.ModelName = "gemini-next"
	_, err = NewGenerator(model, cache, cfg, logger.Nop()).GenerateFlashcards(ctx, "content")
	require.NoError(t, err)

	assert.Equal(t, 2, model.callCount(ArtifactFlashcards))
}
