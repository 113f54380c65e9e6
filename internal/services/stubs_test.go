package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyroom-backend/internal/models"
)

const (
	photosynthesisFlashcardsJSON = `[{"question": "What is photosynthesis?", "answer": "The process plants use to turn light, water and CO2 into glucose and oxygen."},
		{"question": "Which organelle hosts photosynthesis?", "answer": "The chloroplast."}]`
	photosynthesisQuizJSON = `[{"question": "Which gas is released by photosynthesis?", "options": ["Oxygen", "Carbon dioxide", "Nitrogen", "Methane"], "correctAnswer": 0, "explanation": "Oxygen is a by-product."}]`
	photosynthesisGuide    = "# Photosynthesis\n\n- Converts light energy into chemical energy\n- Happens in chloroplasts"
)

// stubModel answers by recognising which prompt builder produced the prompt.
type stubModel struct {
	mu        sync.Mutex
	responses map[Artifact]string
	errs      map[Artifact]error
	delay     time.Duration
	calls     map[Artifact]int
	params    map[Artifact]GenerationParams

	inFlight    int32
	maxInFlight int32
}

func newStubModel() *stubModel {
	return &stubModel{
		responses: map[Artifact]string{
			ArtifactFlashcards:    photosynthesisFlashcardsJSON,
			ArtifactQuizQuestions: photosynthesisQuizJSON,
			ArtifactStudyGuide:    photosynthesisGuide,
		},
		errs:   map[Artifact]error{},
		calls:  map[Artifact]int{},
		params: map[Artifact]GenerationParams{},
	}
}

func promptArtifact(prompt string) Artifact {
	switch {
	case strings.Contains(prompt, "flashcard creator"):
		return ArtifactFlashcards
	case strings.Contains(prompt, "quiz questions"):
		return ArtifactQuizQuestions
	default:
		return ArtifactStudyGuide
	}
}

func (m *stubModel) GenerateText(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	n := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&m.maxInFlight)
		if n <= peak || atomic.CompareAndSwapInt32(&m.maxInFlight, peak, n) {
			break
		}
	}

	artifact := promptArtifact(prompt)

	m.mu.Lock()
	m.calls[artifact]++
	m.params[artifact] = params
	resp, err, delay := m.responses[artifact], m.errs[artifact], m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

func (m *stubModel) callCount(a Artifact) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[a]
}

// memoryCache is an in-process GenerationCache.
type memoryCache struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string]string{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.items[key]
	return text, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = text
	return nil
}

// memoryRepo is an in-process StudyMaterialRepository. It stores copies so
// callers cannot mutate stored records through returned pointers.
type memoryRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]models.StudyMaterial
	clock   time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		records: map[uuid.UUID]models.StudyMaterial{},
		clock:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memoryRepo) Create(_ context.Context, m *models.StudyMaterial) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	m.CreatedAt, m.UpdatedAt = now, now
	r.records[m.ID] = cloneMaterial(*m)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*models.StudyMaterial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := cloneMaterial(m)
	return &c, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.StudyMaterial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.StudyMaterial{}
	for _, m := range r.records {
		if m.UserID == userID {
			c := cloneMaterial(m)
			out = append(out, &c)
		}
	}
	// newest first, id as tie-break
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && newer(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func newer(a, b *models.StudyMaterial) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

func (r *memoryRepo) Update(_ context.Context, m *models.StudyMaterial) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.records[m.ID]
	if !ok || existing.UserID != m.UserID {
		return pgx.ErrNoRows
	}
	m.UpdatedAt = r.tick()
	m.CreatedAt = existing.CreatedAt
	r.records[m.ID] = cloneMaterial(*m)
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.records[id]
	if !ok || existing.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(r.records, id)
	return nil
}

func cloneMaterial(m models.StudyMaterial) models.StudyMaterial {
	m.Flashcards = append([]models.Flashcard(nil), m.Flashcards...)
	m.QuizQuestions = append([]models.QuizQuestion(nil), m.QuizQuestions...)
	m.Tags = append([]string(nil), m.Tags...)
	m.EnsureNonNil()
	return m
}

// recordingPublisher keeps every published message.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []models.WSMessage
}

func (p *recordingPublisher) PublishUpdate(_ context.Context, _ uuid.UUID, msg models.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.Type)
	}
	return out
}
