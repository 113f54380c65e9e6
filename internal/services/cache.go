package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"studyroom-backend/internal/models"
)

// GenerationCache stores raw model text under a key from generationCacheKey.
// Get reports a miss as ("", false, nil).
type GenerationCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, text string) error
}

type RedisGenerationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGenerationCache(client *redis.Client, ttl time.Duration) *RedisGenerationCache {
	return &RedisGenerationCache{client: client, ttl: ttl}
}

func (c *RedisGenerationCache) Get(ctx context.Context, key string) (string, bool, error) {
	text, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (c *RedisGenerationCache) Set(ctx context.Context, key, text string) error {
	return c.client.Set(ctx, key, text, c.ttl).Err()
}

// generationCacheKey covers everything that shapes a reply: the model, the
// sampling settings, the system instruction and the full prompt, which embeds
// both the template and the content. Changing any of them misses the cache.
func generationCacheKey(modelName string, artifact Artifact, prompt string, params GenerationParams) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%g\x00%d\x00%s\x00", modelName, params.Temperature, params.MaxTokens, params.SystemInstruction)
	h.Write([]byte(prompt))
	return fmt.Sprintf("generation:v%d:%s:%s", models.CurrentSchemaVersion, artifact, hex.EncodeToString(h.Sum(nil)))
}
