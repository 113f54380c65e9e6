package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studyroom-backend/internal/models"
)

const (
	EventGenerationProgress   = "generation_progress"
	EventStudyMaterialCreated = "study_material_created"
	EventStudyMaterialUpdated = "study_material_updated"
	EventStudyMaterialDeleted = "study_material_deleted"
)

// Publisher delivers per-user update messages. Delivery is best effort.
type Publisher interface {
	PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// UserChannel is the Redis channel carrying one user's updates.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_updates:%s", userID.String())
}

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: client}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (p *RedisPublisher) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	p.redis.Publish(ctx, UserChannel(userID), string(data))
}

// NopPublisher drops every message. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishUpdate(context.Context, uuid.UUID, models.WSMessage) {}
