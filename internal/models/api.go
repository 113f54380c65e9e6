package models

import "github.com/google/uuid"

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// GenerationProgress reports one finished artifact while a study material
// is being created.
type GenerationProgress struct {
	Artifact  string `json:"artifact"`
	Succeeded bool   `json:"succeeded"`
	Items     int    `json:"items"`
}

type StudyMaterialEvent struct {
	StudyMaterialID uuid.UUID `json:"study_material_id"`
	Title           string    `json:"title,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
