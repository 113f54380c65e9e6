package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"studyroom-backend/internal/logger"
)

// TextModel is the language model the generator talks to.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// GenerationParams are the per-call sampling settings.
type GenerationParams struct {
	SystemInstruction string
	Temperature       float32
	MaxTokens         int32
}

// GeminiModel implements TextModel on top of one shared genai client. Each
// call derives its own GenerativeModel so concurrent calls never share
// sampling state.
type GeminiModel struct {
	client    *genai.Client
	modelName string
	log       *logger.Logger
}

func NewGeminiModel(ctx context.Context, apiKey, modelName string, log *logger.Logger) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiModel{
		client:    client,
		modelName: modelName,
		log:       log,
	}, nil
}

func (g *GeminiModel) Close() {
	g.client.Close()
}

func (g *GeminiModel) GenerateText(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(params.Temperature)
	model.SetTopP(0.95)
	model.SetCandidateCount(1)
	if params.MaxTokens > 0 {
		model.SetMaxOutputTokens(params.MaxTokens)
	}
	if params.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(params.SystemInstruction)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonStop {
		g.log.Warn("Gemini candidate stopped early",
			"finish_reason", resp.Candidates[0].FinishReason.String(),
			"token_count", resp.Candidates[0].TokenCount,
		)
	}

	return extractText(resp), nil
}

// extractText joins the text parts of the first candidate only. Separate
// candidates are alternative replies and never concatenate into valid JSON.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}
