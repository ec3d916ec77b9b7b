package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"supportbot/internal/domain"
)

// GeminiProvider talks to the Gemini API through the official SDK.
type GeminiProvider struct {
	client      *genai.Client
	temperature float32
	maxTokens   int32
}

// NewGeminiProvider creates the provider. The API key is required; there is
// no anonymous mode.
func NewGeminiProvider(ctx context.Context, apiKey string, temperature float64, maxOutputTokens int) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{
		client:      client,
		temperature: float32(temperature),
		maxTokens:   int32(maxOutputTokens),
	}, nil
}

// ListModels returns every generation-capable model the API reports.
// Models with no usable name or no declared actions are dropped here so
// the selector only ever sees well-formed descriptors.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]domain.ModelDescriptor, error) {
	var out []domain.ModelDescriptor
	for m, err := range p.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		if m == nil || m.Name == "" {
			continue
		}
		d := domain.ModelDescriptor{
			Name:        strings.TrimPrefix(m.Name, "models/"),
			DisplayName: m.DisplayName,
			Actions:     m.SupportedActions,
		}
		if !d.SupportsGeneration() {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Generate runs one prompt against one model. Safety refusals come back as
// *BlockedError; everything else is a plain error.
func (p *GeminiProvider) Generate(ctx context.Context, prompt, modelID string) (*domain.Answer, error) {
	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, modelID, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate with %s: %w", modelID, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, &BlockedError{ModelID: modelID, Reason: string(resp.PromptFeedback.BlockReason)}
	}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		switch c.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent:
			return nil, &BlockedError{ModelID: modelID, Reason: string(c.FinishReason)}
		}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("model %s returned an empty response", modelID)
	}

	return &domain.Answer{
		Text:    text,
		ModelID: modelID,
		Latency: time.Since(start),
	}, nil
}
