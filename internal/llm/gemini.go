package llm

import (
	"context"
	"fmt"
	"slices"

	"github.com/colthorp/threadsum-go/internal/core"
	"google.golang.org/genai"
)

// GeminiModel generates text with Google's Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// ModelInfo describes a model that can generate content.
type ModelInfo struct {
	Name        string
	DisplayName string
}

// NewGeminiModel creates a Gemini-backed model.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = core.DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiModel{
		client: client,
		model:  model,
	}, nil
}

// Generate returns the model's text reply to prompt.
func (g *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini generate failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Gemini returned no text")
	}
	return text, nil
}

// CountTokens returns the token count of prompt for the configured model.
func (g *GeminiModel) CountTokens(ctx context.Context, prompt string) (int, error) {
	resp, err := g.client.Models.CountTokens(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return 0, fmt.Errorf("Gemini count tokens failed: %w", err)
	}
	return int(resp.TotalTokens), nil
}

// ListModels returns the models that support content generation.
func (g *GeminiModel) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var out []ModelInfo
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return out, fmt.Errorf("failed to list models: %w", err)
		}
		if slices.Contains(m.SupportedActions, "generateContent") {
			out = append(out, ModelInfo{Name: m.Name, DisplayName: m.DisplayName})
		}
	}
	return out, nil
}
