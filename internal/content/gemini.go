package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-1.5-flash"

// GeminiSource asks a Gemini model to write about each topic
type GeminiSource struct {
	client *genai.Client
	model  string
}

// NewGeminiSource creates a source backed by the Gemini API
func NewGeminiSource(ctx context.Context, apiKey, model string) (*GeminiSource, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiSource{client: client, model: model}, nil
}

// Model returns the model name
func (g *GeminiSource) Model() string {
	return g.model
}

// Generate sends the topic as the prompt and returns the response text
func (g *GeminiSource) Generate(ctx context.Context, topic string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(topic), nil)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}
