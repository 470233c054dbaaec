package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var ErrCapabilityDisabled = errors.New("capability is not configured")

// GeminiCopywriter generates ad copy with Google's Gemini API.
type GeminiCopywriter struct {
	client *genai.Client
	model  string
}

func NewGeminiCopywriter(ctx context.Context, apiKey, model string) (*GeminiCopywriter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiCopywriter{client: client, model: model}, nil
}

func (g *GeminiCopywriter) GenerateCopy(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("GenAI returned no text")
	}
	return text, nil
}

// disabledCopywriter stands in when no API key is configured.
type disabledCopywriter struct{}

func (disabledCopywriter) GenerateCopy(context.Context, string) (string, error) {
	return "", ErrCapabilityDisabled
}

// NewCopyGenerator returns a Gemini copywriter, or a stub that always fails
// (and so degrades the pipeline) when no key is set.
func NewCopyGenerator(ctx context.Context, apiKey, model string) (CopyGenerator, error) {
	if apiKey == "" {
		return disabledCopywriter{}, nil
	}
	return NewGeminiCopywriter(ctx, apiKey, model)
}
