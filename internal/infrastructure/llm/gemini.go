package llm

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	TopP        float64
}

// GeminiClient implements repository.LLMClient.
type GeminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key must not be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(float32(cfg.Temperature))
	model.SetTopP(float32(cfg.TopP))

	return &GeminiClient{
		client:    client,
		model:     model,
		modelName: cfg.Model,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	log.Printf("[Gemini] Sending request to %s...", c.modelName)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", apperr.Upstream("Gemini", 0, "generation failed", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", apperr.Upstream("Gemini", 0, "malformed payload", err)
	}

	log.Printf("[Gemini] Response received successfully.")
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates returned from gemini")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			return string(text), nil
		}
	}

	return "", errors.New("unexpected response format from gemini")
}

func (c *GeminiClient) Name() string {
	return fmt.Sprintf("Gemini (%s)", c.modelName)
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}
