package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider names accepted by NewClient.
const (
	ProviderChatGLM = "chatglm"
	ProviderOllama  = "ollama"
	ProviderGemini  = "gemini"
)

// ProviderConfig selects and configures the answer model.
type ProviderConfig struct {
	Provider    string
	Temperature float64
	TopP        float64
	Timeout     time.Duration
	LogLevel    string

	ChatGLMURL    string
	ChatGLMAPIKey string
	ChatGLMModel  string

	OllamaHost  string
	OllamaModel string

	GeminiAPIKey string
	GeminiModel  string

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// NewClient builds the configured provider wrapped in a GuardedClient.
func NewClient(ctx context.Context, cfg ProviderConfig) (*GuardedClient, error) {
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &LoggingTransport{LogLevel: cfg.LogLevel},
	}

	var guarded *GuardedClient
	switch strings.ToLower(cfg.Provider) {
	case ProviderChatGLM, "":
		c, err := NewChatGLMClient(ChatGLMConfig{
			URL:         cfg.ChatGLMURL,
			APIKey:      cfg.ChatGLMAPIKey,
			Model:       cfg.ChatGLMModel,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			HTTPClient:  httpClient,
		})
		if err != nil {
			return nil, err
		}
		guarded = NewGuardedClient(c, cfg.BreakerThreshold, cfg.BreakerCooldown)
	case ProviderOllama:
		c := NewLocalOllamaClient(OllamaConfig{
			Host:        cfg.OllamaHost,
			Model:       cfg.OllamaModel,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			HTTPClient:  httpClient,
		})
		guarded = NewGuardedClient(c, cfg.BreakerThreshold, cfg.BreakerCooldown)
	case ProviderGemini:
		c, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		})
		if err != nil {
			return nil, err
		}
		guarded = NewGuardedClient(c, cfg.BreakerThreshold, cfg.BreakerCooldown)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return guarded, nil
}
