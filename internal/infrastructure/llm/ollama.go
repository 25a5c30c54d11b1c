package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
)

// OllamaConfig configures a client for a local Ollama server.
type OllamaConfig struct {
	Host        string
	Model       string
	Temperature float64
	TopP        float64
	HTTPClient  *http.Client
}

// LocalOllamaClient implements repository.LLMClient by calling a local Ollama server.
type LocalOllamaClient struct {
	cfg  OllamaConfig
	http *http.Client
}

// NewLocalOllamaClient initializes a new client for a local Ollama instance.
func NewLocalOllamaClient(cfg OllamaConfig) *LocalOllamaClient {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = "llama3"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LocalOllamaClient{cfg: cfg, http: httpClient}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate sends a prompt to the local Ollama instance.
func (c *LocalOllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	log.Printf("[Ollama] Sending request to local Ollama (%s)...", c.cfg.Model)

	reqBody, err := json.Marshal(ollamaRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: c.cfg.Temperature, TopP: c.cfg.TopP},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Upstream("Ollama", 0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var parsed ollamaResponse
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			msg = parsed.Error
		}
		return "", apperr.Upstream("Ollama", resp.StatusCode, msg, nil)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", apperr.Upstream("Ollama", resp.StatusCode, "malformed payload", err)
	}

	log.Printf("[Ollama] Response received from local model.")
	return ollamaResp.Response, nil
}

// Name returns the descriptive name of the client.
func (c *LocalOllamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s) [Local]", c.cfg.Model)
}
