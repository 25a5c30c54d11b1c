package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
)

const (
	DefaultChatGLMURL   = "https://open.bigmodel.cn/api/paas/v3/model-api/chatglm_turbo/invoke"
	DefaultChatGLMModel = "chatglm_turbo"
)

// ChatGLMConfig configures the Zhipu chat completion client.
type ChatGLMConfig struct {
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	TopP        float64
	HTTPClient  *http.Client
}

// ChatGLMClient implements repository.LLMClient against the Zhipu invoke API.
type ChatGLMClient struct {
	cfg  ChatGLMConfig
	http *http.Client
}

func NewChatGLMClient(cfg ChatGLMConfig) (*ChatGLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chatglm API key must not be empty")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultChatGLMURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultChatGLMModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ChatGLMClient{cfg: cfg, http: httpClient}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatGLMRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	RequestID   string        `json:"request_id"`
}

type chatChoice struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Message *struct {
		Content string `json:"content"`
	} `json:"message,omitempty"`
}

func (c chatChoice) text() string {
	if c.Content == "" && c.Message != nil {
		return c.Message.Content
	}
	return c.Content
}

// chatGLMResponse covers the v3 envelope ({code, msg, data: {choices}}) and the
// flat {choices} shape.
type chatGLMResponse struct {
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	Success *bool  `json:"success"`
	Data    *struct {
		RequestID string       `json:"request_id"`
		Choices   []chatChoice `json:"choices"`
	} `json:"data"`
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r *chatGLMResponse) choices() []chatChoice {
	if r.Data != nil && len(r.Data.Choices) > 0 {
		return r.Data.Choices
	}
	return r.Choices
}

func (r *chatGLMResponse) message() string {
	if r.Msg != "" {
		return r.Msg
	}
	if r.Error != nil {
		return r.Error.Message
	}
	return ""
}

// Generate sends prompt as a single user message and returns the first choice.
func (c *ChatGLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	requestID := repository.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log.Printf("[ChatGLM] Sending request %s to %s...", requestID, c.cfg.Model)

	reqBody, err := json.Marshal(chatGLMRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		RequestID:   requestID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chatglm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create chatglm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Upstream("ChatGLM", 0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Upstream("ChatGLM", resp.StatusCode, "failed to read response", err)
	}

	var parsed chatGLMResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.message()
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", apperr.Upstream("ChatGLM", resp.StatusCode, msg, nil)
	}
	if decodeErr != nil {
		return "", apperr.Upstream("ChatGLM", resp.StatusCode, "malformed payload", decodeErr)
	}
	if (parsed.Success != nil && !*parsed.Success) || (parsed.Code != 0 && parsed.Code != http.StatusOK) {
		msg := parsed.message()
		if msg == "" {
			msg = fmt.Sprintf("error code %d", parsed.Code)
		}
		return "", apperr.Upstream("ChatGLM", resp.StatusCode, msg, nil)
	}

	choices := parsed.choices()
	if len(choices) == 0 {
		return "", apperr.Upstream("ChatGLM", resp.StatusCode, "malformed payload", errors.New("no choices in response"))
	}

	log.Printf("[ChatGLM] Response %s received.", requestID)
	return unwrapContent(choices[0].text()), nil
}

// unwrapContent decodes the quoted string literal v3 returns as content. Text
// that is not one well-formed literal is only trimmed, so quotes that belong
// to the answer survive.
func unwrapContent(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	if unq, err := strconv.Unquote(s); err == nil {
		return strings.TrimSpace(unq)
	}
	return s
}

func (c *ChatGLMClient) Name() string {
	return fmt.Sprintf("ChatGLM (%s)", c.cfg.Model)
}
