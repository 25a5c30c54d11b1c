package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment
// (neo4j_uri -> FG_NEO4J_URI).
const EnvPrefix = "FG"

// Config holds all environmentally dependent settings for the fishgraph API.
type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`
	LogLevel string `mapstructure:"log_level"`

	// Neo4j Graph DB
	Neo4jURI             string        `mapstructure:"neo4j_uri"`
	Neo4jUser            string        `mapstructure:"neo4j_user"`
	Neo4jPassword        string        `mapstructure:"neo4j_password"`
	Neo4jDatabase        string        `mapstructure:"neo4j_database"`
	Neo4jMaxConnLifetime time.Duration `mapstructure:"neo4j_max_conn_lifetime"`
	Neo4jMaxPoolSize     int           `mapstructure:"neo4j_max_pool_size"`
	Neo4jAcquireTimeout  time.Duration `mapstructure:"neo4j_acquire_timeout"`
	RetryAttempts        int           `mapstructure:"retry_attempts"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
	RetryAllErrors       bool          `mapstructure:"retry_all_errors"`

	// Search and graph shaping
	FulltextIndex       string `mapstructure:"fulltext_index"`
	EnsureFulltextIndex bool   `mapstructure:"ensure_fulltext_index"`
	SearchLimit         int    `mapstructure:"search_limit"`
	ExpansionLimit      int    `mapstructure:"expansion_limit"`
	InitialFishLimit    int    `mapstructure:"initial_fish_limit"`
	DefaultGraphLimit   int    `mapstructure:"default_graph_limit"`
	MaxGraphLimit       int    `mapstructure:"max_graph_limit"`

	// Answer model
	LLMProvider         string        `mapstructure:"llm_provider"`
	LLMTemperature      float64       `mapstructure:"llm_temperature"`
	LLMTopP             float64       `mapstructure:"llm_top_p"`
	LLMTimeout          time.Duration `mapstructure:"llm_timeout"`
	LLMBreakerThreshold int           `mapstructure:"llm_breaker_threshold"`
	LLMBreakerCooldown  time.Duration `mapstructure:"llm_breaker_cooldown"`
	ChatGLMURL          string        `mapstructure:"chatglm_url"`
	ChatGLMAPIKey       string        `mapstructure:"chatglm_api_key"`
	ChatGLMModel        string        `mapstructure:"chatglm_model"`
	OllamaHost          string        `mapstructure:"ollama_host"`
	OllamaModel         string        `mapstructure:"ollama_model"`
	GeminiAPIKey        string        `mapstructure:"gemini_api_key"`
	GeminiModel         string        `mapstructure:"gemini_model"`

	// QA history
	HistoryEnabled bool   `mapstructure:"history_enabled"`
	HistoryDSN     string `mapstructure:"history_dsn"`
}

var defaults = map[string]any{
	"http_addr": ":8080",
	"log_level": "info",

	"neo4j_uri":               "neo4j://localhost:7687",
	"neo4j_user":              "neo4j",
	"neo4j_password":          "",
	"neo4j_database":          "neo4j",
	"neo4j_max_conn_lifetime": 3 * time.Hour,
	"neo4j_max_pool_size":     50,
	"neo4j_acquire_timeout":   30 * time.Second,
	"retry_attempts":          3,
	"retry_delay":             time.Second,
	"retry_all_errors":        false,

	"fulltext_index":        "nodeFulltext",
	"ensure_fulltext_index": false,
	"search_limit":          5,
	"expansion_limit":       100,
	"initial_fish_limit":    20,
	"default_graph_limit":   100,
	"max_graph_limit":       1000,

	"llm_provider":          "chatglm",
	"llm_temperature":       0.7,
	"llm_top_p":             0.9,
	"llm_timeout":           60 * time.Second,
	"llm_breaker_threshold": 5,
	"llm_breaker_cooldown":  30 * time.Second,
	"chatglm_url":           "https://open.bigmodel.cn/api/paas/v3/model-api/chatglm_turbo/invoke",
	"chatglm_api_key":       "",
	"chatglm_model":         "chatglm_turbo",
	"ollama_host":           "http://localhost:11434",
	"ollama_model":          "llama3",
	"gemini_api_key":        "",
	"gemini_model":          "gemini-1.5-flash",

	"history_enabled": true,
	"history_dsn":     "file:fishgraph.db",
}

// Load reads settings from defaults, an optional config file and FG_*
// environment variables, in increasing precedence. An empty path falls back to
// FG_CONFIG; no file at all is fine.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every command needs: graph connection, retry
// and query shaping.
func (c *Config) Validate() error {
	var errs []error
	if c.Neo4jURI == "" {
		errs = append(errs, errors.New("FG_NEO4J_URI is required"))
	}
	if c.Neo4jMaxPoolSize <= 0 {
		errs = append(errs, errors.New("FG_NEO4J_MAX_POOL_SIZE must be positive"))
	}
	if c.Neo4jMaxConnLifetime <= 0 || c.Neo4jAcquireTimeout <= 0 {
		errs = append(errs, errors.New("FG_NEO4J_MAX_CONN_LIFETIME and FG_NEO4J_ACQUIRE_TIMEOUT must be positive"))
	}
	if c.RetryAttempts <= 0 {
		errs = append(errs, errors.New("FG_RETRY_ATTEMPTS must be at least 1"))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, errors.New("FG_RETRY_DELAY cannot be negative"))
	}
	if c.SearchLimit <= 0 || c.ExpansionLimit <= 0 || c.InitialFishLimit <= 0 {
		errs = append(errs, errors.New("FG_SEARCH_LIMIT, FG_EXPANSION_LIMIT and FG_INITIAL_FISH_LIMIT must be positive"))
	}
	if c.DefaultGraphLimit <= 0 || c.DefaultGraphLimit > c.MaxGraphLimit {
		errs = append(errs, errors.New("FG_DEFAULT_GRAPH_LIMIT must be positive and not exceed FG_MAX_GRAPH_LIMIT"))
	}
	return errors.Join(errs...)
}

// ValidateAnswering checks the answer model and history settings. Only paths
// that answer questions need them.
func (c *Config) ValidateAnswering() error {
	var errs []error
	switch c.LLMProvider {
	case "chatglm":
		if c.ChatGLMAPIKey == "" {
			errs = append(errs, errors.New("FG_CHATGLM_API_KEY is required when FG_LLM_PROVIDER is chatglm"))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("FG_GEMINI_API_KEY is required when FG_LLM_PROVIDER is gemini"))
		}
	case "ollama":
		if c.OllamaHost == "" {
			errs = append(errs, errors.New("FG_OLLAMA_HOST is required when FG_LLM_PROVIDER is ollama"))
		}
	default:
		errs = append(errs, fmt.Errorf("FG_LLM_PROVIDER %q is not one of chatglm, ollama, gemini", c.LLMProvider))
	}
	if c.LLMTemperature < 0 || c.LLMTopP <= 0 || c.LLMTopP > 1 {
		errs = append(errs, errors.New("FG_LLM_TEMPERATURE must be >= 0 and FG_LLM_TOP_P in (0, 1]"))
	}
	if c.HistoryEnabled && c.HistoryDSN == "" {
		errs = append(errs, errors.New("FG_HISTORY_DSN is required when history is enabled"))
	}
	return errors.Join(errs...)
}
