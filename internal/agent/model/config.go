package model

import (
	"fmt"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ================ Config ================
type LLMConfig struct {
	Provider    string  `envconfig:"LLM_PROVIDER" default:"openai"`
	APIKey      string  `envconfig:"LLM_API_KEY"`
	BaseURL     string  `envconfig:"LLM_BASE_URL"`
	Model       string  `envconfig:"LLM_MODEL" default:"gpt-4o"`
	Temperature float32 `envconfig:"LLM_TEMPERATURE" default:"0.4"`
	MaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"4096"`
}

func (c LLMConfig) Validate() error {
	if err := validateProvider(c.Provider, false); err != nil {
		return fmt.Errorf("LLM_PROVIDER: %w", err)
	}
	if c.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.Model == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}
	return nil
}

// EmbeddingConfig configures the embedding action. An empty Provider disables it.
type EmbeddingConfig struct {
	Provider string `envconfig:"EMBEDDING_PROVIDER"`
	Model    string `envconfig:"EMBEDDING_MODEL"`
	APIKey   string `envconfig:"EMBEDDING_API_KEY"`
	BaseURL  string `envconfig:"EMBEDDING_BASE_URL"`
}

func (c EmbeddingConfig) Enabled() bool {
	return c.Provider != ""
}

func (c EmbeddingConfig) Validate() error {
	if err := validateProvider(c.Provider, true); err != nil {
		return fmt.Errorf("EMBEDDING_PROVIDER: %w", err)
	}
	return nil
}

// ModelName returns the configured model or the provider's default.
func (c EmbeddingConfig) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderGemini {
		return "text-embedding-004"
	}
	return "text-embedding-3-small"
}

// WithDefaults fills the key and base URL from the chat model settings when the
// embedding provider matches it.
func (c EmbeddingConfig) WithDefaults(llm LLMConfig) EmbeddingConfig {
	if c.Provider == llm.Provider {
		if c.APIKey == "" {
			c.APIKey = llm.APIKey
		}
		if c.BaseURL == "" {
			c.BaseURL = llm.BaseURL
		}
	}
	return c
}

type ConversationConfig struct {
	TTL           time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
	MaxTurns      int           `envconfig:"CONVERSATION_MAX_TURNS" default:"40"`
	MaxIterations int           `envconfig:"CONVERSATION_MAX_ITERATIONS" default:"10"`
}

type PromptConfig struct {
	AgentName string `envconfig:"AGENT_NAME" default:"nakari"`
}

func validateProvider(p string, allowEmpty bool) error {
	switch p {
	case ProviderOpenAI, ProviderGemini:
		return nil
	case "":
		if allowEmpty {
			return nil
		}
	}
	return fmt.Errorf("unsupported provider %q", p)
}
