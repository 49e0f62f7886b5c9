package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/nakari-agent/server/internal/agent/model"
	"github.com/nakari-agent/server/internal/core"
	"github.com/nakari-agent/server/internal/search"
	pkgneo4j "github.com/nakari-agent/server/pkg/neo4j"
	pkgredis "github.com/nakari-agent/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the agent, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Neo4j pkgneo4j.Config
	Redis pkgredis.Config

	// Providers
	LLM       model.LLMConfig
	Embedding model.EmbeddingConfig
	Search    search.Config

	// Agent configs
	Conversation model.ConversationConfig
	Prompt       model.PromptConfig
}

// Load reads envFile when it exists and then processes the environment. A
// missing envFile is not an error.
func Load(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", envFile, err)
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	cfg.Embedding = cfg.Embedding.WithDefaults(cfg.LLM)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and value ranges. It does not require
// credentials; commands that call a model use ValidateAgent.
func (c *AppConfig) Validate() error {
	switch c.LLM.Provider {
	case model.ProviderOpenAI, model.ProviderGemini:
	default:
		return fmt.Errorf("LLM_PROVIDER: unsupported provider %q", c.LLM.Provider)
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("SEARCH_PROVIDER: %w", err)
	}
	if c.Neo4j.URI == "" {
		return errors.New("NEO4J_URI is required")
	}
	if c.Conversation.MaxIterations < 0 {
		return errors.New("CONVERSATION_MAX_ITERATIONS must not be negative")
	}
	if c.Conversation.MaxTurns < 0 {
		return errors.New("CONVERSATION_MAX_TURNS must not be negative")
	}
	return nil
}

// ValidateAgent checks what running the reasoning loop needs on top of Validate.
func (c *AppConfig) ValidateAgent() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.LLM.Validate()
}
