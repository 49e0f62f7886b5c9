package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakari-agent/server/internal/agent/model"
	"github.com/nakari-agent/server/internal/core"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, model.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.User)
	assert.Equal(t, 24*time.Hour, cfg.Conversation.TTL)
	assert.Equal(t, 40, cfg.Conversation.MaxTurns)
	assert.Equal(t, 10, cfg.Conversation.MaxIterations)
	assert.Equal(t, "nakari", cfg.Prompt.AgentName)
	assert.Equal(t, 20*time.Second, cfg.Search.Timeout)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Embedding.Enabled())
	assert.False(t, cfg.Search.Enabled())
}

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "ENVIRONMENT=production\n" +
		"LLM_PROVIDER=gemini\n" +
		"LLM_API_KEY=llm-key\n" +
		"LLM_MODEL=gemini-2.5-flash\n" +
		"EMBEDDING_PROVIDER=gemini\n" +
		"NEO4J_URI=bolt://graph:7687\n" +
		"REDIS_URL=redis://cache:6379/0\n" +
		"SEARCH_PROVIDER=brave\n" +
		"SEARCH_API_KEY=search-key\n" +
		"CONVERSATION_MAX_ITERATIONS=4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// t.Setenv restores each variable once the test ends, including the ones
	// godotenv sets.
	for _, k := range []string{"ENVIRONMENT", "LLM_PROVIDER", "LLM_API_KEY", "LLM_MODEL", "EMBEDDING_PROVIDER",
		"NEO4J_URI", "REDIS_URL", "SEARCH_PROVIDER", "SEARCH_API_KEY", "CONVERSATION_MAX_ITERATIONS"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, core.Production, cfg.Environment)
	assert.Equal(t, model.ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, "brave", cfg.Search.Provider)
	assert.True(t, cfg.Search.Enabled())
	assert.Equal(t, 4, cfg.Conversation.MaxIterations)
	assert.Equal(t, "llm-key", cfg.Embedding.APIKey)
	assert.Equal(t, "text-embedding-004", cfg.Embedding.ModelName())
	require.NoError(t, cfg.ValidateAgent())
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *AppConfig {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.LLM.Provider = "anthropic"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Embedding.Provider = "cohere"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Search.Provider = "bing"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Neo4j.URI = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.LLM.APIKey = ""
	assert.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateAgent())
}
