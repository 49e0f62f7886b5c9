package providers

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/nakari-agent/server/internal/agent/model"
	logx "github.com/nakari-agent/server/pkg/logger"
)

const geminiThinkingBudget = 2000

// NewChatModel creates the reasoning model selected by cfg.Provider. The
// returned model still needs tools bound before use.
func NewChatModel(ctx context.Context, cfg model.LLMConfig) (einomodel.BaseChatModel, error) {
	switch cfg.Provider {
	case model.ProviderGemini:
		cm, err := NewGeminiChatModel(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return cm, nil
	case model.ProviderOpenAI:
		return NewOpenAIChatModel(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

func newGenaiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiChatModel creates a Gemini chat model through eino-ext.
func NewGeminiChatModel(ctx context.Context, cfg model.LLMConfig) (*gemini.ChatModel, error) {
	client, err := newGenaiClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(geminiThinkingBudget)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini chat model")
		return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
	}
	return cm, nil
}
