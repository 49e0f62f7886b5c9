package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/nakari-agent/server/internal/agent/model"
	errx "github.com/nakari-agent/server/internal/core/error"
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// NewEmbedder creates the embedder selected by cfg. A disabled config yields nil.
func NewEmbedder(ctx context.Context, cfg model.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case model.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg), nil
	case model.ProviderGemini:
		e, err := NewGeminiEmbedder(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
}

type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

func NewOpenAIEmbedder(cfg model.EmbeddingConfig, opts ...option.RequestOption) *OpenAIEmbedder {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAIEmbedder{client: openai.NewClient(reqOpts...), model: cfg.ModelName()}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, errx.WrapProvider(err, "openai embedding")
	}
	if len(resp.Data) == 0 {
		return nil, errx.New(errx.KindProvider, nil, "openai embedding returned no vectors")
	}
	return resp.Data[0].Embedding, nil
}

type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(ctx context.Context, cfg model.EmbeddingConfig) (*GeminiEmbedder, error) {
	client, err := newGenaiClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &GeminiEmbedder{client: client, model: cfg.ModelName()}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, errx.WrapProvider(err, "gemini embedding")
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errx.New(errx.KindProvider, errors.New("empty response"), "gemini embedding returned no vectors")
	}
	values := resp.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}
