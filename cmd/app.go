package cmd

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"

	"github.com/nakari-agent/server/internal/agent"
	"github.com/nakari-agent/server/internal/agent/model"
	"github.com/nakari-agent/server/internal/agent/observers"
	"github.com/nakari-agent/server/internal/agent/providers"
	"github.com/nakari-agent/server/internal/agent/repo"
	"github.com/nakari-agent/server/internal/config"
	"github.com/nakari-agent/server/internal/memory"
	logx "github.com/nakari-agent/server/pkg/logger"
	"github.com/nakari-agent/server/pkg/metrics"
)

type appOptions struct {
	withAgent   bool
	metricsAddr string
}

// app owns the process-wide resources one command needs.
type app struct {
	gateway       *memory.Gateway
	agent         *agent.Agent
	searchEnabled bool

	closers []func(ctx context.Context)
}

func buildApp(ctx context.Context, cfg *config.AppConfig, opts appOptions) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	if a.gateway, err = newGateway(ctx, cfg); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(ctx context.Context) {
		if err := a.gateway.Close(ctx); err != nil {
			logx.Warn().Err(err).Msg("failed to close memory gateway")
		}
	})
	if !opts.withAgent {
		return a, nil
	}

	conversationRepo, err := a.newConversationRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}

	chatModel, err := providers.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	agentCfg := agent.Config{
		ChatModel:        chatModel,
		ModelName:        cfg.LLM.Model,
		Memory:           a.gateway,
		ConversationRepo: conversationRepo,
		Conversation:     cfg.Conversation,
		Prompt:           cfg.Prompt,
		Handlers:         []callbacks.Handler{observers.NewAllCallbacks(cfg.LLM.Model)},
	}

	embedder, err := providers.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder != nil {
		agentCfg.Embedder = embedder
	}

	if cfg.Search.Enabled() {
		searchClient, err := cfg.Search.New()
		if err != nil {
			return nil, err
		}
		agentCfg.Searcher = searchClient
		a.searchEnabled = true
	}

	if opts.metricsAddr != "" {
		m := metrics.New()
		serveCtx, cancel := context.WithCancel(context.Background())
		m.Serve(serveCtx, opts.metricsAddr)
		a.closers = append(a.closers, func(context.Context) { cancel() })
		agentCfg.Recorder = m
	}

	if a.agent, err = agent.New(ctx, agentCfg); err != nil {
		return nil, err
	}
	return a, nil
}

func newGateway(ctx context.Context, cfg *config.AppConfig) (*memory.Gateway, error) {
	driver, err := cfg.Neo4j.New()
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	gw := memory.NewGateway(driver, cfg.Neo4j.Database)
	if err := gw.VerifyConnectivity(ctx); err != nil {
		_ = gw.Close(ctx)
		return nil, err
	}
	logx.Debug().Str("uri", cfg.Neo4j.URI).Msg("Connected to Neo4j")
	return gw, nil
}

func (a *app) newConversationRepo(ctx context.Context, cfg *config.AppConfig) (model.ConversationRepository, error) {
	if !cfg.Redis.Enabled() {
		logx.Debug().Msg("REDIS_URL not set; keeping conversation history in memory")
		return repo.NewInMemoryConversationRepository(), nil
	}
	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise Redis client: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) {
		if err := rdb.Close(); err != nil {
			logx.Warn().Err(err).Msg("failed to close redis client")
		}
	})
	logx.Debug().Msg("Connected to Redis successfully")
	return repo.NewRedisConversationRepository(rdb, cfg.Conversation.TTL, repo.WithMaxMessages(cfg.Conversation.MaxTurns)), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}
