package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/nakari-agent/server/internal/agent/conversations"
	"github.com/nakari-agent/server/internal/agent/loop"
	"github.com/nakari-agent/server/internal/agent/model"
	"github.com/nakari-agent/server/internal/agent/prompts"
	"github.com/nakari-agent/server/internal/agent/tools"
	logx "github.com/nakari-agent/server/pkg/logger"
)

// Runner answers one query of a conversation.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (string, error)
}

// Config holds everything needed to assemble the agent end-to-end.
// Embedder and Searcher are optional.
type Config struct {
	ChatModel        einomodel.BaseChatModel
	ModelName        string
	Memory           tools.Memory
	Embedder         tools.Embedder
	Searcher         tools.Searcher
	ConversationRepo model.ConversationRepository
	Conversation     model.ConversationConfig
	Prompt           model.PromptConfig
	Handlers         []callbacks.Handler
	Recorder         loop.Recorder
}

// Agent loads a conversation's history, runs the reasoning loop over it and
// stores the completed exchange.
type Agent struct {
	loop         *loop.Loop
	messages     *conversations.MessagesManager
	systemPrompt string
}

var _ Runner = (*Agent)(nil)

func New(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.Memory == nil {
		return nil, fmt.Errorf("memory is nil")
	}

	var opts []tools.Option
	if cfg.Embedder != nil {
		opts = append(opts, tools.WithEmbedder(cfg.Embedder))
	}
	if cfg.Searcher != nil {
		opts = append(opts, tools.WithSearcher(cfg.Searcher))
	}
	dispatcher := tools.NewDispatcher(cfg.Memory, opts...)

	l, err := loop.New(loop.Config{
		ChatModel:     cfg.ChatModel,
		ModelName:     cfg.ModelName,
		Tools:         tools.Catalog(),
		Executor:      dispatcher,
		MaxIterations: cfg.Conversation.MaxIterations,
		Handlers:      cfg.Handlers,
		Recorder:      cfg.Recorder,
	})
	if err != nil {
		return nil, err
	}

	pctx := ctx
	if len(cfg.Handlers) > 0 {
		pctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      "system_prompt",
			Type:      "DefaultChatTemplate",
			Component: components.ComponentOfPrompt,
		}, cfg.Handlers...)
	}
	systemPrompt, err := prompts.RenderSystem(pctx, cfg.Prompt, prompts.Features{
		EmbeddingEnabled: cfg.Embedder != nil,
		SearchEnabled:    cfg.Searcher != nil,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Str("model", cfg.ModelName).Int("tools", len(tools.Names)).Msg("Agent built successfully")
	return &Agent{
		loop:         l,
		messages:     conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation),
		systemPrompt: systemPrompt,
	}, nil
}

// Invoke runs one query and returns the final answer.
func (a *Agent) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	res, err := a.Run(ctx, in, nil)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// Run is Invoke with a step observer and the full loop result. A failure to
// store the exchange is logged; the answer is still returned.
func (a *Agent) Run(ctx context.Context, in model.QueryInput, observe loop.Observer) (*loop.Result, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, errors.New("query is empty")
	}

	history, err := a.messages.LoadContext(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}

	res, err := a.loop.Run(ctx, a.systemPrompt, history, query, observe)
	if err != nil {
		return nil, err
	}

	if err := a.messages.SaveExchange(ctx, in.ConversationID, query, res.Answer); err != nil {
		logx.Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("failed to save exchange")
	}
	return res, nil
}

// Clear forgets the conversation's history. The memory graph is untouched.
func (a *Agent) Clear(ctx context.Context, conversationID string) error {
	return a.messages.Clear(ctx, conversationID)
}

// SystemPrompt returns the rendered instruction context.
func (a *Agent) SystemPrompt() string {
	return a.systemPrompt
}
