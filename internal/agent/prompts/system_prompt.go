package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/nakari-agent/server/internal/agent/model"
	"github.com/nakari-agent/server/internal/agent/tools"
)

//go:embed template/system_prompt.txt
var coreSystemPrompt string

// Features tells the prompt which optional tools are wired.
type Features struct {
	EmbeddingEnabled bool
	SearchEnabled    bool
}

// RenderSystem renders the agent's system prompt through the eino prompt
// component, so prompt callbacks fire when ctx carries handlers.
func RenderSystem(ctx context.Context, config model.PromptConfig, features Features) (string, error) {
	name := config.AgentName
	if name == "" {
		name = "nakari"
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	vars := map[string]any{
		"AgentName":        name,
		"QueryTool":        tools.ToolMemoryQuery,
		"WriteTool":        tools.ToolMemoryWrite,
		"SchemaTool":       tools.ToolMemorySchema,
		"EmbeddingTool":    tools.ToolEmbedding,
		"SearchTool":       tools.ToolWebSearch,
		"EmbeddingEnabled": features.EmbeddingEnabled,
		"SearchEnabled":    features.SearchEnabled,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}
