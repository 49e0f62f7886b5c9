package conversations

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/nakari-agent/server/internal/agent/model"
)

const defaultMaxTurns = 40

// MessagesManager builds the history window handed to the loop and records
// completed exchanges.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	maxTurns := config.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         maxTurns,
	}
}

// LoadContext returns the most recent turns of a conversation, oldest first.
// The window never starts with an assistant turn.
func (cm *MessagesManager) LoadContext(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	msgs := make([]*schema.Message, 0, len(history.Messages))
	for _, m := range history.Messages {
		if m == nil || strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role != schema.User && m.Role != schema.Assistant {
			continue
		}
		msgs = append(msgs, m)
	}

	recent := trimTail(msgs, cm.maxTurns)
	for len(recent) > 0 && recent[0].Role == schema.Assistant {
		recent = recent[1:]
	}
	return recent, nil
}

// SaveExchange records a user message and the final answer to it.
func (cm *MessagesManager) SaveExchange(ctx context.Context, conversationID, query, answer string) error {
	return cm.conversationRepo.AppendMessages(ctx, conversationID,
		schema.UserMessage(query),
		schema.AssistantMessage(answer, nil),
	)
}

// Clear drops the stored conversation.
func (cm *MessagesManager) Clear(ctx context.Context, conversationID string) error {
	return cm.conversationRepo.ClearHistory(ctx, conversationID)
}

func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if len(messages) <= maxTurns {
		return messages
	}
	return messages[len(messages)-maxTurns:]
}
