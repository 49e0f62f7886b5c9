package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository stores the long-lived transcript of a conversation.
// Only user turns and final assistant answers are kept; tool traffic stays
// inside a single loop run.
type ConversationRepository interface {
	// AppendMessages appends messages to the conversation in order.
	AppendMessages(ctx context.Context, conversationID string, messages ...*schema.Message) error

	// LoadHistory returns the full stored transcript, oldest first.
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes the conversation.
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of stored messages.
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}
