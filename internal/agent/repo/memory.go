package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/nakari-agent/server/internal/agent/model"
)

// InMemoryConversationRepository keeps conversations in process memory. It is
// used when no Redis URL is configured; history is lost on exit.
type InMemoryConversationRepository struct {
	mu    sync.RWMutex
	convs map[string][]*schema.Message
}

func NewInMemoryConversationRepository() *InMemoryConversationRepository {
	return &InMemoryConversationRepository{convs: map[string][]*schema.Message{}}
}

func (r *InMemoryConversationRepository) AppendMessages(_ context.Context, conversationID string, messages ...*schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[conversationID] = append(r.convs[conversationID], messages...)
	return nil
}

func (r *InMemoryConversationRepository) LoadHistory(_ context.Context, conversationID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.convs[conversationID]
	msgs := make([]*schema.Message, len(stored))
	copy(msgs, stored)
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *InMemoryConversationRepository) ClearHistory(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, conversationID)
	return nil
}

func (r *InMemoryConversationRepository) GetMessageCount(_ context.Context, conversationID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.convs[conversationID]), nil
}

var _ model.ConversationRepository = (*InMemoryConversationRepository)(nil)
