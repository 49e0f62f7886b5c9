package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/nakari-agent/server/internal/agent/model"
	errx "github.com/nakari-agent/server/internal/core/error"
	logx "github.com/nakari-agent/server/pkg/logger"
)

const keyPrefix = "nakari:conversation:"

// storedTurn is the Redis encoding of one conversation turn. Tool traffic is
// never persisted, so role and text are enough.
type storedTurn struct {
	Role    schema.RoleType `json:"role"`
	Content string          `json:"content"`
}

// RedisConversationRepository keeps each conversation in a Redis list that
// expires ttl after its last write.
type RedisConversationRepository struct {
	rdb         redis.Cmdable
	ttl         time.Duration
	maxMessages int
}

type RedisOption func(*RedisConversationRepository)

// WithMaxMessages caps the stored list to the newest n entries. Zero keeps everything.
func WithMaxMessages(n int) RedisOption {
	return func(r *RedisConversationRepository) { r.maxMessages = n }
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration, opts ...RedisOption) *RedisConversationRepository {
	r := &RedisConversationRepository{rdb: rdb, ttl: ttl}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func conversationKey(conversationID string) string {
	return keyPrefix + conversationID + ":messages"
}

// AppendMessages pushes messages, trims the list and refreshes the TTL in one transaction.
func (r *RedisConversationRepository) AppendMessages(ctx context.Context, conversationID string, messages ...*schema.Message) error {
	values := make([]any, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		b, err := json.Marshal(storedTurn{Role: m.Role, Content: m.Content})
		if err != nil {
			return fmt.Errorf("marshal turn: %w", err)
		}
		values = append(values, b)
	}
	if len(values) == 0 {
		return nil
	}
	key := conversationKey(conversationID)

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if r.maxMessages > 0 {
			pipe.LTrim(ctx, key, int64(-r.maxMessages), -1)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to append turns to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// LoadHistory decodes the stored list. A corrupt entry fails the whole load.
func (r *RedisConversationRepository) LoadHistory(ctx context.Context, conversationID string) (*model.ConversationHistory, error) {
	key := conversationKey(conversationID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err := errx.WrapRedis(err); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, err
	}

	history := &model.ConversationHistory{ConversationID: conversationID, Messages: make([]*schema.Message, 0, len(rows))}
	for i, row := range rows {
		var turn storedTurn
		if err := json.Unmarshal([]byte(row), &turn); err != nil {
			logx.Warn().Err(err).Str("key", key).Int("index", i).Msg("corrupt conversation entry")
			return nil, fmt.Errorf("decode turn %d of %s: %w", i, conversationID, err)
		}
		history.Messages = append(history.Messages, &schema.Message{Role: turn.Role, Content: turn.Content})
	}
	return history, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, conversationID string) error {
	if err := errx.WrapRedis(r.rdb.Del(ctx, conversationKey(conversationID)).Err()); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to clear conversation history")
		return err
	}
	return nil
}

func (r *RedisConversationRepository) GetMessageCount(ctx context.Context, conversationID string) (int, error) {
	n, err := r.rdb.LLen(ctx, conversationKey(conversationID)).Result()
	if err := errx.WrapRedis(err); err != nil {
		return 0, err
	}
	return int(n), nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
