package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orderdesk-ai/server/internal/agent/model"
	errx "github.com/orderdesk-ai/server/internal/core/error"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// RedisMemoryRepository persists one ConversationMemory snapshot per
// conversation. A missing key yields a fresh empty memory so a new
// conversation needs no setup step.
type RedisMemoryRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisMemoryRepository(rdb redis.Cmdable, ttl time.Duration) *RedisMemoryRepository {
	return &RedisMemoryRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisMemoryRepository) memoryKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:memory", conversationID)
}

func (r *RedisMemoryRepository) Load(ctx context.Context, conversationID string) (*model.ConversationMemory, error) {
	key := r.memoryKey(conversationID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return model.NewConversationMemory(), nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation memory from redis")
		return nil, errx.WrapRedis(err)
	}

	var mem model.ConversationMemory
	if err := json.Unmarshal([]byte(raw), &mem); err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to unmarshal conversation memory")
		return nil, fmt.Errorf("unmarshal conversation memory: %w", err)
	}
	return &mem, nil
}

func (r *RedisMemoryRepository) Save(ctx context.Context, conversationID string, mem *model.ConversationMemory) error {
	if mem == nil {
		mem = model.NewConversationMemory()
	}
	b, err := json.Marshal(mem)
	if err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to marshal conversation memory")
		return fmt.Errorf("marshal conversation memory: %w", err)
	}
	key := r.memoryKey(conversationID)

	// extend TTL on touch
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save conversation memory to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisMemoryRepository) Clear(ctx context.Context, conversationID string) error {
	key := r.memoryKey(conversationID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation memory from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.MemoryRepository = (*RedisMemoryRepository)(nil)
