package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/answerflow/types"
)

const redisKeyPrefix = "answerflow:answer:"

// RedisCache is the optional exact-key tier: same normalized question,
// same entry, shared across processes. Misses fall through to the
// semantic tier, and any Redis failure is a miss.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates the tier against an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "redis_cache")),
	}
}

// Lookup implements Store.
func (r *RedisCache) Lookup(ctx context.Context, query string) (*Entry, bool) {
	data, err := r.client.Get(ctx, r.key(query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis lookup failed, treating as miss", zap.Error(err))
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupted payload: evict and miss.
		r.logger.Warn("evicting corrupted redis entry",
			zap.String("code", string(types.ErrCacheCorruption)),
			zap.Error(err))
		r.client.Del(ctx, r.key(query))
		return nil, false
	}
	return &entry, true
}

// Store implements Store. Last-write-wins, TTL reset on every write.
func (r *RedisCache) Store(ctx context.Context, query string, entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("redis store marshal failed", zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, r.key(query), data, r.ttl).Err(); err != nil {
		r.logger.Warn("redis store failed", zap.Error(err))
	}
}

func (r *RedisCache) key(query string) string {
	return redisKeyPrefix + types.ContentHash(normalizeQuery(query))
}

// normalizeQuery folds case and whitespace so trivially different
// spellings of the same question share an exact key.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
