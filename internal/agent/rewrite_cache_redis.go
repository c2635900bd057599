package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resume-optimizer/internal/constants"
)

// RedisRewriteCache 使用 Redis 保存改写结果，多实例共享
type RedisRewriteCache struct {
	redisClient redis.UniversalClient
	keyPrefix   string        // 例如 "resume:rewrite:"，以避免键冲突
	ttl         time.Duration // 为 0 时不过期
}

// NewRedisRewriteCache 创建 RedisRewriteCache
func NewRedisRewriteCache(client redis.UniversalClient, keyPrefix string, ttl time.Duration) (*RedisRewriteCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = constants.KeyRewriteCachePrefix
	}
	return &RedisRewriteCache{
		redisClient: client,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
	}, nil
}

func (c *RedisRewriteCache) buildKey(key string) string {
	return c.keyPrefix + key
}

func (c *RedisRewriteCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.redisClient.Get(ctx, c.buildKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get rewrite cache %s: %w", key, err)
	}
	return val, true, nil
}

func (c *RedisRewriteCache) Set(ctx context.Context, key string, value string) error {
	if err := c.redisClient.Set(ctx, c.buildKey(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set rewrite cache %s: %w", key, err)
	}
	return nil
}
