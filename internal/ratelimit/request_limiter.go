package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"resume-optimizer/internal/constants"
)

// DefaultRequestsPerMinute 每个客户端每分钟允许的请求数
const DefaultRequestsPerMinute = 3

// RequestLimiter 入站请求限流器
type RequestLimiter interface {
	// Allow 判断 key 对应的客户端是否还能发起请求
	Allow(ctx context.Context, key string) (bool, error)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter 进程内按 key 维护令牌桶
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

// NewMemoryLimiter 每个 key 每分钟最多 perMinute 次，允许一次性用完
func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	return &MemoryLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.limiters[key]
	if !ok {
		m.sweep(now)
		entry = &limiterEntry{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1), nil
}

// sweep 清理长时间未访问的 key，调用方持有锁
func (m *MemoryLimiter) sweep(now time.Time) {
	for k, e := range m.limiters {
		if now.Sub(e.lastSeen) > m.idleTTL {
			delete(m.limiters, k)
		}
	}
}

// RedisLimiter 基于 Redis 固定窗口计数，多实例共享配额
type RedisLimiter struct {
	client    redis.UniversalClient
	limit     int64
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

// NewRedisLimiter 每个 key 在 window 内最多 limit 次
func NewRedisLimiter(client redis.UniversalClient, limit int, window time.Duration, keyPrefix string) (*RedisLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if limit <= 0 {
		limit = DefaultRequestsPerMinute
	}
	if window <= 0 {
		window = time.Minute
	}
	if keyPrefix == "" {
		keyPrefix = constants.KeyRateLimitPrefix
	}
	return &RedisLimiter{client: client, limit: int64(limit), window: window, keyPrefix: keyPrefix, now: time.Now}, nil
}

func (r *RedisLimiter) windowKey(key string) string {
	bucket := r.now().UnixNano() / int64(r.window)
	return r.keyPrefix + key + ":" + strconv.FormatInt(bucket, 10)
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := r.windowKey(key)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit for %s: %w", key, err)
	}
	return incr.Val() <= r.limit, nil
}
