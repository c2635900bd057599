package agent

import (
	"context"
	"sync"
	"time"
)

// RewriteCache 缓存改写结果，键由模型名、简历和 JD 共同决定
type RewriteCache interface {
	// Get 不存在时返回 ok=false 和 nil 错误
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// InMemoryRewriteCache 进程内的 RewriteCache 实现，仅用于单实例和测试
type InMemoryRewriteCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryRewriteCache ttl 为 0 表示不过期
func NewInMemoryRewriteCache(ttl time.Duration) *InMemoryRewriteCache {
	return &InMemoryRewriteCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *InMemoryRewriteCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *InMemoryRewriteCache) Set(_ context.Context, key string, value string) error {
	entry := memoryEntry{value: value}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}
