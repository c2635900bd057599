package ratelimit

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(3)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "第 %d 次应放行", i+1)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok, "超出每分钟配额")

	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "不同客户端互不影响")

	now = now.Add(20 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "20 秒后恢复一个令牌")
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	l := NewMemoryLimiter(1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "old")
	now = now.Add(time.Hour)
	_, _ = l.Allow(context.Background(), "new")
	assert.NotContains(t, l.limiters, "old")
	assert.Contains(t, l.limiters, "new")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, assert.AnError
}

func newLimitedEngine(limiter RequestLimiter) *server.Hertz {
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	h.Use(Middleware(limiter))
	h.POST("/upload", func(c context.Context, ctx *app.RequestContext) {
		ctx.String(consts.StatusOK, "ok")
	})
	h.GET("/upload", func(c context.Context, ctx *app.RequestContext) {
		ctx.String(consts.StatusOK, "ok")
	})
	return h
}

func TestMiddleware(t *testing.T) {
	h := newLimitedEngine(NewMemoryLimiter(1))

	w := ut.PerformRequest(h.Engine, http.MethodPost, "/upload", nil)
	assert.Equal(t, consts.StatusOK, w.Code)

	w = ut.PerformRequest(h.Engine, http.MethodPost, "/upload", nil)
	assert.Equal(t, consts.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "error")

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/upload", nil)
	assert.Equal(t, consts.StatusOK, w.Code, "GET 不受限流影响")
}

func TestMiddleware_FailOpen(t *testing.T) {
	h := newLimitedEngine(failingLimiter{})
	w := ut.PerformRequest(h.Engine, http.MethodPost, "/upload", nil)
	assert.Equal(t, consts.StatusOK, w.Code)
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer client.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		t.Skipf("Redis 不可用 (%s): %v", addr, err)
	}

	l, err := NewRedisLimiter(client, 2, time.Minute, "test:ratelimit:")
	require.NoError(t, err)
	key := "client-" + time.Now().Format("150405.000000")

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewRedisLimiter(nil, 1, time.Minute, "")
	assert.Error(t, err)
}
