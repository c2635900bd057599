package ratelimit

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

type middlewareConfig struct {
	methods    map[string]bool
	keyFunc    func(ctx *app.RequestContext) string
	retryAfter int
}

// MiddlewareOption 限流中间件选项
type MiddlewareOption func(*middlewareConfig)

// WithMethods 只对指定方法限流，默认只限制 POST
func WithMethods(methods ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.methods = make(map[string]bool, len(methods))
		for _, m := range methods {
			c.methods[m] = true
		}
	}
}

// WithKeyFunc 自定义限流 key，默认使用客户端 IP
func WithKeyFunc(fn func(ctx *app.RequestContext) string) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.keyFunc = fn
		}
	}
}

// Middleware 返回 hertz 限流中间件，超限返回 429
// 限流后端出错时放行并记录日志
func Middleware(limiter RequestLimiter, options ...MiddlewareOption) app.HandlerFunc {
	cfg := &middlewareConfig{
		methods:    map[string]bool{consts.MethodPost: true},
		keyFunc:    func(ctx *app.RequestContext) string { return ctx.ClientIP() },
		retryAfter: 60,
	}
	for _, option := range options {
		option(cfg)
	}

	return func(c context.Context, ctx *app.RequestContext) {
		if limiter == nil || !cfg.methods[string(ctx.Method())] {
			ctx.Next(c)
			return
		}

		key := cfg.keyFunc(ctx)
		allowed, err := limiter.Allow(c, key)
		if err != nil {
			hlog.CtxWarnf(c, "限流器不可用，放行请求 (key=%s): %v", key, err)
			ctx.Next(c)
			return
		}
		if !allowed {
			hlog.CtxInfof(c, "请求被限流: key=%s path=%s", key, ctx.Path())
			ctx.Response.Header.Set("Retry-After", strconv.Itoa(cfg.retryAfter))
			ctx.AbortWithStatusJSON(consts.StatusTooManyRequests, utils.H{"error": "请求过于频繁，请稍后再试"})
			return
		}
		ctx.Next(c)
	}
}
