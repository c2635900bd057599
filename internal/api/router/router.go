package router

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/middlewares/server/recovery"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"resume-optimizer/internal/api/handler"
	"resume-optimizer/internal/ratelimit"
)

// HeaderAPIKey 携带 API Key 的请求头
const HeaderAPIKey = "X-API-Key"

var errInvalidAPIKey = errors.New("invalid api key")

// Options 路由可选配置
type Options struct {
	// APIKeys 非空时 /resume 接口需要认证
	APIKeys []string
	// Limiter 为 nil 时不限流
	Limiter ratelimit.RequestLimiter
}

// RequestLogger 记录请求方法、路径、状态码与耗时
func RequestLogger() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		hlog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		hlog.CtxInfof(c, "Response: status %d (%v)", ctx.Response.StatusCode(), time.Since(start))
	}
}

// Recovery 将处理过程中的 panic 转为 500 JSON 响应
func Recovery() app.HandlerFunc {
	return recovery.Recovery(recovery.WithRecoveryHandler(func(c context.Context, ctx *app.RequestContext, err interface{}, stack []byte) {
		hlog.CtxErrorf(c, "[Recovery] %s %s panic: %v\n%s", string(ctx.Method()), string(ctx.Path()), err, stack)
		ctx.AbortWithStatusJSON(consts.StatusInternalServerError, utils.H{"error": "服务器内部错误"})
	}))
}

// APIKeyAuth 校验请求头中的 API Key
func APIKeyAuth(keys []string) app.HandlerFunc {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+HeaderAPIKey, ""),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			if _, ok := allowed[key]; ok {
				return true, nil
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
			hlog.CtxWarnf(c, "API Key 校验失败: %v", err)
			ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "缺少或无效的 API Key"})
		}),
	)
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, opts Options) {
	api := h.Group("/api/v1")

	// 健康检查不需要认证和限流
	api.GET("/health", resumeHandler.Health)

	var middlewares []app.HandlerFunc
	if len(opts.APIKeys) > 0 {
		middlewares = append(middlewares, APIKeyAuth(opts.APIKeys))
	}
	if opts.Limiter != nil {
		middlewares = append(middlewares, ratelimit.Middleware(opts.Limiter))
	}

	resume := api.Group("/resume", middlewares...)
	resume.POST("/optimize", resumeHandler.Optimize)
	resume.POST("/analyze", resumeHandler.Analyze)
	resume.POST("/preview", resumeHandler.Preview)
}
