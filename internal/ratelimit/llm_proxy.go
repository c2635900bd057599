package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"resume-optimizer/internal/agent"
	"resume-optimizer/internal/tracing"
)

// ErrRewriteUnavailable 重试耗尽后改写服务仍不可用
var ErrRewriteUnavailable = errors.New("改写服务暂时不可用")

const (
	DefaultQPM            = 30
	DefaultMaxRetries     = 3
	DefaultRetryWait      = time.Second
	DefaultAttemptTimeout = 60 * time.Second
)

// RateLimitedChatModel 对模型调用进行限流、超时和重试的代理
type RateLimitedChatModel struct {
	original       model.BaseChatModel
	limiter        *rate.Limiter
	maxRetries     int
	retryWait      time.Duration
	attemptTimeout time.Duration
	logger         *log.Logger
}

var _ model.BaseChatModel = (*RateLimitedChatModel)(nil)

// ProxyOption 限流代理的配置选项
type ProxyOption func(*RateLimitedChatModel)

// WithRetryPolicy 设置初始重试等待时间和最大重试次数
func WithRetryPolicy(waitTime time.Duration, maxRetries int) ProxyOption {
	return func(rl *RateLimitedChatModel) {
		if waitTime > 0 {
			rl.retryWait = waitTime
		}
		if maxRetries >= 0 {
			rl.maxRetries = maxRetries
		}
	}
}

// WithAttemptTimeout 设置单次调用的超时时间
func WithAttemptTimeout(timeout time.Duration) ProxyOption {
	return func(rl *RateLimitedChatModel) {
		if timeout > 0 {
			rl.attemptTimeout = timeout
		}
	}
}

func WithProxyLogger(logger *log.Logger) ProxyOption {
	return func(rl *RateLimitedChatModel) {
		if logger != nil {
			rl.logger = logger
		}
	}
}

// NewRateLimitedChatModel 创建限流代理，qpm<=0 时使用默认值
// 桶容量为 QPM 的一半，允许一定的突发流量
func NewRateLimitedChatModel(original model.BaseChatModel, qpm int, options ...ProxyOption) *RateLimitedChatModel {
	if qpm <= 0 {
		qpm = DefaultQPM
	}
	burst := qpm / 2
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimitedChatModel{
		original:       original,
		limiter:        rate.NewLimiter(rate.Limit(float64(qpm)/60.0), burst),
		maxRetries:     DefaultMaxRetries,
		retryWait:      DefaultRetryWait,
		attemptTimeout: DefaultAttemptTimeout,
		logger:         log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(rl)
	}
	return rl
}

// Generate 代理 Generate，等待令牌后调用，可重试错误按指数退避重试
func (rl *RateLimitedChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	span := trace.SpanFromContext(ctx)
	attempt := 0

	operation := func() (*schema.Message, error) {
		attempt++
		if err := rl.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, rl.attemptTimeout)
		defer cancel()

		msg, err := rl.original.Generate(attemptCtx, messages, options...)
		if err == nil {
			return msg, nil
		}
		if ctx.Err() != nil || !IsRetryableError(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = rl.retryWait
	bo.MaxInterval = 8 * rl.retryWait

	msg, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(rl.maxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			rl.logger.Printf("模型调用失败 (第 %d 次)，%v 后重试: %v", attempt, next, err)
			tracing.RecordRetry(span, attempt, err)
		}),
	)
	if err != nil {
		if ctx.Err() == nil && IsRetryableError(err) {
			return nil, fmt.Errorf("%w: 重试 %d 次后失败: %w", ErrRewriteUnavailable, attempt-1, err)
		}
		return nil, err
	}
	return msg, nil
}

// Stream 代理 Stream，只做限流不重试
func (rl *RateLimitedChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := rl.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return rl.original.Stream(ctx, messages, options...)
}

// retryableMessages 无法通过类型识别时按错误消息判断
var retryableMessages = []string{
	"timeout",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"EOF",
	"429 Too Many Requests",
	"rate limit",
	"no such host",
	"server overloaded",
}

// IsRetryableError 判断错误是否为临时性故障
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *agent.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	if errors.Is(err, agent.ErrEmptyCompletion) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	for _, s := range retryableMessages {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}
