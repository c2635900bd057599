package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/tracing"
)

var tracer = otel.Tracer("resume-optimizer/agent")

// Rewriter 调用大模型改写简历
type Rewriter struct {
	model     model.BaseChatModel
	modelName string
	cache     RewriteCache
	opts      []model.Option
	logger    *log.Logger
}

// RewriterOption 改写器配置选项
type RewriterOption func(*Rewriter)

// WithRewriteCache 相同的简历和 JD 直接复用上次结果
func WithRewriteCache(cache RewriteCache) RewriterOption {
	return func(r *Rewriter) {
		r.cache = cache
	}
}

// WithModelOptions 每次调用附加的模型选项
func WithModelOptions(opts ...model.Option) RewriterOption {
	return func(r *Rewriter) {
		r.opts = append(r.opts, opts...)
	}
}

// WithCacheNamespace 缓存键的命名空间，通常是模型名
func WithCacheNamespace(name string) RewriterOption {
	return func(r *Rewriter) {
		r.modelName = name
	}
}

func WithRewriterLogger(logger *log.Logger) RewriterOption {
	return func(r *Rewriter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRewriter 创建改写器
func NewRewriter(m model.BaseChatModel, options ...RewriterOption) *Rewriter {
	r := &Rewriter{
		model:  m,
		logger: log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Rewrite 返回经过清理的改写结果
func (r *Rewriter) Rewrite(ctx context.Context, resumeText, jobDesc string, hints PromptHints) (string, error) {
	ctx, span := tracer.Start(ctx, "Rewriter.Rewrite")
	defer span.End()
	span.SetAttributes(
		attribute.Int("resume.length", len(resumeText)),
		attribute.Int("jd.length", len(jobDesc)),
		tracing.SafeAttr("jd.preview", jobDesc, 64),
	)

	key := r.cacheKey(resumeText, jobDesc)
	if r.cache != nil {
		if cached, ok, err := r.cache.Get(ctx, key); err != nil {
			r.logger.Printf("读取改写缓存失败: %v", err)
		} else if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	msg, err := r.model.Generate(ctx, BuildRewritePrompt(resumeText, jobDesc, hints), r.opts...)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return "", err
	}
	if msg == nil {
		tracing.RecordError(span, ErrEmptyCompletion, tracing.ErrorTypeLLM)
		return "", ErrEmptyCompletion
	}

	optimized := strings.TrimSpace(parser.Sanitize(msg.Content))
	if optimized == "" {
		tracing.RecordError(span, ErrEmptyCompletion, tracing.ErrorTypeLLM)
		return "", ErrEmptyCompletion
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, optimized); err != nil {
			r.logger.Printf("写入改写缓存失败: %v", err)
		}
	}
	span.SetAttributes(attribute.Int("optimized.length", len(optimized)))
	return optimized, nil
}

func (r *Rewriter) cacheKey(resumeText, jobDesc string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", r.modelName, resumeText, jobDesc)
	return hex.EncodeToString(h.Sum(nil))
}

// IsAPIStatus 判断错误是否为指定状态码的 APIError
func IsAPIStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
