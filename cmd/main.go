package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"resume-optimizer/internal/agent"
	"resume-optimizer/internal/api/handler"
	"resume-optimizer/internal/api/router"
	"resume-optimizer/internal/config"
	"resume-optimizer/internal/constants"
	appCoreLogger "resume-optimizer/internal/logger"
	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/processor"
	"resume-optimizer/internal/ratelimit"
	"resume-optimizer/internal/render"
	"resume-optimizer/internal/storage"
	"resume-optimizer/internal/tracing"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := appCoreLogger.Init(appCoreLogger.Config(cfg.Logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	appCoreLogger.SetupHertz()
	glog.Infof("配置加载成功, 服务 %s v%s", constants.ServiceName, constants.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitTracerProvider(ctx, tracing.Config(cfg.Tracing))
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	debug := cfg.Logger.Level == "debug"
	extractor, err := processor.BuildTextExtractor(ctx, cfg, func(prefix string) *log.Logger { return appCoreLogger.Std(prefix, debug) })
	if err != nil {
		glog.Fatalf("初始化文本提取器失败: %v", err)
	}
	glog.Infof("文本提取器初始化成功 (pdf=%s)", cfg.Extractor.PDF)

	rewriter, err := buildRewriter(cfg, storageManager, debug)
	if err != nil {
		glog.Fatalf("初始化改写服务失败: %v", err)
	}

	renderOpts := []render.Option{
		render.WithFontDir(cfg.Render.FontDir),
		render.WithTemplateImage(cfg.Render.TemplateImage),
		render.WithDocxTemplate(cfg.Render.DocxTemplate),
	}
	defaultFormat, err := render.ParseFormat(cfg.Render.DefaultFormat, render.FormatStyled)
	if err != nil {
		glog.Fatalf("render.default_format 配置错误: %v", err)
	}

	components := processor.Components{
		Extractor:  extractor,
		Workspaces: storageManager.Workspaces,
		Renderers: func(format render.Format) (render.Renderer, error) {
			return render.NewRenderer(format, renderOpts...)
		},
	}
	if rewriter != nil {
		components.Rewriter = rewriter
	}
	optimizer, err := processor.NewResumeOptimizer(components,
		processor.WithMaxExperiences(cfg.Parser.MaxExperiences),
		processor.WithDefaultFormat(defaultFormat),
		processor.WithSectionExtractor(parser.NewSectionExtractor(
			parser.WithMaxHeaderWords(cfg.Parser.MaxHeaderWords),
			parser.WithSectionLogger(appCoreLogger.Std("[Sections] ", debug)),
		)),
		processor.WithLogger(appCoreLogger.Std("[Optimizer] ", true)),
	)
	if err != nil {
		glog.Fatalf("初始化简历优化器失败: %v", err)
	}
	glog.Info("简历优化器初始化成功")

	limiter, err := buildLimiter(cfg, storageManager)
	if err != nil {
		glog.Fatalf("初始化限流器失败: %v", err)
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(int(cfg.Upload.MaxSizeBytes())+1024*1024),
		tracer,
	)
	h.Use(router.Recovery())
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(router.RequestLogger())

	router.RegisterRoutes(h, handler.NewResumeHandler(cfg, optimizer), router.Options{
		APIKeys: cfg.Server.APIKeys,
		Limiter: limiter,
	})
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Warnf("关闭链路追踪失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// buildRewriter 组装 OpenAI 模型、限流重试代理与缓存
// 未配置 API Key 时返回 nil，服务只提供分析接口
func buildRewriter(cfg *config.Config, storageManager *storage.Storage, debug bool) (*agent.Rewriter, error) {
	if cfg.LLM.APIKey == "" {
		glog.Warn("未配置 llm.api_key (OPENAI_API_KEY)，改写接口不可用")
		return nil, nil
	}

	timeout := config.GetDuration(cfg.LLM.Timeout, 60*time.Second)
	chatModel, err := agent.NewOpenAIChatModel(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.APIURL,
		agent.WithRequestTimeout(timeout),
		agent.WithDefaultTemperature(float32(cfg.LLM.Temperature)),
		agent.WithDefaultMaxTokens(cfg.LLM.MaxTokens),
		agent.WithModelLogger(appCoreLogger.Std("[OpenAI] ", debug)),
	)
	if err != nil {
		return nil, err
	}

	var llm model.BaseChatModel = ratelimit.NewRateLimitedChatModel(chatModel, cfg.LLM.QPM,
		ratelimit.WithRetryPolicy(time.Duration(cfg.LLM.RetryWaitSeconds)*time.Second, cfg.LLM.MaxRetries),
		ratelimit.WithAttemptTimeout(timeout),
		ratelimit.WithProxyLogger(appCoreLogger.Std("[LLMProxy] ", true)),
	)

	options := []agent.RewriterOption{
		agent.WithCacheNamespace(cfg.LLM.Model),
		agent.WithRewriterLogger(appCoreLogger.Std("[Rewriter] ", true)),
	}
	ttl := config.GetDuration(cfg.Cache.TTL, time.Hour)
	switch cfg.Cache.Type {
	case "memory":
		options = append(options, agent.WithRewriteCache(agent.NewInMemoryRewriteCache(ttl)))
	case "redis":
		if storageManager.Redis == nil {
			glog.Warn("cache.type 为 redis 但 Redis 不可用，改用内存缓存")
			options = append(options, agent.WithRewriteCache(agent.NewInMemoryRewriteCache(ttl)))
			break
		}
		cache, err := agent.NewRedisRewriteCache(storageManager.Redis.Client, cfg.Cache.KeyPrefix, ttl)
		if err != nil {
			return nil, err
		}
		options = append(options, agent.WithRewriteCache(cache))
	}
	glog.Infof("改写服务初始化成功 (model=%s, qpm=%d, cache=%s)", cfg.LLM.Model, cfg.LLM.QPM, cfg.Cache.Type)
	return agent.NewRewriter(llm, options...), nil
}

// buildLimiter 入站限流器，未启用时返回 nil
func buildLimiter(cfg *config.Config, storageManager *storage.Storage) (ratelimit.RequestLimiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	if cfg.RateLimit.Backend == "redis" {
		if storageManager.Redis != nil {
			glog.Infof("使用 Redis 限流: %d 次/分钟", cfg.RateLimit.RequestsPerMinute)
			return ratelimit.NewRedisLimiter(storageManager.Redis.Client, cfg.RateLimit.RequestsPerMinute, time.Minute, cfg.RateLimit.KeyPrefix)
		}
		glog.Warn("rate_limit.backend 为 redis 但 Redis 不可用，改用内存限流")
	}
	glog.Infof("使用内存限流: %d 次/分钟", cfg.RateLimit.RequestsPerMinute)
	return ratelimit.NewMemoryLimiter(cfg.RateLimit.RequestsPerMinute), nil
}
