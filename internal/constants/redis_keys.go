package constants

// Redis Key 前缀常量
// 使用统一的命名规范: {app}:{module}:
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "resume"

	// RateLimitModulePrefix 入站限流
	RateLimitModulePrefix = "ratelimit"
	// RewriteModulePrefix 改写结果缓存
	RewriteModulePrefix = "rewrite"

	// KeyRateLimitPrefix 固定窗口计数器 (STRING)
	// 格式: resume:ratelimit:{clientKey}:{windowStart}
	KeyRateLimitPrefix = AppPrefix + ":" + RateLimitModulePrefix + ":"

	// KeyRewriteCachePrefix 改写结果缓存 (STRING)
	// 格式: resume:rewrite:{sha256}
	KeyRewriteCachePrefix = AppPrefix + ":" + RewriteModulePrefix + ":"
)
