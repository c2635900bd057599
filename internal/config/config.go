package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"resume-optimizer/internal/constants"
)

// Config 应用程序配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upload    UploadConfig    `yaml:"upload"`
	LLM       LLMConfig       `yaml:"llm"`
	Extractor ExtractorConfig `yaml:"extractor"`
	// Tika服务器配置
	Tika      TikaConfig      `yaml:"tika"`
	Render    RenderConfig    `yaml:"render"`
	Storage   StorageConfig   `yaml:"storage"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Parser    ParserConfig    `yaml:"parser"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ServerConfig 定义服务器配置
type ServerConfig struct {
	Address string `yaml:"address"` // 例如 ":8080" or "0.0.0.0:8080"
	// APIKeys 非空时所有 /api/v1/resume 接口需要携带 API Key
	APIKeys         []string `yaml:"api_keys"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

// UploadConfig 上传校验
type UploadConfig struct {
	MaxSizeMB    int      `yaml:"max_size_mb"`
	AllowedTypes []string `yaml:"allowed_types"` // MIME 类型
}

// MaxSizeBytes 上传文件大小上限(字节)
func (u UploadConfig) MaxSizeBytes() int64 {
	return int64(u.MaxSizeMB) * 1024 * 1024
}

// LLMConfig 改写服务配置 (OpenAI 兼容接口)
type LLMConfig struct {
	APIKey           string  `yaml:"api_key"`
	APIURL           string  `yaml:"api_url"`
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	Timeout          string  `yaml:"timeout"` // 单次请求超时，例如 "60s"
	QPM              int     `yaml:"qpm"`     // 每分钟请求数限制
	MaxRetries       int     `yaml:"max_retries"`
	RetryWaitSeconds int     `yaml:"retry_wait_seconds"`
}

// ExtractorConfig 文本提取器选择
type ExtractorConfig struct {
	// PDF 解析器类型: eino, tika, ledongthuc
	PDF     string `yaml:"pdf"`
	Timeout string `yaml:"timeout"`
}

// TikaConfig Tika服务器配置结构
type TikaConfig struct {
	ServerURL    string `yaml:"server_url"`      // Tika服务器URL
	Timeout      int    `yaml:"timeout_seconds"` // 超时时间(秒)
	MetadataMode string `yaml:"metadata_mode"`   // 元数据模式: "full", "none"
	// AllFormats 为 true 时 DOCX 也交给 Tika 解析
	AllFormats bool `yaml:"all_formats"`
}

// RenderConfig 文档渲染配置
type RenderConfig struct {
	DefaultFormat string `yaml:"default_format"` // basic, styled, docx
	FontDir       string `yaml:"font_dir"`
	TemplateImage string `yaml:"template_image"`
	DocxTemplate  string `yaml:"docx_template"`
}

// StorageConfig 请求工作区配置
type StorageConfig struct {
	Type      string `yaml:"type"` // local, minio
	UploadDir string `yaml:"upload_dir"`
}

// MinIOConfig MinIO配置结构
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"`
	Location        string `yaml:"location"` // 可选，存储桶区域
	// 对象过期天数，请求结束未清理的对象由生命周期规则删除
	ExpireDays        int  `yaml:"expire_days"`
	EnableTestLogging bool `yaml:"enable_test_logging,omitempty"`
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`      // 连接池大小
	MinIdleConns int `yaml:"min_idle_conns"` // 最小空闲连接数
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`  // 连接超时(秒)
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`  // 读取超时(秒)
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"` // 写入超时(秒)
	// 重试设置
	MaxRetries        int `yaml:"max_retries"`          // 最大重试次数
	MinRetryBackoffMS int `yaml:"min_retry_backoff_ms"` // 最小重试间隔(毫秒)
	MaxRetryBackoffMS int `yaml:"max_retry_backoff_ms"` // 最大重试间隔(毫秒)
	// 连接生命周期
	ConnMaxLifetimeMinutes int  `yaml:"conn_max_lifetime_minutes"`  // 连接最大生命周期(分钟)
	ConnMaxIdleTimeMinutes int  `yaml:"conn_max_idle_time_minutes"` // 空闲连接最大生命周期(分钟)
	EnableTracing          bool `yaml:"enable_tracing"`
}

// RateLimitConfig 入站请求限流
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Backend           string `yaml:"backend"` // memory, redis
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	KeyPrefix         string `yaml:"key_prefix"`
}

// CacheConfig 改写结果缓存
type CacheConfig struct {
	Type      string `yaml:"type"` // none, memory, redis
	TTL       string `yaml:"ttl"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ParserConfig 章节解析参数
type ParserConfig struct {
	MaxHeaderWords int `yaml:"max_header_words"`
	MaxExperiences int `yaml:"max_experiences"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
	File         string `yaml:"file"`          // 可选，同时写入文件
}

// TracingConfig OpenTelemetry 配置，endpoint 为空时不导出
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
	Insecure    bool    `yaml:"insecure"`
}

// searchPaths 未指定配置文件时依次查找的位置
func searchPaths() []string {
	paths := []string{
		"config.yaml",
		filepath.Join("internal", "config", "config.yaml"),
		filepath.Join("..", "config.yaml"),
	}
	if execPath, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(execPath), "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".resume-optimizer", "config.yaml"))
	}
	return paths
}

// LoadConfig 从文件加载配置
// 先加载 .env，再读取 YAML，最后用环境变量覆盖并补齐默认值。
// configPath 为空且找不到配置文件时返回默认配置。
func LoadConfig(configPath string) (*Config, error) {
	// .env 是可选的
	_ = godotenv.Load()

	if configPath == "" {
		for _, path := range searchPaths() {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
	}

	config := &Config{}
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("配置文件不存在: %s", configPath)
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	applyEnvOverrides(config)
	applyDefaults(config)
	return config, nil
}

// LoadConfigFromFileOnly 从文件加载配置，不读取环境变量
func LoadConfigFromFileOnly(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("必须提供配置文件路径")
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	applyDefaults(&config)
	return &config, nil
}

// applyEnvOverrides 从环境变量覆盖配置（如果存在）
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		config.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_URL"); v != "" {
		config.LLM.APIURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		config.Server.Address = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.Redis.Address = v
	}
	if v := os.Getenv("TIKA_SERVER_URL"); v != "" {
		config.Tika.ServerURL = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		config.Tracing.Endpoint = v
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.RateLimit.RequestsPerMinute = n
		}
	}
}

// applyDefaults 设置默认值
func applyDefaults(config *Config) {
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Server.ShutdownTimeout == "" {
		config.Server.ShutdownTimeout = "5s"
	}

	if config.Upload.MaxSizeMB <= 0 {
		config.Upload.MaxSizeMB = 10
	}
	if len(config.Upload.AllowedTypes) == 0 {
		config.Upload.AllowedTypes = []string{
			"application/pdf",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"text/plain",
		}
	}

	if config.LLM.APIURL == "" {
		config.LLM.APIURL = "https://api.openai.com/v1/chat/completions"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4o-mini"
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.MaxTokens <= 0 {
		config.LLM.MaxTokens = 1500
	}
	if config.LLM.Timeout == "" {
		config.LLM.Timeout = "60s"
	}
	if config.LLM.QPM <= 0 {
		config.LLM.QPM = 30
	}
	if config.LLM.MaxRetries <= 0 {
		config.LLM.MaxRetries = 3
	}
	if config.LLM.RetryWaitSeconds <= 0 {
		config.LLM.RetryWaitSeconds = 1
	}

	if config.Extractor.PDF == "" {
		config.Extractor.PDF = "eino"
	}
	if config.Extractor.Timeout == "" {
		config.Extractor.Timeout = "30s"
	}
	if config.Tika.Timeout <= 0 {
		config.Tika.Timeout = 60
	}

	if config.Render.DefaultFormat == "" {
		config.Render.DefaultFormat = "styled"
	}

	if config.Storage.Type == "" {
		config.Storage.Type = "local"
	}
	if config.Storage.UploadDir == "" {
		config.Storage.UploadDir = filepath.Join(os.TempDir(), "resume-optimizer")
	}
	if config.MinIO.BucketName == "" {
		config.MinIO.BucketName = "resume-workspace"
	}
	if config.MinIO.ExpireDays <= 0 {
		config.MinIO.ExpireDays = 1
	}

	if config.Redis.PoolSize <= 0 {
		config.Redis.PoolSize = 10
	}
	if config.Redis.DialTimeoutSeconds <= 0 {
		config.Redis.DialTimeoutSeconds = 5
	}
	if config.Redis.ReadTimeoutSeconds <= 0 {
		config.Redis.ReadTimeoutSeconds = 3
	}
	if config.Redis.WriteTimeoutSeconds <= 0 {
		config.Redis.WriteTimeoutSeconds = 3
	}

	if config.RateLimit.Backend == "" {
		config.RateLimit.Backend = "memory"
	}
	if config.RateLimit.RequestsPerMinute <= 0 {
		config.RateLimit.RequestsPerMinute = 3
	}
	if config.RateLimit.KeyPrefix == "" {
		config.RateLimit.KeyPrefix = constants.KeyRateLimitPrefix
	}

	if config.Cache.Type == "" {
		config.Cache.Type = "none"
	}
	if config.Cache.KeyPrefix == "" {
		config.Cache.KeyPrefix = constants.KeyRewriteCachePrefix
	}
	if config.Cache.TTL == "" {
		config.Cache.TTL = "1h"
	}

	if config.Parser.MaxHeaderWords <= 0 {
		config.Parser.MaxHeaderWords = 6
	}
	if config.Parser.MaxExperiences <= 0 {
		config.Parser.MaxExperiences = 5
	}

	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}
	if config.Logger.Format == "" {
		config.Logger.Format = "pretty"
	}
	if config.Logger.TimeFormat == "" {
		config.Logger.TimeFormat = "2006-01-02 15:04:05"
	}

	if config.Tracing.ServiceName == "" {
		config.Tracing.ServiceName = constants.ServiceName
	}
	if config.Tracing.SampleRatio <= 0 {
		config.Tracing.SampleRatio = 1
	}
}

// DefaultConfig 返回只包含默认值的配置
func DefaultConfig() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

// CreateSampleConfig 创建一个示例配置文件
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}
	return nil
}

// IsAllowedType 判断 MIME 类型是否在上传白名单中
func (c *Config) IsAllowedType(mimeType string) bool {
	for _, t := range c.Upload.AllowedTypes {
		if strings.EqualFold(t, mimeType) {
			return true
		}
	}
	return false
}

// GetDuration utility to parse duration strings from config
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}
