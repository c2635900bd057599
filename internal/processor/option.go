package processor

import (
	"io"
	"log"

	"github.com/gofrs/uuid/v5"

	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/render"
)

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	MaxExperiences   int                     // 提示中保留的工作经历条数
	DefaultFormat    render.Format           // 请求未指定格式时使用
	SectionExtractor *parser.SectionExtractor // 章节提取器
	Logger           *log.Logger             // 日志记录器
	NewRequestID     func() (string, error)  // 请求ID生成器
}

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

func defaultSettings() Settings {
	return Settings{
		MaxExperiences:   parser.DefaultMaxExperiences,
		DefaultFormat:    render.FormatStyled,
		SectionExtractor: parser.NewSectionExtractor(),
		Logger:           log.New(io.Discard, "", 0),
		NewRequestID:     newUUIDv7,
	}
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// WithMaxExperiences 设置提示中保留的工作经历条数
func WithMaxExperiences(n int) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.MaxExperiences = n
		}
	}
}

// WithDefaultFormat 设置默认输出格式
func WithDefaultFormat(format render.Format) SettingOpt {
	return func(s *Settings) {
		if format != "" {
			s.DefaultFormat = format
		}
	}
}

// WithSectionExtractor 设置章节提取器
func WithSectionExtractor(extractor *parser.SectionExtractor) SettingOpt {
	return func(s *Settings) {
		if extractor != nil {
			s.SectionExtractor = extractor
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *log.Logger) SettingOpt {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// WithRequestIDGenerator 替换请求ID生成器，测试中使用
func WithRequestIDGenerator(fn func() (string, error)) SettingOpt {
	return func(s *Settings) {
		if fn != nil {
			s.NewRequestID = fn
		}
	}
}
