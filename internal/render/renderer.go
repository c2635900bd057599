package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/types"
)

// Format 输出文档格式
type Format string

const (
	FormatBasic  Format = "basic"
	FormatStyled Format = "styled"
	FormatDocx   Format = "docx"

	// DefaultTitle 文档页眉标题
	DefaultTitle = "Optimized Resume"
)

// ErrUnknownFormat 不支持的输出格式
var ErrUnknownFormat = errors.New("不支持的输出格式")

// Section 文档中的一个章节
type Section struct {
	Label types.SectionLabel `json:"label"`
	Title string             `json:"title"`
	Body  string             `json:"body"`
}

// Document 渲染器的输入
type Document struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
	// Text 完整的优化后文本，basic 渲染器逐行绘制
	Text string `json:"text,omitempty"`
}

// Section 按标签查找章节
func (d *Document) Section(label types.SectionLabel) (Section, bool) {
	for _, s := range d.Sections {
		if s.Label == label {
			return s, true
		}
	}
	return Section{}, false
}

// PlainText 返回文档的纯文本，Text 为空时由非空章节拼接
func (d *Document) PlainText() string {
	if strings.TrimSpace(d.Text) != "" {
		return d.Text
	}
	var parts []string
	for _, s := range d.Sections {
		if strings.TrimSpace(s.Body) == "" {
			continue
		}
		parts = append(parts, s.Title+"\n"+s.Body)
	}
	return strings.Join(parts, "\n\n")
}

// Renderer 文档渲染器
type Renderer interface {
	Render(ctx context.Context, doc *Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// Options 渲染器的公共配置
type Options struct {
	// FontDir 包含 DejaVuSansCondensed.ttf 的目录，为空时使用内置 Helvetica
	FontDir string
	// TemplateImage styled 渲染器的整页背景图
	TemplateImage string
	// DocxTemplate docx 渲染器的模板文件，为空时使用内置模板
	DocxTemplate string
}

// Option 渲染器配置选项
type Option func(*Options)

func WithFontDir(dir string) Option {
	return func(o *Options) { o.FontDir = dir }
}

func WithTemplateImage(path string) Option {
	return func(o *Options) { o.TemplateImage = path }
}

func WithDocxTemplate(path string) Option {
	return func(o *Options) { o.DocxTemplate = path }
}

// ParseFormat 解析格式名，空字符串返回 fallback
func ParseFormat(s string, fallback Format) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return fallback, nil
	case FormatBasic, FormatStyled, FormatDocx:
		return f, nil
	case "pdf":
		return FormatBasic, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
	}
}

// NewRenderer 按格式创建渲染器
func NewRenderer(format Format, options ...Option) (Renderer, error) {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	switch format {
	case FormatBasic:
		return NewBasicPDFRenderer(), nil
	case FormatStyled:
		return NewStyledPDFRenderer(opts), nil
	case FormatDocx:
		return NewDocxRenderer(opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// fallbackLabels 优化结果缺失时沿用原简历内容的章节
var fallbackLabels = map[types.SectionLabel]bool{
	types.SectionContact:        true,
	types.SectionWorkExperience: true,
	types.SectionEducation:      true,
}

// MergeSections 用优化后的文本构建文档，extractor 为 nil 时使用默认配置
// 优化结果中缺失的联系方式、工作经历(按日期排序)和教育经历沿用原简历。
// 优化结果没有任何可识别的标题时全文都在 Contact，此时不再补充原简历内容。
func MergeSections(optimizedText string, original types.Sections, extractor *parser.SectionExtractor) *Document {
	var optimized types.Sections
	if extractor != nil {
		optimized = extractor.Extract(optimizedText)
	} else {
		optimized = parser.ExtractSections(optimizedText)
	}
	if original == nil {
		original = types.NewSections()
	}
	fallback := !onlyContact(optimized)

	doc := &Document{
		Title:    DefaultTitle,
		Text:     optimizedText,
		Sections: make([]Section, 0, len(types.AllSectionLabels)),
	}
	for _, label := range types.AllSectionLabels {
		body := optimized[label]
		if fallback && strings.TrimSpace(body) == "" && fallbackLabels[label] {
			if label == types.SectionWorkExperience {
				body = strings.Join(parser.SortExperiences(original.Lines(label)), "\n")
			} else {
				body = original[label]
			}
		}
		doc.Sections = append(doc.Sections, Section{Label: label, Title: label.Title(), Body: body})
	}
	return doc
}

func onlyContact(sections types.Sections) bool {
	if strings.TrimSpace(sections[types.SectionContact]) == "" {
		return false
	}
	for _, label := range types.AllSectionLabels {
		if label != types.SectionContact && strings.TrimSpace(sections[label]) != "" {
			return false
		}
	}
	return true
}
