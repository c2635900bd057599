package parser

import (
	"io"
	"log"
	"regexp"
	"strings"

	"resume-optimizer/internal/types"
)

// discardSection 标记只用于结束当前章节的标题（如 Projects），其正文被丢弃
const discardSection types.SectionLabel = ""

// DefaultMaxHeaderWords 一行被视为章节标题时允许的最大单词数
const DefaultMaxHeaderWords = 6

// sectionTrigger 章节触发关键字
type sectionTrigger struct {
	label   types.SectionLabel
	pattern *regexp.Regexp
}

// 按从具体到宽泛的顺序排列: "relevant experience" 必须先于 "experience" 匹配
var defaultTriggers = []sectionTrigger{
	newTrigger(types.SectionProfessionalSummary, "professional summary", "professional profile", "summary", "objective"),
	newTrigger(types.SectionRelevantExperience, "relevant experience"),
	newTrigger(types.SectionWorkExperience, "work experience", "professional experience", "employment history", "experience"),
	newTrigger(types.SectionEducation, "education"),
	newTrigger(types.SectionCertifications, "certifications", "certification", "licenses", "license"),
	newTrigger(types.SectionSkills, "skills"),
	newTrigger(discardSection, "projects", "references"),
}

func newTrigger(label types.SectionLabel, keywords ...string) sectionTrigger {
	return sectionTrigger{label: label, pattern: wholeWordPattern(keywords...)}
}

// SectionExtractor 单遍扫描的简历章节提取器
// 每行只属于一个章节，各章节正文互不重叠
type SectionExtractor struct {
	triggers       []sectionTrigger
	maxHeaderWords int
	logger         *log.Logger
}

// SectionOption 章节提取器的配置选项
type SectionOption func(*SectionExtractor)

// WithMaxHeaderWords 设置标题行的最大单词数，<=0 表示不限制
func WithMaxHeaderWords(n int) SectionOption {
	return func(e *SectionExtractor) {
		e.maxHeaderWords = n
	}
}

// WithSectionLogger 配置日志记录器
func WithSectionLogger(logger *log.Logger) SectionOption {
	return func(e *SectionExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewSectionExtractor 创建章节提取器
func NewSectionExtractor(options ...SectionOption) *SectionExtractor {
	e := &SectionExtractor{
		triggers:       defaultTriggers,
		maxHeaderWords: DefaultMaxHeaderWords,
		logger:         log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

var defaultSectionExtractor = NewSectionExtractor()

// ExtractSections 使用默认配置提取章节
func ExtractSections(raw string) types.Sections {
	return defaultSectionExtractor.Extract(raw)
}

// Extract 将原始简历文本拆分为章节
// 第一个识别到的标题之前的内容归入 Contact；没有任何标题时全文都是 Contact。
func (e *SectionExtractor) Extract(raw string) types.Sections {
	sections := types.NewSections()
	bodies := make(map[types.SectionLabel][]string, len(types.AllSectionLabels))

	current := types.SectionContact
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if label, ok := e.matchHeader(trimmed); ok {
			current = label
			continue
		}
		if current == discardSection {
			continue
		}
		bodies[current] = append(bodies[current], trimmed)
	}

	for label, lines := range bodies {
		sections[label] = strings.Join(lines, "\n")
	}

	if empty := sections.EmptyLabels(); len(empty) > 0 {
		e.logger.Printf("未找到以下章节或章节为空: %v", empty)
	}
	return sections
}

// matchHeader 判断一行是否为章节标题
// 行内带冒号的 "名称: 值" 形式（如 "LinkedIn Profile: ..."）不是标题
func (e *SectionExtractor) matchHeader(line string) (types.SectionLabel, bool) {
	candidate := strings.TrimSpace(strings.TrimRight(line, ":："))
	if strings.ContainsAny(candidate, ":：") {
		return "", false
	}
	if e.maxHeaderWords > 0 && len(strings.Fields(candidate)) > e.maxHeaderWords {
		return "", false
	}
	for _, t := range e.triggers {
		if t.pattern.MatchString(candidate) {
			return t.label, true
		}
	}
	return "", false
}

// wordClass 组成单词的字符
const wordClass = `\p{L}\p{N}_`

// wholeWordPattern 构建大小写不敏感的整词匹配正则
// 不使用 \b，以便 "C++"、"C#" 这类以符号结尾的词也能按整词匹配
func wholeWordPattern(keywords ...string) *regexp.Regexp {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	if len(quoted) == 0 {
		return regexp.MustCompile(`$^`)
	}
	return regexp.MustCompile(`(?i)(?:^|[^` + wordClass + `])(?:` + strings.Join(quoted, "|") + `)(?:$|[^` + wordClass + `])`)
}

// ContainsWholeWord 判断 text 中是否以整词形式出现 word（大小写不敏感）
func ContainsWholeWord(text, word string) bool {
	if strings.TrimSpace(word) == "" || text == "" {
		return false
	}
	return wholeWordPattern(word).MatchString(text)
}
