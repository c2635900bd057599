package render

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"resume-optimizer/internal/types"
)

//go:embed templates/resume_template.docx
var defaultDocxTemplate []byte

const titlePlaceholder = "{{TITLE}}"

var placeholderPattern = regexp.MustCompile(`\{\{[A-Z_]+\}\}`)

// docxPlaceholders 模板中每个章节正文对应的占位符
var docxPlaceholders = map[types.SectionLabel]string{
	types.SectionContact:             "{{CONTACT}}",
	types.SectionProfessionalSummary: "{{SUMMARY}}",
	types.SectionRelevantExperience:  "{{RELEVANT_EXPERIENCE}}",
	types.SectionWorkExperience:      "{{WORK_EXPERIENCE}}",
	types.SectionEducation:           "{{EDUCATION}}",
	types.SectionSkills:              "{{SKILLS}}",
	types.SectionCertifications:      "{{CERTIFICATIONS}}",
}

// DocxRenderer 填充 Word 模板
type DocxRenderer struct {
	opts Options
}

var _ Renderer = (*DocxRenderer)(nil)

func NewDocxRenderer(opts Options) *DocxRenderer {
	return &DocxRenderer{opts: opts}
}

func (r *DocxRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func (r *DocxRenderer) Extension() string { return ".docx" }

func (r *DocxRenderer) open() (*docx.ReplaceDocx, error) {
	if r.opts.DocxTemplate != "" {
		return docx.ReadDocxFile(r.opts.DocxTemplate)
	}
	return docx.ReadDocxFromMemory(bytes.NewReader(defaultDocxTemplate), int64(len(defaultDocxTemplate)))
}

func (r *DocxRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tpl, err := r.open()
	if err != nil {
		return nil, fmt.Errorf("读取docx模板失败: %w", err)
	}
	defer tpl.Close()

	title := doc.Title
	if title == "" {
		title = DefaultTitle
	}
	paragraphs := make(map[string]string, len(docxPlaceholders))
	for label, placeholder := range docxPlaceholders {
		var body string
		if s, ok := doc.Section(label); ok {
			body = s.Body
		}
		paragraphs[placeholder] = body
	}

	editable := tpl.Editable()
	content, err := fillTemplate(ctx, editable.GetContent(), paragraphs, map[string]string{titlePlaceholder: title})
	if err != nil {
		return nil, err
	}
	editable.SetContent(content)

	var buf bytes.Buffer
	if err := editable.Write(&buf); err != nil {
		return nil, fmt.Errorf("生成docx失败: %w", err)
	}
	return buf.Bytes(), nil
}

// fillTemplate 单遍扫描并替换模板中的占位符，插入的正文不会被再次扫描
// paragraphs 中的占位符按正文行复制所在段落，正文为空时删除该段落；inline 中的占位符原位替换
func fillTemplate(ctx context.Context, content string, paragraphs, inline map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(content))
	rest := content
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		loc := placeholderPattern.FindStringIndex(rest)
		if loc == nil {
			b.WriteString(rest)
			return b.String(), nil
		}
		placeholder := rest[loc[0]:loc[1]]

		if value, ok := inline[placeholder]; ok {
			b.WriteString(rest[:loc[0]])
			b.WriteString(escapeXML(value))
			rest = rest[loc[1]:]
			continue
		}
		body, ok := paragraphs[placeholder]
		if !ok {
			// 未知占位符原样保留
			b.WriteString(rest[:loc[1]])
			rest = rest[loc[1]:]
			continue
		}

		start := paragraphStart(rest[:loc[0]])
		rel := strings.Index(rest[loc[1]:], "</w:p>")
		if start < 0 || rel < 0 {
			// 占位符不在段落内，按纯文本替换
			b.WriteString(rest[:loc[0]])
			b.WriteString(escapeXML(body))
			rest = rest[loc[1]:]
			continue
		}
		end := loc[1] + rel + len("</w:p>")
		b.WriteString(rest[:start])
		for _, line := range bodyLines(body) {
			b.WriteString(rest[start:loc[0]])
			b.WriteString(escapeXML(line))
			b.WriteString(rest[loc[1]:end])
		}
		rest = rest[end:]
	}
}

// paragraphStart 返回最后一个 <w:p> 或 <w:p ...> 开始标签的位置
func paragraphStart(s string) int {
	for i := len(s); i > 0; {
		j := strings.LastIndex(s[:i], "<w:p")
		if j < 0 {
			return -1
		}
		next := s[j+len("<w:p"):]
		if strings.HasPrefix(next, ">") || strings.HasPrefix(next, " ") {
			return j
		}
		// <w:pPr> 等
		i = j
	}
	return -1
}

func bodyLines(body string) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
