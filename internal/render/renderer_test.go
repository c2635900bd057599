package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/types"
)

const optimizedText = `Jane Doe
jane@example.com
Professional Summary
Backend engineer focused on Go services.
Skills
Go, Redis, R&D tooling`

func sampleDocument() *Document {
	original := types.NewSections()
	original[types.SectionWorkExperience] = "Intern at Foo (June 2017)\nEngineer at Acme (January 2020 - March 2023)"
	original[types.SectionEducation] = "BS Computer Science"
	return MergeSections(optimizedText, original, nil)
}

func TestMergeSections(t *testing.T) {
	doc := sampleDocument()

	require.Len(t, doc.Sections, len(types.AllSectionLabels))
	assert.Equal(t, DefaultTitle, doc.Title)

	contact, ok := doc.Section(types.SectionContact)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe\njane@example.com", contact.Body)
	assert.Equal(t, "Contact Information", contact.Title)

	work, _ := doc.Section(types.SectionWorkExperience)
	assert.Equal(t, "Engineer at Acme (January 2020 - March 2023)\nIntern at Foo (June 2017)", work.Body, "缺失的工作经历应沿用原简历并按日期排序")

	edu, _ := doc.Section(types.SectionEducation)
	assert.Equal(t, "BS Computer Science", edu.Body)

	certs, _ := doc.Section(types.SectionCertifications)
	assert.Empty(t, certs.Body)
}

func TestMergeSections_OptimizedWins(t *testing.T) {
	original := types.NewSections()
	original[types.SectionContact] = "Old Name"
	original[types.SectionSkills] = "COBOL"

	doc := MergeSections("New Name\nSkills\nGo", original, nil)
	contact, _ := doc.Section(types.SectionContact)
	skills, _ := doc.Section(types.SectionSkills)
	assert.Equal(t, "New Name", contact.Body)
	assert.Equal(t, "Go", skills.Body)

	doc = MergeSections("Summary\nShort", nil, nil)
	contact, _ = doc.Section(types.SectionContact)
	assert.Empty(t, contact.Body)
}

func TestMergeSections_NoHeadersSkipsFallback(t *testing.T) {
	original := types.NewSections()
	original[types.SectionWorkExperience] = "Engineer at Acme (January 2020 - March 2023)"
	original[types.SectionEducation] = "BS Computer Science"

	doc := MergeSections("Jane Doe\nEngineer at Acme building Go services", original, nil)
	contact, _ := doc.Section(types.SectionContact)
	work, _ := doc.Section(types.SectionWorkExperience)
	edu, _ := doc.Section(types.SectionEducation)
	assert.Equal(t, "Jane Doe\nEngineer at Acme building Go services", contact.Body)
	assert.Empty(t, work.Body, "没有标题时不应重复补充原简历内容")
	assert.Empty(t, edu.Body)
}

func TestMergeSections_UsesExtractor(t *testing.T) {
	text := "Jane Doe\nMy Technical Skills\nGo\nEducation\nBSc"

	doc := MergeSections(text, nil, nil)
	skills, _ := doc.Section(types.SectionSkills)
	assert.Equal(t, "Go", skills.Body)

	doc = MergeSections(text, nil, parser.NewSectionExtractor(parser.WithMaxHeaderWords(2)))
	skills, _ = doc.Section(types.SectionSkills)
	contact, _ := doc.Section(types.SectionContact)
	assert.Empty(t, skills.Body)
	assert.Equal(t, "Jane Doe\nMy Technical Skills\nGo", contact.Body)
}

func TestDocumentPlainText(t *testing.T) {
	doc := &Document{Sections: []Section{
		{Label: types.SectionContact, Title: "Contact Information", Body: "Jane"},
		{Label: types.SectionSkills, Title: "Skills", Body: ""},
	}}
	assert.Equal(t, "Contact Information\nJane", doc.PlainText())

	doc.Text = "raw text"
	assert.Equal(t, "raw text", doc.PlainText())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("", FormatStyled)
	require.NoError(t, err)
	assert.Equal(t, FormatStyled, f)

	f, err = ParseFormat(" DOCX ", FormatBasic)
	require.NoError(t, err)
	assert.Equal(t, FormatDocx, f)

	f, err = ParseFormat("pdf", FormatStyled)
	require.NoError(t, err)
	assert.Equal(t, FormatBasic, f)

	_, err = ParseFormat("html", FormatBasic)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestNewRenderer(t *testing.T) {
	for _, tc := range []struct {
		format      Format
		contentType string
		ext         string
	}{
		{FormatBasic, "application/pdf", ".pdf"},
		{FormatStyled, "application/pdf", ".pdf"},
		{FormatDocx, parser.MIMEDOCX, ".docx"},
	} {
		r, err := NewRenderer(tc.format)
		require.NoError(t, err)
		assert.Equal(t, tc.contentType, r.ContentType())
		assert.Equal(t, tc.ext, r.Extension())
	}

	_, err := NewRenderer("latex")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestBasicPDFRenderer(t *testing.T) {
	r := NewBasicPDFRenderer()

	out, err := r.Render(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	// 长文本需要分页
	long := &Document{Text: strings.Repeat("Line of resume text éà\n", 200)}
	multi, err := r.Render(context.Background(), long)
	require.NoError(t, err)
	pageMarker := []byte("/Type /Page\n")
	assert.Greater(t, bytes.Count(multi, pageMarker), bytes.Count(out, pageMarker))

	_, err = r.Render(context.Background(), nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, sampleDocument())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBasicPDFRenderer_NonASCII(t *testing.T) {
	r := NewBasicPDFRenderer()
	for _, text := range []string{
		"café",
		"2019 – 2021",
		"• Go",
		"Zürich · naïve résumé “quoted” 中文",
		strings.Repeat("Ingénieur logiciel – systèmes distribués • ", 40),
	} {
		out, err := r.Render(context.Background(), &Document{Text: text})
		require.NoError(t, err, text)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), text)
	}
}

func TestStyledPDFRenderer(t *testing.T) {
	r := NewStyledPDFRenderer(Options{FontDir: t.TempDir()})

	out, err := r.Render(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", parser.DetectMIME(out, ""))
}

func TestStyledPDFRenderer_NonASCII(t *testing.T) {
	doc := MergeSections("José Müller\nProfessional Summary\nIngénieur, 2019 – 2021\nSkills\n• Go\n• Kubernetes", nil, nil)

	out, err := NewStyledPDFRenderer(Options{}).Render(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestStyledPDFRenderer_MissingTemplate(t *testing.T) {
	r := NewStyledPDFRenderer(Options{TemplateImage: filepath.Join(t.TempDir(), "missing.png")})
	_, err := r.Render(context.Background(), sampleDocument())
	assert.Error(t, err)
}

func TestDocxRenderer(t *testing.T) {
	r := NewDocxRenderer(Options{})

	out, err := r.Render(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, parser.MIMEDOCX, parser.DetectMIME(out, "resume.docx"))

	text, _, err := parser.NewDocxTextExtractor().ExtractTextFromBytes(context.Background(), out, "resume.docx", nil)
	require.NoError(t, err)
	assert.Contains(t, text, "Optimized Resume")
	assert.Contains(t, text, "Jane Doe\njane@example.com")
	assert.Contains(t, text, "Engineer at Acme (January 2020 - March 2023)")
	assert.Contains(t, text, "Go, Redis, R&D tooling")
	assert.NotContains(t, text, "{{")
}

func TestDocxRenderer_NonASCII(t *testing.T) {
	doc := MergeSections("José Müller\nProfessional Summary\nIngénieur, 2019 – 2021\nSkills\n• Go", nil, nil)

	out, err := NewDocxRenderer(Options{}).Render(context.Background(), doc)
	require.NoError(t, err)
	text, _, err := parser.NewDocxTextExtractor().ExtractTextFromBytes(context.Background(), out, "resume.docx", nil)
	require.NoError(t, err)
	assert.Contains(t, text, "José Müller")
	assert.Contains(t, text, "Ingénieur, 2019 – 2021")
	assert.Contains(t, text, "• Go")
}

func TestDocxRenderer_BodyContainsPlaceholder(t *testing.T) {
	doc := &Document{Sections: []Section{
		{Label: types.SectionContact, Body: "{{CONTACT}}\n{{SUMMARY}} {{TITLE}}"},
		{Label: types.SectionSkills, Body: "{{SKILLS}}"},
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := NewDocxRenderer(Options{}).Render(ctx, doc)
	require.NoError(t, err)

	text, _, err := parser.NewDocxTextExtractor().ExtractTextFromBytes(context.Background(), out, "resume.docx", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(text, "{{CONTACT}}"))
	assert.Equal(t, 1, strings.Count(text, "{{SUMMARY}} {{TITLE}}"))
	assert.Equal(t, 1, strings.Count(text, "{{SKILLS}}"))
	assert.Contains(t, text, DefaultTitle)
}

func TestDocxRenderer_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.docx")
	require.NoError(t, os.WriteFile(path, defaultDocxTemplate, 0o644))

	doc := sampleDocument()
	doc.Title = "Jane Doe Resume"

	out, err := NewDocxRenderer(Options{DocxTemplate: path}).Render(context.Background(), doc)
	require.NoError(t, err)
	text, _, err := parser.NewDocxTextExtractor().ExtractTextFromBytes(context.Background(), out, path, nil)
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe Resume")

	_, err = NewDocxRenderer(Options{DocxTemplate: filepath.Join(t.TempDir(), "missing.docx")}).Render(context.Background(), doc)
	assert.Error(t, err)
}

func TestFillTemplate(t *testing.T) {
	ctx := context.Background()
	content := `<w:body><w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr><w:r><w:t>{{SKILLS}}</w:t></w:r></w:p><w:p><w:r><w:t>tail</w:t></w:r></w:p></w:body>`

	got, err := fillTemplate(ctx, content, map[string]string{"{{SKILLS}}": "Go\n\nC<++>"}, nil)
	require.NoError(t, err)
	assert.Equal(t, `<w:body>`+
		`<w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr><w:r><w:t>Go</w:t></w:r></w:p>`+
		`<w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr><w:r><w:t>C&lt;++&gt;</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>tail</w:t></w:r></w:p></w:body>`, got)

	removed, err := fillTemplate(ctx, content, map[string]string{"{{SKILLS}}": "  "}, nil)
	require.NoError(t, err)
	assert.Equal(t, `<w:body><w:p><w:r><w:t>tail</w:t></w:r></w:p></w:body>`, removed)

	unchanged, err := fillTemplate(ctx, content, map[string]string{"{{NONE}}": "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, content, unchanged)

	// 插入的正文不会再次展开
	self, err := fillTemplate(ctx, content, map[string]string{"{{SKILLS}}": "{{SKILLS}}\n{{SKILLS}}"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(self, "{{SKILLS}}"))

	inline, err := fillTemplate(ctx, `<w:t>{{TITLE}} & {{TITLE}}</w:t>`, nil, map[string]string{"{{TITLE}}": "A&B"})
	require.NoError(t, err)
	assert.Equal(t, `<w:t>A&amp;B & A&amp;B</w:t>`, inline)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = fillTemplate(cancelled, content, map[string]string{"{{SKILLS}}": "Go"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
