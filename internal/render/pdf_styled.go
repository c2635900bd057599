package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	unicodeFontFamily = "DejaVu"
	unicodeFontFile   = "DejaVuSansCondensed.ttf"
	coreFontFamily    = "Helvetica"
)

// StyledPDFRenderer 带页眉、章节标题和可选背景模板的 PDF
type StyledPDFRenderer struct {
	opts Options
}

var _ Renderer = (*StyledPDFRenderer)(nil)

func NewStyledPDFRenderer(opts Options) *StyledPDFRenderer {
	return &StyledPDFRenderer{opts: opts}
}

func (r *StyledPDFRenderer) ContentType() string { return "application/pdf" }

func (r *StyledPDFRenderer) Extension() string { return ".pdf" }

func (r *StyledPDFRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	templateImage := r.opts.TemplateImage
	if templateImage != "" {
		if _, err := os.Stat(templateImage); err != nil {
			return nil, fmt.Errorf("模板图片不可用: %w", err)
		}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	bodyFamily, bodyTr := coreFontFamily, tr
	if fontPath := r.unicodeFontPath(); fontPath != "" {
		pdf.AddUTF8Font(unicodeFontFamily, "", fontPath)
		bodyFamily, bodyTr = unicodeFontFamily, func(s string) string { return s }
	}

	title := doc.Title
	if title == "" {
		title = DefaultTitle
	}
	pageW, pageH := pdf.GetPageSize()
	pdf.SetHeaderFunc(func() {
		if templateImage != "" {
			pdf.ImageOptions(templateImage, 0, 0, pageW, pageH, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		}
		pdf.SetFont(coreFontFamily, "B", 12)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	})

	pdf.AddPage()
	for _, s := range doc.Sections {
		if strings.TrimSpace(s.Body) == "" {
			continue
		}
		pdf.SetFont(coreFontFamily, "B", 12)
		pdf.CellFormat(0, 10, tr(s.Title), "", 1, "L", false, 0, "")
		pdf.Ln(2)

		pdf.SetFont(bodyFamily, "", 11)
		pdf.MultiCell(0, 6, bodyTr(strings.TrimSpace(s.Body)), "", "L", false)
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("生成PDF失败: %w", err)
	}
	return buf.Bytes(), nil
}

// unicodeFontPath FontDir 下存在 DejaVu 字体时返回其路径
func (r *StyledPDFRenderer) unicodeFontPath() string {
	if r.opts.FontDir == "" {
		return ""
	}
	path := filepath.Join(r.opts.FontDir, unicodeFontFile)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
