package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// letter 纸张，单位 pt
const (
	basicFontSize    = 12
	basicLeftMargin  = 50
	basicTopY        = 42
	basicLineHeight  = 15
	basicBottomLimit = 742
)

// BasicPDFRenderer 逐行绘制纯文本，超出底部边距换页
type BasicPDFRenderer struct{}

var _ Renderer = (*BasicPDFRenderer)(nil)

func NewBasicPDFRenderer() *BasicPDFRenderer {
	return &BasicPDFRenderer{}
}

func (r *BasicPDFRenderer) ContentType() string { return "application/pdf" }

func (r *BasicPDFRenderer) Extension() string { return ".pdf" }

func (r *BasicPDFRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", basicFontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	maxWidth := pageW - 2*basicLeftMargin

	pdf.AddPage()
	y := float64(basicTopY)
	for _, line := range strings.Split(doc.PlainText(), "\n") {
		// tr 输出 cp1252 字节，只能按字节计算宽度
		wrapped := pdf.SplitLines([]byte(tr(line)), maxWidth)
		if len(wrapped) == 0 {
			wrapped = [][]byte{nil}
		}
		for _, w := range wrapped {
			pdf.Text(basicLeftMargin, y, string(w))
			y += basicLineHeight
			if y > basicBottomLimit {
				pdf.AddPage()
				y = basicTopY
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("生成PDF失败: %w", err)
	}
	return buf.Bytes(), nil
}
