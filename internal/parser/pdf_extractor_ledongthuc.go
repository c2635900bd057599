package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// LocalPDFTextExtractor 纯 Go 的 PDF 文本提取，不依赖外部服务
type LocalPDFTextExtractor struct {
	logger *log.Logger
}

var _ TextExtractor = (*LocalPDFTextExtractor)(nil)

// NewLocalPDFTextExtractor 创建本地 PDF 提取器，logger 为 nil 时输出到标准错误
func NewLocalPDFTextExtractor(logger *log.Logger) *LocalPDFTextExtractor {
	if logger == nil {
		logger = log.New(os.Stderr, "[LocalPDF] ", log.LstdFlags)
	}
	return &LocalPDFTextExtractor{logger: logger}
}

func (e *LocalPDFTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	return readFileAndExtract(ctx, e, filePath)
}

func (e *LocalPDFTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, options interface{}) (string, map[string]interface{}, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取PDF内容失败: %w", err)
	}
	return e.ExtractTextFromBytes(ctx, data, uri, options)
}

func (e *LocalPDFTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error) {
	startTime := time.Now()
	metadata := toMeta(options)
	metadata["source_uri"] = uri

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", metadata, fmt.Errorf("failed to read pdf %s: %w", uri, err)
	}

	var b strings.Builder
	numPages := pdfReader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", metadata, err
		}
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Printf("第 %d 页提取失败: %v", i, err)
			continue
		}
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteString("\n")
		}
	}

	fullText := strings.TrimSpace(b.String())
	metadata["page_count"] = numPages
	metadata["text_length"] = len(fullText)
	metadata["processing_duration_ms"] = time.Since(startTime).Milliseconds()
	e.logger.Printf("PDF提取完成: %d 页, %d 个字符", numPages, len(fullText))
	return fullText, metadata, nil
}
