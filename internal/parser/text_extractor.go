package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// 支持的简历MIME类型
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEText = "text/plain"
)

// ErrUnsupportedFormat 无法识别或不支持的文件格式
var ErrUnsupportedFormat = errors.New("不支持的文件格式")

// TextExtractor 文本提取器接口
type TextExtractor interface {
	// ExtractFromFile 从文件提取文本和元数据
	ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error)

	// ExtractTextFromReader 从io.Reader提取文本和元数据
	// uri 仅用于日志和元数据
	ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, options interface{}) (string, map[string]interface{}, error)

	// ExtractTextFromBytes 从字节数组提取文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error)
}

// toMeta 将 options 转换为元数据 map
func toMeta(options interface{}) map[string]interface{} {
	if options == nil {
		return make(map[string]interface{})
	}
	if meta, ok := options.(map[string]interface{}); ok {
		out := make(map[string]interface{}, len(meta))
		for k, v := range meta {
			out[k] = v
		}
		return out
	}
	return map[string]interface{}{"original_options": options}
}

// readFileAndExtract 供各实现复用的 ExtractFromFile
func readFileAndExtract(ctx context.Context, e TextExtractor, filePath string) (string, map[string]interface{}, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", nil, fmt.Errorf("读取文件 %s 失败: %w", filePath, err)
	}
	return e.ExtractTextFromBytes(ctx, data, filePath, map[string]interface{}{"source_file_path": filePath})
}

// PlainTextExtractor 纯文本直接返回
type PlainTextExtractor struct{}

var _ TextExtractor = PlainTextExtractor{}

func (p PlainTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	return readFileAndExtract(ctx, p, filePath)
}

func (p PlainTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, options interface{}) (string, map[string]interface{}, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取文本内容失败: %w", err)
	}
	return p.ExtractTextFromBytes(ctx, data, uri, options)
}

func (p PlainTextExtractor) ExtractTextFromBytes(_ context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error) {
	meta := toMeta(options)
	text := strings.TrimSpace(strings.ReplaceAll(string(bytes.ToValidUTF8(data, nil)), "\r\n", "\n"))
	meta["source_uri"] = uri
	meta["text_length"] = len(text)
	return text, meta, nil
}

// MultiFormatExtractor 根据检测到的MIME类型分发到具体的提取器
type MultiFormatExtractor struct {
	PDF    TextExtractor
	DOCX   TextExtractor
	Text   TextExtractor
	logger *log.Logger
}

var _ TextExtractor = (*MultiFormatExtractor)(nil)

// NewMultiFormatExtractor 创建多格式提取器，docx 或 text 为 nil 时使用内置实现
func NewMultiFormatExtractor(pdf TextExtractor, docx TextExtractor, logger *log.Logger) *MultiFormatExtractor {
	if docx == nil {
		docx = NewDocxTextExtractor()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &MultiFormatExtractor{PDF: pdf, DOCX: docx, Text: PlainTextExtractor{}, logger: logger}
}

// DetectMIME 检测文件的MIME类型，无法识别时退回到扩展名
func DetectMIME(data []byte, filename string) string {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case m.Is(MIMEPDF):
			return MIMEPDF
		case m.Is(MIMEDOCX):
			return MIMEDOCX
		case m.Is(MIMEText):
			return MIMEText
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MIMEPDF
	case ".docx":
		return MIMEDOCX
	case ".txt", ".md":
		return MIMEText
	}
	return mt.String()
}

func (m *MultiFormatExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	return readFileAndExtract(ctx, m, filePath)
}

func (m *MultiFormatExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, options interface{}) (string, map[string]interface{}, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取上传内容失败: %w", err)
	}
	return m.ExtractTextFromBytes(ctx, data, uri, options)
}

func (m *MultiFormatExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error) {
	mimeType := DetectMIME(data, uri)
	m.logger.Printf("检测到文件类型: %s (URI: %s)", mimeType, uri)

	var target TextExtractor
	switch mimeType {
	case MIMEPDF:
		target = m.PDF
	case MIMEDOCX:
		target = m.DOCX
	case MIMEText:
		target = m.Text
	}
	if target == nil {
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	text, meta, err := target.ExtractTextFromBytes(ctx, data, uri, options)
	if err != nil {
		return "", meta, err
	}
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["mime_type"] = mimeType
	return strings.TrimSpace(text), meta, nil
}
