package parser

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br[^>]*/>|<w:cr[^>]*/>`)
	docxTab          = regexp.MustCompile(`<w:tab[^>]*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

// DocxTextExtractor 提取 DOCX 正文文本，每个段落一行
type DocxTextExtractor struct{}

var _ TextExtractor = (*DocxTextExtractor)(nil)

func NewDocxTextExtractor() *DocxTextExtractor {
	return &DocxTextExtractor{}
}

func (e *DocxTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	return readFileAndExtract(ctx, e, filePath)
}

func (e *DocxTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, options interface{}) (string, map[string]interface{}, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取DOCX内容失败: %w", err)
	}
	return e.ExtractTextFromBytes(ctx, data, uri, options)
}

func (e *DocxTextExtractor) ExtractTextFromBytes(_ context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error) {
	metadata := toMeta(options)
	metadata["source_uri"] = uri

	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", metadata, fmt.Errorf("failed to parse docx %s: %w", uri, err)
	}
	defer doc.Close()

	text := DocumentXMLToText(doc.Editable().GetContent())
	metadata["text_length"] = len(text)
	return text, metadata, nil
}

// DocumentXMLToText 将 word/document.xml 内容转换为纯文本
func DocumentXMLToText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = html.UnescapeString(xmlTag.ReplaceAllString(content, ""))

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
