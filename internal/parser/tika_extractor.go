package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// TikaTextExtractor 基于 Apache Tika 服务的文本提取器，PDF 和 DOCX 均可处理
type TikaTextExtractor struct {
	// Tika服务器地址，例如 http://localhost:9998
	ServerURL string
	Client    *http.Client
	// 内容类型，为空时按文件内容检测
	contentType     string
	extractMetadata bool
	logger          *log.Logger
}

var _ TextExtractor = (*TikaTextExtractor)(nil)

// TikaOption 定义配置选项函数
type TikaOption func(*TikaTextExtractor)

// WithTikaMetadata 配置是否额外请求 /meta 获取关键元数据
func WithTikaMetadata(extract bool) TikaOption {
	return func(e *TikaTextExtractor) {
		e.extractMetadata = extract
	}
}

// WithTikaContentType 固定请求的 Content-Type
func WithTikaContentType(contentType string) TikaOption {
	return func(e *TikaTextExtractor) {
		e.contentType = contentType
	}
}

// WithTikaLogger 配置自定义日志记录器
func WithTikaLogger(logger *log.Logger) TikaOption {
	return func(e *TikaTextExtractor) {
		e.logger = logger
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaTextExtractor) {
		e.Client.Timeout = timeout
	}
}

// NewTikaTextExtractor 创建一个新的 Tika 文本提取器
func NewTikaTextExtractor(serverURL string, options ...TikaOption) *TikaTextExtractor {
	extractor := &TikaTextExtractor{
		ServerURL:       strings.TrimRight(serverURL, "/"),
		Client:          &http.Client{Timeout: 60 * time.Second},
		extractMetadata: true,
		logger:          log.New(os.Stderr, "[Tika] ", log.LstdFlags),
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor
}

func (e *TikaTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	e.logger.Printf("开始处理文件: %s", filePath)
	return readFileAndExtract(ctx, e, filePath)
}

func (e *TikaTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, options interface{}) (string, map[string]interface{}, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取文件内容失败: %w", err)
	}
	return e.ExtractTextFromBytes(ctx, data, uri, options)
}

func (e *TikaTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error) {
	startTime := time.Now()
	metadata := toMeta(options)
	metadata["extraction_time"] = startTime.Format(time.RFC3339)
	metadata["source_uri"] = uri

	contentType := e.contentType
	if contentType == "" {
		contentType = DetectMIME(data, uri)
	}

	resp, err := e.put(ctx, "/tika", data, uri, contentType, "text/plain")
	if err != nil {
		return "", metadata, err
	}
	defer resp.Body.Close()

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", metadata, fmt.Errorf("读取Tika响应失败: %w", err)
	}
	text := strings.TrimSpace(string(textBytes))

	metadata["text_length"] = len(text)
	metadata["processing_duration_ms"] = time.Since(startTime).Milliseconds()

	if e.extractMetadata {
		raw, err := e.fetchMetadata(ctx, data, uri, contentType)
		if err != nil {
			e.logger.Printf("元数据提取失败: %v, 继续使用基本元数据", err)
		} else {
			for k, v := range raw {
				if isImportantMetadata(k) {
					metadata[k] = v
				}
			}
		}
	}

	e.logger.Printf("文本提取完成: 提取了 %d 个字符 (用时 %.2f秒)", len(text), time.Since(startTime).Seconds())
	return text, metadata, nil
}

func (e *TikaTextExtractor) put(ctx context.Context, path string, data []byte, uri, contentType, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.ServerURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", accept)
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}
	return resp, nil
}

func (e *TikaTextExtractor) fetchMetadata(ctx context.Context, data []byte, uri, contentType string) (map[string]interface{}, error) {
	resp, err := e.put(ctx, "/meta", data, uri, contentType, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var metadata map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("解析元数据JSON失败: %w", err)
	}
	return metadata, nil
}

// 判断元数据字段是否重要
func isImportantMetadata(key string) bool {
	switch key {
	case "xmpTPg:NPages", "dcterms:created", "language", "dc:title", "Content-Type",
		"pdf:PDFVersion", "pdf:docinfo:title", "meta:word-count", "extended-properties:Application":
		return true
	}
	return false
}
