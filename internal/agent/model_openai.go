package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultOpenAIAPIURL = "https://api.openai.com/v1/chat/completions"
	defaultModelName    = "gpt-4o-mini"

	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 1500
	defaultHTTPTimeout         = 60 * time.Second
)

// ErrEmptyCompletion 模型返回了空内容
var ErrEmptyCompletion = errors.New("模型返回了空内容")

// APIError 补全接口返回了非 200 状态码
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API 请求失败，状态 %s: %s", e.Status, e.Body)
}

// OpenAIChatModel 实现 model.ChatModel，对接任意 OpenAI 兼容的 /chat/completions 接口
type OpenAIChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature float32
	maxTokens   int
	httpClient  *http.Client
	logger      *log.Logger
}

var _ model.ChatModel = (*OpenAIChatModel)(nil)

// OpenAIOption 模型客户端的配置选项
type OpenAIOption func(*OpenAIChatModel)

func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(m *OpenAIChatModel) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithRequestTimeout 设置单次 HTTP 请求超时
func WithRequestTimeout(timeout time.Duration) OpenAIOption {
	return func(m *OpenAIChatModel) {
		if timeout > 0 {
			m.httpClient.Timeout = timeout
		}
	}
}

func WithDefaultTemperature(t float32) OpenAIOption {
	return func(m *OpenAIChatModel) {
		m.temperature = t
	}
}

func WithDefaultMaxTokens(n int) OpenAIOption {
	return func(m *OpenAIChatModel) {
		if n > 0 {
			m.maxTokens = n
		}
	}
}

func WithModelLogger(logger *log.Logger) OpenAIOption {
	return func(m *OpenAIChatModel) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewOpenAIChatModel 创建模型客户端，modelName 和 apiURL 为空时使用默认值
func NewOpenAIChatModel(apiKey, modelName, apiURL string, options ...OpenAIOption) (*OpenAIChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultModelName
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultOpenAIAPIURL
	}

	m := &OpenAIChatModel{
		apiKey:      apiKey,
		modelName:   modelName,
		apiURL:      apiURL,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		logger:      log.New(os.Stderr, "[LLM] ", log.LstdFlags),
	}
	for _, option := range options {
		option(m)
	}
	m.logger.Printf("使用 OpenAI 兼容 LLM 客户端，API URL: %s, 模型: %s", m.apiURL, m.modelName)
	return m, nil
}

// ModelName 返回默认模型名
func (m *OpenAIChatModel) ModelName() string {
	return m.modelName
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int `json:"index"`
		Message      struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate 发送一次非流式补全请求
func (m *OpenAIChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: &m.temperature,
		MaxTokens:   &m.maxTokens,
		Model:       &m.modelName,
	}, opts...)

	reqPayload := chatCompletionRequest{
		Model:       *options.Model,
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		reqPayload.Messages = append(reqPayload.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	m.logger.Printf("收到响应: Status=%s, 用时 %dms, 长度 %d", httpResp.Status, time.Since(start).Milliseconds(), len(bodyBytes))

	if httpResp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Status: httpResp.Status, Body: truncateBody(string(bodyBytes))}
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil ||
		strings.TrimSpace(*resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyCompletion
	}

	choice := resp.Choices[0]
	role := schema.RoleType(choice.Message.Role)
	if role == "" {
		role = schema.Assistant
	}
	return &schema.Message{
		Role:    role,
		Content: strings.TrimSpace(*choice.Message.Content),
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: choice.FinishReason,
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		},
	}, nil
}

// Stream 未实现，改写只需要完整结果
func (m *OpenAIChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OpenAIChatModel 不支持 Stream")
}

// BindTools 改写场景不使用工具调用
func (m *OpenAIChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) > 0 {
		m.logger.Printf("忽略 %d 个工具绑定", len(tools))
	}
	return nil
}

func truncateBody(body string) string {
	const max = 512
	if len(body) > max {
		return body[:max] + "..."
	}
	return body
}
