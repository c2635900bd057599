package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 定义了 MockChatModel 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatModel 是用于测试的 model.ChatModel 模拟实现
// 配置了 SequentialResponses 时按顺序返回，否则每次返回固定响应
type MockChatModel struct {
	mu sync.Mutex

	ExpectedResponse string
	ExpectedError    error

	SequentialResponses []MockResponse
	ResponseIndex       int

	ReceivedMessages [][]*schema.Message
	ReceivedOptions  []*model.Options
}

var _ model.ChatModel = (*MockChatModel)(nil)

// NewMockChatModel 创建返回固定响应的 MockChatModel
func NewMockChatModel(expectedResponse string, expectedError error) *MockChatModel {
	return &MockChatModel{ExpectedResponse: expectedResponse, ExpectedError: expectedError}
}

// NewMockChatModelSequential 创建按顺序返回不同响应的 MockChatModel
func NewMockChatModelSequential(responses ...MockResponse) *MockChatModel {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("mock model has no responses configured")}}
	}
	return &MockChatModel{SequentialResponses: responses}
}

func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	received := make([]*schema.Message, len(input))
	copy(received, input)
	m.ReceivedMessages = append(m.ReceivedMessages, received)
	m.ReceivedOptions = append(m.ReceivedOptions, model.GetCommonOptions(nil, opts...))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(m.SequentialResponses) > 0 {
		if m.ResponseIndex >= len(m.SequentialResponses) {
			return nil, errors.New("mock model has run out of sequential responses")
		}
		resp := m.SequentialResponses[m.ResponseIndex]
		m.ResponseIndex++
		if resp.Error != nil {
			return nil, resp.Error
		}
		return schema.AssistantMessage(resp.Content, nil), nil
	}

	if m.ExpectedError != nil {
		return nil, m.ExpectedError
	}
	return schema.AssistantMessage(m.ExpectedResponse, nil), nil
}

func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not implemented in MockChatModel")
}

func (m *MockChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// Calls 返回 Generate 被调用的次数
func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ReceivedMessages)
}

// LastUserPrompt 返回最近一次调用中的用户消息内容
func (m *MockChatModel) LastUserPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ReceivedMessages) == 0 {
		return ""
	}
	last := m.ReceivedMessages[len(m.ReceivedMessages)-1]
	for i := len(last) - 1; i >= 0; i-- {
		if last[i].Role == schema.User {
			return last[i].Content
		}
	}
	return ""
}
