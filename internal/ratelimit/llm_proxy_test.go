package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/agent"
)

func TestRateLimitedChatModel_RetriesTransientErrors(t *testing.T) {
	mock := agent.NewMockChatModelSequential(
		agent.MockResponse{Error: &agent.APIError{StatusCode: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}},
		agent.MockResponse{Error: io.ErrUnexpectedEOF},
		agent.MockResponse{Content: "ok"},
	)
	rl := NewRateLimitedChatModel(mock, 6000, WithRetryPolicy(time.Millisecond, 3))

	msg, err := rl.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, 3, mock.Calls())
}

func TestRateLimitedChatModel_Exhausted(t *testing.T) {
	transient := &agent.APIError{StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests"}
	mock := agent.NewMockChatModel("", transient)
	rl := NewRateLimitedChatModel(mock, 6000, WithRetryPolicy(time.Millisecond, 2))

	_, err := rl.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRewriteUnavailable)
	assert.True(t, agent.IsAPIStatus(err, http.StatusTooManyRequests), "应保留最后一次错误")
	assert.Equal(t, 3, mock.Calls(), "首次调用加两次重试")
}

func TestRateLimitedChatModel_PermanentError(t *testing.T) {
	badRequest := &agent.APIError{StatusCode: http.StatusBadRequest, Status: "400 Bad Request"}
	mock := agent.NewMockChatModel("", badRequest)
	rl := NewRateLimitedChatModel(mock, 6000, WithRetryPolicy(time.Millisecond, 3))

	_, err := rl.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRewriteUnavailable)
	assert.True(t, agent.IsAPIStatus(err, http.StatusBadRequest))
	assert.Equal(t, 1, mock.Calls(), "不可重试错误不应重试")
}

func TestRateLimitedChatModel_CanceledContext(t *testing.T) {
	mock := agent.NewMockChatModel("ok", nil)
	rl := NewRateLimitedChatModel(mock, 6000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rl.Generate(ctx, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRewriteUnavailable)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&agent.APIError{StatusCode: 500}, true},
		{&agent.APIError{StatusCode: 429}, true},
		{&agent.APIError{StatusCode: 401}, false},
		{fmt.Errorf("wrapped: %w", &agent.APIError{StatusCode: 502}), true},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{agent.ErrEmptyCompletion, false},
		{io.EOF, true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("invalid api key"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableError(tt.err), "%v", tt.err)
	}
}
