package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRewritePrompt(t *testing.T) {
	msgs := BuildRewritePrompt("  Jane Doe\nSkills\nGo ", " Golang developer ", PromptHints{
		RelevantSkills: []string{"Go", "Docker"},
		Experiences:    []string{"Acme, June 2021", "Initech, March 2019"},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)

	prompt := msgs[1].Content
	assert.Contains(t, prompt, "Rewrite the following resume to better match the given job description.")
	assert.Contains(t, prompt, "Job Description:\nGolang developer\n")
	assert.Contains(t, prompt, "Original Resume:\nJane Doe\nSkills\nGo\n")
	assert.Contains(t, prompt, "Go, Docker")
	assert.Contains(t, prompt, "- Acme, June 2021\n- Initech, March 2019")
	assert.Less(t, strings.Index(prompt, "Job Description:"), strings.Index(prompt, "Original Resume:"))

	plain := BuildRewritePrompt("r", "j", PromptHints{})[1].Content
	assert.NotContains(t, plain, "Most recent work experience")
	assert.NotContains(t, plain, "emphasize")
}

func TestRewriter_SanitizesOutput(t *testing.T) {
	mock := NewMockChatModel("### Professional Summary\n**Senior** engineer\nSenior engineer\n---", nil)
	r := NewRewriter(mock, WithModelOptions(model.WithMaxTokens(100)))

	out, err := r.Rewrite(context.Background(), "resume", "jd", PromptHints{})
	require.NoError(t, err)
	assert.Equal(t, "Professional Summary\nSenior engineer", out)
	require.Len(t, mock.ReceivedOptions, 1)
	require.NotNil(t, mock.ReceivedOptions[0].MaxTokens)
	assert.Equal(t, 100, *mock.ReceivedOptions[0].MaxTokens)
	assert.Contains(t, mock.LastUserPrompt(), "Original Resume:\nresume")
}

func TestRewriter_Errors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewRewriter(NewMockChatModel("", boom)).Rewrite(context.Background(), "r", "j", PromptHints{})
	assert.ErrorIs(t, err, boom)

	_, err = NewRewriter(NewMockChatModel("*** --- ***", nil)).Rewrite(context.Background(), "r", "j", PromptHints{})
	assert.ErrorIs(t, err, ErrEmptyCompletion, "清理后为空应视为空结果")
}

func TestRewriter_Cache(t *testing.T) {
	mock := NewMockChatModelSequential(
		MockResponse{Content: "first"},
		MockResponse{Content: "second"},
	)
	r := NewRewriter(mock, WithRewriteCache(NewInMemoryRewriteCache(time.Minute)), WithCacheNamespace("m"))

	ctx := context.Background()
	out, err := r.Rewrite(ctx, "resume", "jd", PromptHints{})
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, err = r.Rewrite(ctx, "resume", "jd", PromptHints{})
	require.NoError(t, err)
	assert.Equal(t, "first", out, "相同输入应命中缓存")
	assert.Equal(t, 1, mock.Calls())

	out, err = r.Rewrite(ctx, "resume", "another jd", PromptHints{})
	require.NoError(t, err)
	assert.Equal(t, "second", out)
	assert.Equal(t, 2, mock.Calls())
}

func TestInMemoryRewriteCache_TTL(t *testing.T) {
	cache := NewInMemoryRewriteCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "k", "v"))
	v, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "过期条目不应返回")

	_, ok, _ = cache.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMockChatModel_Sequential(t *testing.T) {
	mock := NewMockChatModelSequential()
	_, err := mock.Generate(context.Background(), nil)
	assert.Error(t, err)

	mock = NewMockChatModelSequential(MockResponse{Content: "a"})
	_, err = mock.Generate(context.Background(), nil)
	require.NoError(t, err)
	_, err = mock.Generate(context.Background(), nil)
	assert.Error(t, err, "响应用完后应返回错误")
}
