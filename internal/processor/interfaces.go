package processor

import (
	"context"

	"resume-optimizer/internal/agent"
	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/render"
	"resume-optimizer/internal/storage"
)

// ResumeRewriter 简历改写接口，由 agent.Rewriter 实现
type ResumeRewriter interface {
	Rewrite(ctx context.Context, resumeText, jobDesc string, hints agent.PromptHints) (string, error)
}

var _ ResumeRewriter = (*agent.Rewriter)(nil)

// RendererFactory 按输出格式返回渲染器
type RendererFactory func(format render.Format) (render.Renderer, error)

// Components 聚合所有功能组件依赖，便于集中管理和测试替换
type Components struct {
	Extractor  parser.TextExtractor      // 文本提取
	Rewriter   ResumeRewriter            // 改写服务，为 nil 时只能 Analyze
	Renderers  RendererFactory           // 为 nil 时使用 render.NewRenderer 的默认配置
	Workspaces storage.WorkspaceProvider // 为 nil 时不落盘
}
