package processor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-optimizer/internal/agent"
	"resume-optimizer/internal/constants"
	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/render"
	"resume-optimizer/internal/storage"
	"resume-optimizer/internal/tracing"
	"resume-optimizer/internal/types"
)

var tracer = otel.Tracer("resume-optimizer/processor")

// Input 一次优化请求的输入
type Input struct {
	FileName       string
	Data           []byte
	JobDescription string
	// Format 输出格式，为空时使用默认格式
	Format string
}

// Result 优化结果
type Result struct {
	RequestID         string          `json:"request_id"`
	ATSScore          float64         `json:"ats_score"`
	OptimizedATSScore float64         `json:"optimized_ats_score"`
	OptimizedText     string          `json:"optimized_text"`
	Document          []byte          `json:"-"`
	FileName          string          `json:"file_name,omitempty"`
	ContentType       string          `json:"content_type,omitempty"`
	Analysis          *types.Analysis `json:"analysis"`
}

// ResumeOptimizer 简历优化流水线
// 提取 -> 评分 -> 分章节 -> 排序/筛选 -> 改写 -> 合并 -> 渲染
type ResumeOptimizer struct {
	Components
	settings Settings
}

// NewResumeOptimizer 创建优化器，Extractor 为必需组件
func NewResumeOptimizer(components Components, opts ...SettingOpt) (*ResumeOptimizer, error) {
	if components.Extractor == nil {
		return nil, errors.New("processor: 缺少文本提取器")
	}
	settings := defaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if components.Renderers == nil {
		components.Renderers = func(format render.Format) (render.Renderer, error) {
			return render.NewRenderer(format)
		}
	}
	return &ResumeOptimizer{Components: components, settings: settings}, nil
}

// request 单次请求的中间状态
type request struct {
	id        string
	workspace storage.Workspace
	text      string
	sections  types.Sections
	analysis  *types.Analysis
}

// Analyze 只做提取和分析，不调用改写服务
func (p *ResumeOptimizer) Analyze(ctx context.Context, in Input) (*types.Analysis, error) {
	ctx, span := tracer.Start(ctx, "ResumeOptimizer.Analyze")
	defer span.End()

	req, err := p.begin(ctx, span, in, "analyze")
	if err != nil {
		return nil, err
	}
	defer p.release(ctx, req)
	return req.analysis, nil
}

// Preview 改写但不渲染文档
func (p *ResumeOptimizer) Preview(ctx context.Context, in Input) (*Result, error) {
	ctx, span := tracer.Start(ctx, "ResumeOptimizer.Preview")
	defer span.End()

	req, err := p.begin(ctx, span, in, "preview")
	if err != nil {
		return nil, err
	}
	defer p.release(ctx, req)

	optimized, err := p.rewrite(ctx, span, req, in.JobDescription)
	if err != nil {
		return nil, err
	}
	return p.result(req, optimized, in.JobDescription), nil
}

// Optimize 完整流水线，返回渲染后的文档
func (p *ResumeOptimizer) Optimize(ctx context.Context, in Input) (*Result, error) {
	ctx, span := tracer.Start(ctx, "ResumeOptimizer.Optimize")
	defer span.End()

	// 格式错误在调用改写服务之前返回
	format, err := render.ParseFormat(in.Format, p.settings.DefaultFormat)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, newOptimizeError("", "optimize", ErrInvalidFormat, in.Format, nil)
	}
	renderer, err := p.Renderers(format)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, newOptimizeError("", "optimize", ErrInvalidFormat, string(format), err)
	}
	span.SetAttributes(attribute.String("render.format", string(format)))

	req, err := p.begin(ctx, span, in, "optimize")
	if err != nil {
		return nil, err
	}
	defer p.release(ctx, req)

	optimized, err := p.rewrite(ctx, span, req, in.JobDescription)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	doc := render.MergeSections(optimized, req.sections, p.settings.SectionExtractor)
	data, err := renderer.Render(ctx, doc)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRender)
		return nil, newOptimizeError(req.id, "render", ErrRenderFailed, string(format), err)
	}
	p.settings.Logger.Printf("[%s] 文档渲染完成: 格式=%s 大小=%d字节 用时=%v", req.id, format, len(data), time.Since(start))

	fileName := constants.WorkspaceOutputName + renderer.Extension()
	if req.workspace != nil {
		if _, err := req.workspace.Put(ctx, fileName, data); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeStorage)
			return nil, newOptimizeError(req.id, "save_output", ErrWorkspaceFailed, fileName, err)
		}
	}

	res := p.result(req, optimized, in.JobDescription)
	res.Document = data
	res.FileName = fileName
	res.ContentType = renderer.ContentType()
	return res, nil
}

// begin 校验输入、打开工作区、提取文本并完成分析
func (p *ResumeOptimizer) begin(ctx context.Context, span trace.Span, in Input, op string) (*request, error) {
	if len(in.Data) == 0 || strings.TrimSpace(in.JobDescription) == "" {
		tracing.RecordError(span, ErrEmptyInput, tracing.ErrorTypeValidation)
		return nil, newOptimizeError("", op, ErrEmptyInput, "", nil)
	}

	id, err := p.settings.NewRequestID()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, newOptimizeError("", op, ErrWorkspaceFailed, "生成请求ID失败", err)
	}
	span.SetAttributes(
		attribute.String("request.id", id),
		attribute.String("resume.file_name", in.FileName),
		attribute.Int("resume.size", len(in.Data)),
	)
	req := &request{id: id}

	if p.Workspaces != nil {
		ws, err := p.Workspaces.Open(ctx, id)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeStorage)
			return nil, newOptimizeError(id, "open_workspace", ErrWorkspaceFailed, "", err)
		}
		req.workspace = ws
		uploadName := constants.WorkspaceUploadName + strings.ToLower(filepath.Ext(in.FileName))
		ref, err := ws.Put(ctx, uploadName, in.Data)
		if err != nil {
			p.release(ctx, req)
			tracing.RecordError(span, err, tracing.ErrorTypeStorage)
			return nil, newOptimizeError(id, "save_upload", ErrWorkspaceFailed, uploadName, err)
		}
		p.settings.Logger.Printf("[%s] 上传文件已保存: %s", id, ref)
	}

	text, _, err := p.Extractor.ExtractTextFromBytes(ctx, in.Data, in.FileName, map[string]interface{}{
		"request_id": id,
	})
	if err != nil {
		p.release(ctx, req)
		tracing.RecordError(span, err, tracing.ErrorTypeExtract)
		if errors.Is(err, parser.ErrUnsupportedFormat) {
			return nil, newOptimizeError(id, "extract", ErrUnsupportedFormat, in.FileName, nil)
		}
		return nil, newOptimizeError(id, "extract", ErrExtractFailed, in.FileName, err)
	}
	if strings.TrimSpace(text) == "" {
		p.release(ctx, req)
		tracing.RecordError(span, ErrExtractFailed, tracing.ErrorTypeExtract)
		return nil, newOptimizeError(id, "extract", ErrExtractFailed, "未提取到任何文本", nil)
	}
	req.text = text
	req.sections = p.settings.SectionExtractor.Extract(text)
	req.analysis = p.analyze(id, text, req.sections, in.JobDescription)

	span.SetAttributes(
		attribute.Int("resume.text_length", len(text)),
		attribute.Float64("ats.score", req.analysis.ATSScore),
		attribute.Int("skills.relevant", len(req.analysis.RelevantSkills)),
	)
	if empty := req.sections.EmptyLabels(); len(empty) > 0 {
		p.settings.Logger.Printf("[%s] 未识别到的章节: %v", id, empty)
	}
	return req, nil
}

func (p *ResumeOptimizer) analyze(id, text string, sections types.Sections, jobDesc string) *types.Analysis {
	experiences := parser.TopExperiences(parser.ExperienceEntries(sections), p.settings.MaxExperiences)
	return &types.Analysis{
		RequestID:      id,
		ATSScore:       parser.ATSScore(text, jobDesc),
		Sections:       sections,
		RelevantSkills: parser.RelevantSkills(parser.SkillCandidates(sections), jobDesc),
		Experiences:    experiences,
	}
}

func (p *ResumeOptimizer) rewrite(ctx context.Context, span trace.Span, req *request, jobDesc string) (string, error) {
	if p.Rewriter == nil {
		tracing.RecordError(span, ErrRewriterNotEnabled, tracing.ErrorTypeInternal)
		return "", newOptimizeError(req.id, "rewrite", ErrRewriterNotEnabled, "", nil)
	}
	start := time.Now()
	optimized, err := p.Rewriter.Rewrite(ctx, req.text, jobDesc, agent.PromptHints{
		RelevantSkills: req.analysis.RelevantSkills,
		Experiences:    req.analysis.Experiences,
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return "", newOptimizeError(req.id, "rewrite", ErrRewriteFailed, "", err)
	}
	p.settings.Logger.Printf("[%s] 改写完成: %d 字符, 用时 %v", req.id, len(optimized), time.Since(start))
	return optimized, nil
}

func (p *ResumeOptimizer) result(req *request, optimized, jobDesc string) *Result {
	return &Result{
		RequestID:         req.id,
		ATSScore:          req.analysis.ATSScore,
		OptimizedATSScore: parser.ATSScore(optimized, jobDesc),
		OptimizedText:     optimized,
		Analysis:          req.analysis,
	}
}

// release 释放工作区，请求被取消时仍然执行
func (p *ResumeOptimizer) release(ctx context.Context, req *request) {
	if req == nil || req.workspace == nil {
		return
	}
	ws := req.workspace
	req.workspace = nil
	if err := ws.Release(context.WithoutCancel(ctx)); err != nil {
		p.settings.Logger.Printf("[%s] 释放工作区失败: %v", req.id, err)
	}
}

