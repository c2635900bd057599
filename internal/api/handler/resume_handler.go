package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-optimizer/internal/config"
	"resume-optimizer/internal/constants"
	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/processor"
	"resume-optimizer/internal/ratelimit"
	"resume-optimizer/internal/types"
)

// 表单字段名
const (
	FieldResume         = "resume"
	FieldJobDescription = "job_description"
	FieldFormat         = "format"
)

// 响应头
const (
	HeaderRequestID         = "X-Request-ID"
	HeaderATSScore          = "X-ATS-Score"
	HeaderOptimizedATSScore = "X-Optimized-ATS-Score"
)

// ResumeOptimizer 处理器依赖的优化流水线
type ResumeOptimizer interface {
	Analyze(ctx context.Context, in processor.Input) (*types.Analysis, error)
	Optimize(ctx context.Context, in processor.Input) (*processor.Result, error)
	Preview(ctx context.Context, in processor.Input) (*processor.Result, error)
}

// ResumeHandler 简历优化接口
type ResumeHandler struct {
	cfg       *config.Config
	optimizer ResumeOptimizer
}

// NewResumeHandler 创建一个新的简历处理器
func NewResumeHandler(cfg *config.Config, optimizer ResumeOptimizer) *ResumeHandler {
	return &ResumeHandler{cfg: cfg, optimizer: optimizer}
}

// requestError 请求校验失败，携带 HTTP 状态码
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// readInput 读取并校验 multipart 表单
func (h *ResumeHandler) readInput(ctx *app.RequestContext) (processor.Input, error) {
	fileHeader, err := ctx.FormFile(FieldResume)
	if err != nil {
		return processor.Input{}, &requestError{status: consts.StatusBadRequest, msg: "缺少简历文件字段 " + FieldResume}
	}

	maxSize := h.cfg.Upload.MaxSizeBytes()
	if maxSize > 0 && fileHeader.Size > maxSize {
		return processor.Input{}, &requestError{
			status: consts.StatusRequestEntityTooLarge,
			msg:    fmt.Sprintf("文件大小超过限制 %dMB", h.cfg.Upload.MaxSizeMB),
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return processor.Input{}, &requestError{status: consts.StatusBadRequest, msg: "打开上传文件失败"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return processor.Input{}, &requestError{status: consts.StatusBadRequest, msg: "读取上传文件失败"}
	}
	if len(data) == 0 {
		return processor.Input{}, &requestError{status: consts.StatusBadRequest, msg: "上传文件为空"}
	}

	mimeType := parser.DetectMIME(data, fileHeader.Filename)
	if !h.cfg.IsAllowedType(mimeType) {
		return processor.Input{}, &requestError{
			status: consts.StatusUnsupportedMediaType,
			msg:    fmt.Sprintf("不支持的文件类型: %s", mimeType),
		}
	}

	jobDesc := strings.TrimSpace(string(ctx.FormValue(FieldJobDescription)))
	if jobDesc == "" {
		return processor.Input{}, &requestError{status: consts.StatusBadRequest, msg: "缺少职位描述字段 " + FieldJobDescription}
	}

	return processor.Input{
		FileName:       fileHeader.Filename,
		Data:           data,
		JobDescription: jobDesc,
		Format:         string(ctx.FormValue(FieldFormat)),
	}, nil
}

// statusFor 将错误映射为 HTTP 状态码
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.Is(err, processor.ErrEmptyInput), errors.Is(err, processor.ErrInvalidFormat):
		return consts.StatusBadRequest
	case errors.Is(err, processor.ErrUnsupportedFormat):
		return consts.StatusUnsupportedMediaType
	case errors.Is(err, processor.ErrExtractFailed):
		return consts.StatusUnprocessableEntity
	case errors.Is(err, ratelimit.ErrRewriteUnavailable), errors.Is(err, processor.ErrRewriterNotEnabled):
		return consts.StatusServiceUnavailable
	case errors.Is(err, processor.ErrRewriteFailed):
		return consts.StatusBadGateway
	default:
		return consts.StatusInternalServerError
	}
}

// writeError 输出 JSON 错误响应
func writeError(c context.Context, ctx *app.RequestContext, err error) {
	status := statusFor(err)
	body := utils.H{"error": err.Error()}
	if id := processor.RequestIDOf(err); id != "" {
		body["request_id"] = id
		ctx.Header(HeaderRequestID, id)
	}
	if status >= consts.StatusInternalServerError {
		hlog.CtxErrorf(c, "简历请求处理失败: %v", err)
	} else {
		hlog.CtxWarnf(c, "简历请求被拒绝 (%d): %v", status, err)
	}
	ctx.AbortWithStatusJSON(status, body)
}

// Optimize POST /api/v1/resume/optimize，返回优化后的文档附件
func (h *ResumeHandler) Optimize(c context.Context, ctx *app.RequestContext) {
	in, err := h.readInput(ctx)
	if err != nil {
		writeError(c, ctx, err)
		return
	}

	res, err := h.optimizer.Optimize(c, in)
	if err != nil {
		writeError(c, ctx, err)
		return
	}

	ctx.Header(HeaderRequestID, res.RequestID)
	ctx.Header(HeaderATSScore, fmt.Sprintf("%.2f", res.ATSScore))
	ctx.Header(HeaderOptimizedATSScore, fmt.Sprintf("%.2f", res.OptimizedATSScore))
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	ctx.Data(consts.StatusOK, res.ContentType, res.Document)
}

// Analyze POST /api/v1/resume/analyze，只返回分析结果
func (h *ResumeHandler) Analyze(c context.Context, ctx *app.RequestContext) {
	in, err := h.readInput(ctx)
	if err != nil {
		writeError(c, ctx, err)
		return
	}

	analysis, err := h.optimizer.Analyze(c, in)
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.Header(HeaderRequestID, analysis.RequestID)
	ctx.JSON(consts.StatusOK, analysis)
}

// Preview POST /api/v1/resume/preview，返回改写后的文本和评分
func (h *ResumeHandler) Preview(c context.Context, ctx *app.RequestContext) {
	in, err := h.readInput(ctx)
	if err != nil {
		writeError(c, ctx, err)
		return
	}

	res, err := h.optimizer.Preview(c, in)
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.Header(HeaderRequestID, res.RequestID)
	ctx.JSON(consts.StatusOK, res)
}

// Health GET /api/v1/health
func (h *ResumeHandler) Health(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, utils.H{
		"status":  "ok",
		"service": constants.ServiceName,
		"version": constants.Version,
	})
}
