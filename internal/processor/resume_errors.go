package processor

import (
	"errors"
	"fmt"

	"resume-optimizer/internal/parser"
)

// 定义基础错误类型
var (
	ErrEmptyInput         = errors.New("简历或职位描述为空")
	ErrUnsupportedFormat  = parser.ErrUnsupportedFormat
	ErrInvalidFormat      = errors.New("不支持的输出格式")
	ErrExtractFailed      = errors.New("提取简历文本失败")
	ErrRewriteFailed      = errors.New("简历改写失败")
	ErrRenderFailed       = errors.New("生成文档失败")
	ErrWorkspaceFailed    = errors.New("请求工作区操作失败")
	ErrRewriterNotEnabled = errors.New("未配置改写服务")
)

// OptimizeError 包含详细错误信息的自定义错误
type OptimizeError struct {
	RequestID string
	Op        string
	BaseErr   error
	Detail    string
	// Cause 底层错误，例如 APIError 或 ratelimit.ErrRewriteUnavailable
	Cause error
}

func (e *OptimizeError) Error() string {
	msg := fmt.Sprintf("%s (操作:%s, 请求:%s)", e.BaseErr, e.Op, e.RequestID)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 同时暴露基础错误和底层错误，errors.Is/As 均可匹配
func (e *OptimizeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.BaseErr}
	}
	return []error{e.BaseErr, e.Cause}
}

func newOptimizeError(requestID, op string, base error, detail string, cause error) error {
	return &OptimizeError{
		RequestID: requestID,
		Op:        op,
		BaseErr:   base,
		Detail:    detail,
		Cause:     cause,
	}
}

// RequestIDOf 从错误中取出请求ID
func RequestIDOf(err error) string {
	var oe *OptimizeError
	if errors.As(err, &oe) {
		return oe.RequestID
	}
	return ""
}
