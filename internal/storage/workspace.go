package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrWorkspaceReleased 工作区已释放
	ErrWorkspaceReleased = errors.New("工作区已释放")
	// ErrInvalidName 文件名或请求ID不合法
	ErrInvalidName = errors.New("非法的文件名")
	// ErrNotFound 工作区中不存在该文件
	ErrNotFound = errors.New("文件不存在")
)

// Workspace 单个请求的临时工作区，请求结束后必须调用 Release
type Workspace interface {
	// ID 工作区所属的请求ID
	ID() string
	// Put 写入文件，返回可用于日志的引用（本地路径或 bucket/key）
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Get 读取之前写入的文件
	Get(ctx context.Context, name string) ([]byte, error)
	// Release 删除工作区中的全部文件，可重复调用
	Release(ctx context.Context) error
}

// WorkspaceProvider 为请求创建工作区
type WorkspaceProvider interface {
	Open(ctx context.Context, requestID string) (Workspace, error)
}

// cleanName 只保留文件名部分，防止路径穿越
func cleanName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}

// validateRequestID 请求ID作为目录名或对象前缀使用，不能包含路径分隔符
func validateRequestID(requestID string) error {
	if requestID == "" || requestID == "." || requestID == ".." || strings.ContainsAny(requestID, `/\`) {
		return fmt.Errorf("%w: request id %q", ErrInvalidName, requestID)
	}
	return nil
}

// contentTypeFor 根据扩展名获取内容类型
func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt", ".md":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
