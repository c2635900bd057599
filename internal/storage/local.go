package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// LocalWorkspaceProvider 在本地目录 <root>/<requestID>/ 下创建工作区
type LocalWorkspaceProvider struct {
	root string
}

var _ WorkspaceProvider = (*LocalWorkspaceProvider)(nil)

// NewLocalWorkspaceProvider 创建本地工作区，root 不存在时自动创建
func NewLocalWorkspaceProvider(root string) (*LocalWorkspaceProvider, error) {
	if root == "" {
		return nil, fmt.Errorf("工作区根目录不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建工作区根目录 %s 失败: %w", root, err)
	}
	return &LocalWorkspaceProvider{root: root}, nil
}

// Root 返回根目录
func (p *LocalWorkspaceProvider) Root() string { return p.root }

func (p *LocalWorkspaceProvider) Open(ctx context.Context, requestID string) (Workspace, error) {
	if err := validateRequestID(requestID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Join(p.root, requestID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("创建工作区目录 %s 失败: %w", dir, err)
	}
	return &localWorkspace{id: requestID, dir: dir}, nil
}

type localWorkspace struct {
	mu       sync.Mutex
	id       string
	dir      string
	released bool
}

func (w *localWorkspace) ID() string { return w.id }

func (w *localWorkspace) path(name string) (string, error) {
	if w.released {
		return "", ErrWorkspaceReleased
	}
	base, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(w.dir, base), nil
}

func (w *localWorkspace) Put(ctx context.Context, name string, data []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path, err := w.path(name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return path, nil
}

func (w *localWorkspace) Get(ctx context.Context, name string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path, err := w.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	return data, nil
}

func (w *localWorkspace) Release(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released {
		return nil
	}
	w.released = true
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("删除工作区 %s 失败: %w", w.dir, err)
	}
	return nil
}
