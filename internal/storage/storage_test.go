package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/config"
)

func TestLocalWorkspace_Lifecycle(t *testing.T) {
	root := t.TempDir()
	provider, err := NewLocalWorkspaceProvider(root)
	require.NoError(t, err)

	ctx := context.Background()
	ws, err := provider.Open(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", ws.ID())

	ref, err := ws.Put(ctx, "resume.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "req-1", "resume.pdf"), ref)

	data, err := ws.Get(ctx, "resume.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = ws.Get(ctx, "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ws.Release(ctx))
	require.NoError(t, ws.Release(ctx), "重复释放不应报错")

	_, err = os.Stat(filepath.Join(root, "req-1"))
	assert.True(t, os.IsNotExist(err), "释放后目录应被删除")

	_, err = ws.Put(ctx, "again.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrWorkspaceReleased)
}

func TestLocalWorkspace_PathTraversal(t *testing.T) {
	root := t.TempDir()
	provider, err := NewLocalWorkspaceProvider(root)
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		_, err := provider.Open(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidName, "request id %q", id)
	}

	ws, err := provider.Open(ctx, "req-2")
	require.NoError(t, err)
	defer ws.Release(ctx)

	ref, err := ws.Put(ctx, "../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "req-2", "passwd"), ref, "只保留文件名部分")

	ref, err = ws.Put(ctx, `C:\Users\jane\resume.docx`, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "req-2", "resume.docx"), ref)

	_, err = ws.Put(ctx, "..", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLocalWorkspace_Isolation(t *testing.T) {
	provider, err := NewLocalWorkspaceProvider(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	a, err := provider.Open(ctx, "a")
	require.NoError(t, err)
	b, err := provider.Open(ctx, "b")
	require.NoError(t, err)

	_, err = a.Put(ctx, "upload.pdf", []byte("from a"))
	require.NoError(t, err)
	_, err = b.Get(ctx, "upload.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, a.Release(ctx))
	require.NoError(t, b.Release(ctx))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", contentTypeFor("x.PDF"))
	assert.Equal(t, "text/plain", contentTypeFor("notes.txt"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("blob"))
}

func TestNewStorage_Local(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.UploadDir = filepath.Join(t.TempDir(), "uploads")

	s, err := NewStorage(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &LocalWorkspaceProvider{}, s.Workspaces)
	assert.Nil(t, s.Redis)
	assert.Nil(t, s.MinIO)

	cfg.Storage.Type = "ftp"
	_, err = NewStorage(context.Background(), cfg)
	assert.Error(t, err)

	_, err = NewStorage(context.Background(), nil)
	assert.Error(t, err)
}

// 需要本地 MinIO，通过 MINIO_ENDPOINT 启用
func TestMinIOWorkspace(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT 未设置，跳过 MinIO 测试")
	}
	ctx := context.Background()
	m, err := NewMinIO(ctx, &config.MinIOConfig{
		Endpoint:        endpoint,
		AccessKeyID:     envOr("MINIO_ACCESS_KEY", "minioadmin"),
		SecretAccessKey: envOr("MINIO_SECRET_KEY", "minioadmin"),
		BucketName:      "resume-workspace-test",
		ExpireDays:      1,
	}, nil)
	require.NoError(t, err)

	ws, err := NewMinIOWorkspaceProvider(m).Open(ctx, "req-minio")
	require.NoError(t, err)

	ref, err := ws.Put(ctx, "upload.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "resume-workspace-test/req-minio/upload.txt", ref)

	data, err := ws.Get(ctx, "upload.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, ws.Release(ctx))
	_, err = m.GetObject(ctx, "req-minio/upload.txt")
	assert.Error(t, err)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
