package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"resume-optimizer/internal/config"
)

// MinIO 提供对象存储功能
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	logger *log.Logger
}

// NewMinIO 创建MinIO客户端，确保存储桶存在并设置过期规则
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf("[MinIO] Initializing MinIO client with endpoint: %s, bucket: %s", cfg.Endpoint, cfg.BucketName)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{client: client, cfg: cfg, bucket: cfg.BucketName, logger: logger}
	if err := m.ensureBucketExists(ctx, m.bucket, cfg.Location); err != nil {
		return nil, err
	}
	if cfg.ExpireDays > 0 {
		// 规则设置失败不影响使用，Release 仍会删除对象
		if err := m.setupBucketLifecycle(ctx, m.bucket, "expire-workspace", cfg.ExpireDays); err != nil {
			logger.Printf("[MinIO] Warning: Failed to set up lifecycle rules: %v", err)
		}
	}
	return m, nil
}

// Bucket 工作区使用的存储桶
func (m *MinIO) Bucket() string { return m.bucket }

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName, location string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	m.logger.Printf("[MinIO] Bucket %s does not exist, attempting to create...", bucketName)
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置过期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	config := lifecycle.NewConfiguration()
	config.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, config)
}

// PutObject 上传对象
func (m *MinIO) PutObject(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, objectName, err)
	}
	return nil
}

// GetObject 下载对象
func (m *MinIO) GetObject(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", m.bucket, objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, objectName)
		}
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", m.bucket, objectName, err)
	}
	return data, nil
}

// RemovePrefix 删除前缀下的所有对象
func (m *MinIO) RemovePrefix(ctx context.Context, prefix string) error {
	objectsCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})

	toRemove := make(chan minio.ObjectInfo)
	var listErr error
	go func() {
		defer close(toRemove)
		for obj := range objectsCh {
			if obj.Err != nil {
				listErr = obj.Err
				return
			}
			select {
			case toRemove <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	var firstErr error
	for rErr := range m.client.RemoveObjects(ctx, m.bucket, toRemove, minio.RemoveObjectsOptions{}) {
		if firstErr == nil {
			firstErr = fmt.Errorf("删除对象 %s 失败: %w", rErr.ObjectName, rErr.Err)
		}
	}
	if firstErr != nil {
		return firstErr
	}
	if listErr != nil {
		return fmt.Errorf("列出前缀 %s 下的对象失败: %w", prefix, listErr)
	}
	return nil
}

// MinIOWorkspaceProvider 将工作区文件存放在 <bucket>/<requestID>/ 下
type MinIOWorkspaceProvider struct {
	minio *MinIO
}

var _ WorkspaceProvider = (*MinIOWorkspaceProvider)(nil)

func NewMinIOWorkspaceProvider(m *MinIO) *MinIOWorkspaceProvider {
	return &MinIOWorkspaceProvider{minio: m}
}

func (p *MinIOWorkspaceProvider) Open(ctx context.Context, requestID string) (Workspace, error) {
	if err := validateRequestID(requestID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &minioWorkspace{id: requestID, minio: p.minio}, nil
}

type minioWorkspace struct {
	mu       sync.Mutex
	id       string
	minio    *MinIO
	released bool
}

func (w *minioWorkspace) ID() string { return w.id }

func (w *minioWorkspace) key(name string) (string, error) {
	if w.released {
		return "", ErrWorkspaceReleased
	}
	base, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return path.Join(w.id, base), nil
}

func (w *minioWorkspace) Put(ctx context.Context, name string, data []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key, err := w.key(name)
	if err != nil {
		return "", err
	}
	if err := w.minio.PutObject(ctx, key, data, contentTypeFor(name)); err != nil {
		return "", err
	}
	return w.minio.Bucket() + "/" + key, nil
}

func (w *minioWorkspace) Get(ctx context.Context, name string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key, err := w.key(name)
	if err != nil {
		return nil, err
	}
	return w.minio.GetObject(ctx, key)
}

func (w *minioWorkspace) Release(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released {
		return nil
	}
	w.released = true
	return w.minio.RemovePrefix(ctx, w.id+"/")
}
