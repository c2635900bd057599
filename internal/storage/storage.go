package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"resume-optimizer/internal/config"
	"resume-optimizer/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 请求工作区
	Workspaces WorkspaceProvider

	// 对象存储，storage.type 为 minio 时可用
	MinIO *MinIO

	// 键值存储，配置了地址时可用
	Redis *Redis
}

// NewStorage 创建存储管理器
// 工作区初始化失败返回错误，Redis 不可用只记录警告。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}
	logger.Debug().Str("type", cfg.Storage.Type).Str("redis", cfg.Redis.Address).Msg("初始化存储")

	if cfg.Redis.Address != "" {
		redisAdapter, err := NewRedisAdapter(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("初始化Redis失败，相关功能将使用内存实现")
		} else {
			storage.Redis = redisAdapter
			logger.Info().Str("address", cfg.Redis.Address).Msg("Redis客户端初始化成功")
		}
	}

	switch cfg.Storage.Type {
	case "minio":
		var minioLogger *log.Logger
		if cfg.Logger.Level == "debug" || cfg.MinIO.EnableTestLogging {
			minioLogger = log.New(os.Stderr, "[MinIOStorage] ", log.LstdFlags|log.Lshortfile)
		} else {
			minioLogger = log.New(io.Discard, "", 0)
		}
		m, err := NewMinIO(ctx, &cfg.MinIO, minioLogger)
		if err != nil {
			logger.Error().Err(err).Str("endpoint", cfg.MinIO.Endpoint).Msg("初始化MinIO失败")
			storage.Close()
			return nil, fmt.Errorf("初始化MinIO失败: %w", err)
		}
		storage.MinIO = m
		storage.Workspaces = NewMinIOWorkspaceProvider(m)
		logger.Info().Str("bucket", m.Bucket()).Msg("使用MinIO工作区")
	case "local", "":
		local, err := NewLocalWorkspaceProvider(cfg.Storage.UploadDir)
		if err != nil {
			storage.Close()
			return nil, err
		}
		storage.Workspaces = local
		logger.Info().Str("dir", local.Root()).Msg("使用本地工作区")
	default:
		storage.Close()
		return nil, fmt.Errorf("不支持的存储类型: %s", cfg.Storage.Type)
	}

	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
