// Package blob 提供文档内容的对象存储抽象.
// 实际后端通过工厂模式注册，目前支持 S3（MinIO）与内存实现（测试用）.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yeisme/docvault/pkg/configs"
)

// ErrNotFound 对象不存在.
var ErrNotFound = errors.New("blob: object not found")

// ObjectInfo 对象元信息.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store 定义对象存储接口.Key 即文档定位符，形如 docID/v1/report.pdf.
type Store interface {
	// EnsureBucket 确保桶存在，不存在则创建.
	EnsureBucket(ctx context.Context, bucket string) error
	// Put 写入对象，已存在则覆盖.
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	// Get 读取对象内容.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	// Delete 删除对象.删除不存在的对象不报错.
	Delete(ctx context.Context, bucket, key string) error
	// Copy 在同一桶内复制对象.
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error
	// List 列出指定前缀下的全部对象.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	// RemoveBucket 删除空桶.
	RemoveBucket(ctx context.Context, bucket string) error
	// HealthCheck 检查后端连通性.
	HealthCheck(ctx context.Context) error
	// Close 释放资源.
	Close() error
}

// Factory 定义创建 Store 的工厂函数类型.
type Factory func(ctx context.Context, cfg *configs.BlobConfig) (Store, error)

var factories = make(map[configs.BlobType]Factory)

// RegisterFactory 注册指定类型的后端工厂.
func RegisterFactory(t configs.BlobType, f Factory) {
	factories[t] = f
}

// GetRegisteredTypes 返回已注册的后端类型列表.
func GetRegisteredTypes() []configs.BlobType {
	types := make([]configs.BlobType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	return types
}

// Client 包装 Store，供 storage.Manager 聚合.
type Client struct {
	Store
}

// New 根据全局配置创建对象存储客户端.
func New(ctx context.Context) (*Client, error) {
	cfg := configs.GetConfig().Blob

	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported blob store type: %s", cfg.Type)
	}

	store, err := factory(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("init blob store (%s): %w", cfg.Type, err)
	}

	return &Client{Store: store}, nil
}
