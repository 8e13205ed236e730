package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/docvault/pkg/configs"
	nlog "github.com/yeisme/docvault/pkg/log"
)

// init 注册 S3 工厂.
func init() {
	RegisterFactory(configs.BlobTypeS3, newMinioStore)
}

// MinioStore 基于 MinIO 客户端的 Store 实现.
type MinioStore struct {
	cli    *minio.Client
	region string
}

func newMinioStore(ctx context.Context, cfg *configs.BlobConfig) (Store, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("docvault", configs.AppVersion)

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Msg("s3 blob store connected")

	return &MinioStore{cli: cli, region: cfg.Region}, nil
}

// EnsureBucket 确保桶存在，不存在则创建.
func (s *MinioStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.cli.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}

	if !exists {
		if err := s.cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}

		nlog.Logger().Info().Str("bucket", bucket).Msg("bucket created")
	}

	return nil
}

// Put 写入对象.
func (s *MinioStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.cli.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}

	return nil
}

// Get 读取对象.不存在返回 ErrNotFound.
func (s *MinioStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.cli.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}

	// GetObject 懒加载，Stat 触发实际请求以便尽早报告缺失
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()

		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}

	return obj, nil
}

// Delete 删除对象.
func (s *MinioStore) Delete(ctx context.Context, bucket, key string) error {
	if err := s.cli.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}

	return nil
}

// Copy 桶内复制对象.
func (s *MinioStore) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	src := minio.CopySrcOptions{Bucket: bucket, Object: srcKey}
	dst := minio.CopyDestOptions{Bucket: bucket, Object: dstKey}

	if _, err := s.cli.CopyObject(ctx, dst, src); err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return ErrNotFound
		}

		return fmt.Errorf("copy %s/%s -> %s: %w", bucket, srcKey, dstKey, err)
	}

	return nil
}

// List 列出前缀下的全部对象.
func (s *MinioStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo

	for obj := range s.cli.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, obj.Err)
		}

		infos = append(infos, ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}

	return infos, nil
}

// RemoveBucket 删除空桶.
func (s *MinioStore) RemoveBucket(ctx context.Context, bucket string) error {
	if err := s.cli.RemoveBucket(ctx, bucket); err != nil {
		return fmt.Errorf("remove bucket %s: %w", bucket, err)
	}

	return nil
}

// HealthCheck 通过列出桶验证连接.
func (s *MinioStore) HealthCheck(ctx context.Context) error {
	_, err := s.cli.ListBuckets(ctx)
	return err
}

// Close 关闭连接（MinIO 客户端无持久连接，接口兼容）.
func (s *MinioStore) Close() error {
	return nil
}
