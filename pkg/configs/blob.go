package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// BlobType 对象存储后端类型.
type BlobType string

const (
	BlobTypeS3     BlobType = "s3"
	BlobTypeMemory BlobType = "memory"
)

const (
	DefaultBlobEndpoint        = "localhost:9000" // 默认 S3 端点
	DefaultBlobAccessKeyID     = "minioadmin"     // 默认访问密钥 ID
	DefaultBlobSecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultBlobUseSSL          = false            // 默认是否使用 SSL
	DefaultBlobRegion          = "us-east-1"      // 默认区域
	DefaultBlobBucketPrefix    = "docvault"       // 组织桶名前缀
)

// BlobConfig 对象存储配置.每个组织独享一个桶，桶名为
// {bucket_prefix}-org-{organization_id}.
type BlobConfig struct {
	Type            BlobType `mapstructure:"type"              rule:"oneof=s3 memory"`
	Endpoint        string   `mapstructure:"endpoint"`
	AccessKeyID     string   `mapstructure:"access_key_id"`
	SecretAccessKey string   `mapstructure:"secret_access_key"`
	UseSSL          bool     `mapstructure:"use_ssl"`
	Region          string   `mapstructure:"region"`
	BucketPrefix    string   `mapstructure:"bucket_prefix"`
}

// GetEndpointURL 获取完整的端点 URL.
func (c *BlobConfig) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// BucketFor 返回指定组织的桶名.
func (c *BlobConfig) BucketFor(organizationID string) string {
	return fmt.Sprintf("%s-org-%s", c.BucketPrefix, organizationID)
}

// setDefaults 设置对象存储配置的默认值.
func (c *BlobConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("blob.type", BlobTypeS3)
	v.SetDefault("blob.endpoint", DefaultBlobEndpoint)
	v.SetDefault("blob.access_key_id", DefaultBlobAccessKeyID)
	v.SetDefault("blob.secret_access_key", DefaultBlobSecretAccessKey)
	v.SetDefault("blob.use_ssl", DefaultBlobUseSSL)
	v.SetDefault("blob.region", DefaultBlobRegion)
	v.SetDefault("blob.bucket_prefix", DefaultBlobBucketPrefix)
}
