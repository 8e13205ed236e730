// Package service 实现文档库的核心业务：访问控制、文档生命周期、
// 层级列举与级联删除.所有操作都显式携带发起方代理，服务本身无会话状态.
package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/docvault/pkg/configs"
	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	"github.com/yeisme/docvault/pkg/internal/storage/db"
	"github.com/yeisme/docvault/pkg/internal/storage/kv"
	"github.com/yeisme/docvault/pkg/internal/storage/mq"
)

// VaultService 文档库核心服务.
type VaultService struct {
	dbClient     *db.Client
	blob         blob.Store
	mqClient     *mq.Client
	kvStore      kv.KVStore
	bucketPrefix string
	events       configs.EventsConfig
}

// Option 配置 VaultService 的可选依赖.
type Option func(*VaultService)

// WithMQ 注入消息队列客户端.
func WithMQ(c *mq.Client) Option {
	return func(s *VaultService) { s.mqClient = c }
}

// WithKV 注入 KV 存储（幂等令牌）.
func WithKV(store kv.KVStore) Option {
	return func(s *VaultService) { s.kvStore = store }
}

// WithBucketPrefix 覆盖组织桶名前缀.
func WithBucketPrefix(prefix string) Option {
	return func(s *VaultService) { s.bucketPrefix = prefix }
}

// WithEvents 覆盖事件发布开关.
func WithEvents(cfg configs.EventsConfig) Option {
	return func(s *VaultService) { s.events = cfg }
}

// NewVaultService 从请求上下文取出存储客户端构造服务.
func NewVaultService(c context.Context) *VaultService {
	cfg := configs.GetConfig()

	s := &VaultService{
		dbClient:     ctxPkg.GetDBClient(c),
		mqClient:     ctxPkg.GetMQClient(c),
		bucketPrefix: cfg.Blob.BucketPrefix,
		events:       cfg.Events,
	}
	if s.bucketPrefix == "" {
		s.bucketPrefix = configs.DefaultBlobBucketPrefix
	}

	if bc := ctxPkg.GetBlobClient(c); bc != nil {
		s.blob = bc.Store
	}

	if kc := ctxPkg.GetKVClient(c); kc != nil {
		s.kvStore = kc.KVStore
	}

	return s
}

// NewVaultServiceWith 直接注入依赖构造服务，供测试与后台任务使用.
// 事件开关默认全开，实际是否发布仍取决于是否注入了 MQ 客户端.
func NewVaultServiceWith(dbClient *db.Client, store blob.Store, opts ...Option) *VaultService {
	s := &VaultService{
		dbClient:     dbClient,
		blob:         store,
		bucketPrefix: configs.DefaultBlobBucketPrefix,
		events: configs.EventsConfig{
			Enabled: true,
			Document: configs.DocumentEventsConfig{
				Created: true, Replaced: true, Restored: true,
				MetaUpdated: true, Deleted: true, Grants: true,
			},
			Registry: configs.RegistryEventsConfig{
				OrgDeleted: true, AgentRemoved: true,
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// bucketFor 返回组织对应的桶名.
func (s *VaultService) bucketFor(organizationID string) string {
	return fmt.Sprintf("%s-org-%s", s.bucketPrefix, organizationID)
}

// lockForUpdate 给查询追加行级写锁.SQLite 的单写者模型自身已串行化写入，跳过.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}

	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
