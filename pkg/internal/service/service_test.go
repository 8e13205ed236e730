package service_test

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	"github.com/yeisme/docvault/pkg/internal/storage/db"
	"github.com/yeisme/docvault/pkg/internal/storage/kv"
	"github.com/yeisme/docvault/pkg/internal/storage/mq"
	"github.com/yeisme/docvault/pkg/internal/types"
)

// testEnv 聚合一套进程内依赖：内存 SQLite、内存对象存储、
// 内存 KV 与 gochannel 消息队列.
type testEnv struct {
	svc  *service.VaultService
	db   *gorm.DB
	blob *blob.MemoryStore
	ps   *gochannel.GoChannel
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(model.AutoMigrateModels()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	kvStore, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	ps := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	store := blob.NewMemoryStore()

	svc := service.NewVaultServiceWith(&db.Client{DB: gdb}, store,
		service.WithKV(kvStore),
		service.WithMQ(mq.NewFromPubSub(ps, ps)),
	)

	t.Cleanup(func() {
		_ = ps.Close()
		_ = sqlDB.Close()
	})

	return &testEnv{svc: svc, db: gdb, blob: store, ps: ps}
}

func (e *testEnv) seedOrg(t *testing.T) string {
	t.Helper()

	org, err := e.svc.RegisterOrganization(context.Background(), &types.RegisterOrganizationRequest{
		ID: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("register organization: %v", err)
	}

	return org.ID
}

func (e *testEnv) seedAgent(t *testing.T, orgID string) string {
	t.Helper()

	agent, err := e.svc.RegisterAgent(context.Background(), &types.RegisterAgentRequest{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
	})
	if err != nil {
		t.Fatalf("register agent: %v", err)
	}

	return agent.ID
}

func (e *testEnv) createDoc(t *testing.T, orgID, agentID, name, prefix string, content []byte) *model.Document {
	t.Helper()

	doc, err := e.svc.CreateDocument(context.Background(), &types.CreateDocumentRequest{
		OrganizationID: orgID,
		AgentID:        agentID,
		Name:           name,
		Prefix:         prefix,
		Content:        content,
	})
	if err != nil {
		t.Fatalf("create document %s: %v", name, err)
	}

	return doc
}

func (e *testEnv) grant(t *testing.T, docID, ownerID, agentID string, perms ...model.Permission) {
	t.Helper()

	specs := []types.GrantSpec{{AgentID: ownerID, Permission: string(model.PermissionAdmin)}}
	for _, p := range perms {
		specs = append(specs, types.GrantSpec{AgentID: agentID, Permission: string(p)})
	}

	_, err := e.svc.SetGrants(context.Background(), &types.SetGrantsRequest{
		DocumentID: docID,
		GrantedBy:  ownerID,
		Grants:     specs,
	})
	if err != nil {
		t.Fatalf("set grants: %v", err)
	}
}
