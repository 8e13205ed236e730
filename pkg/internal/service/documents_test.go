package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/queue"
)

func TestCreateDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)

	doc, err := env.svc.CreateDocument(ctx, &types.CreateDocumentRequest{
		OrganizationID: orgID,
		AgentID:        agentID,
		Name:           "report.pdf",
		Prefix:         "/finance/",
		Tags:           []string{"q3", "finance"},
		Metadata:       map[string]string{"owner": "alice"},
		Content:        []byte("pdf-bytes"),
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	if doc.Path != "/finance/report.pdf" {
		t.Errorf("path = %q, want /finance/report.pdf", doc.Path)
	}

	if doc.CurrentVersion != 1 {
		t.Errorf("current version = %d, want 1", doc.CurrentVersion)
	}

	if doc.Status != model.StatusActive {
		t.Errorf("status = %s, want active", doc.Status)
	}

	ok, err := env.svc.ResolvePermission(ctx, doc.ID, agentID, model.PermissionAdmin)
	if err != nil {
		t.Fatalf("resolve permission: %v", err)
	}

	if !ok {
		t.Error("creator should hold ADMIN")
	}

	content, info, err := env.svc.DownloadDocument(ctx, doc.ID, agentID, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}

	if !bytes.Equal(content, []byte("pdf-bytes")) {
		t.Errorf("content = %q, want pdf-bytes", content)
	}

	if info.Version != 1 || info.ContentType != "application/pdf" {
		t.Errorf("info = %+v", info)
	}
}

func TestCreateDocumentDuplicatePath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)

	env.createDoc(t, orgID, agentID, "a.txt", "/docs/", []byte("one"))

	_, err := env.svc.CreateDocument(ctx, &types.CreateDocumentRequest{
		OrganizationID: orgID,
		AgentID:        agentID,
		Name:           "a.txt",
		Prefix:         "/docs/",
		Content:        []byte("two"),
	})

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}

	if !service.IsRetryable(err) {
		t.Error("conflict should be retryable")
	}
}

func TestCreateDocumentIdempotency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)

	token := service.NewIdempotencyToken()
	req := &types.CreateDocumentRequest{
		OrganizationID: orgID,
		AgentID:        agentID,
		Name:           "once.txt",
		IdempotencyKey: token,
		Content:        []byte("payload"),
	}

	first, err := env.svc.CreateDocument(ctx, req)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	second, err := env.svc.CreateDocument(ctx, req)
	if err != nil {
		t.Fatalf("retry create: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("retry created a new document: %s != %s", first.ID, second.ID)
	}
}

func TestCreateDocumentAgentFromOtherOrg(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgA := env.seedOrg(t)
	orgB := env.seedOrg(t)
	agentB := env.seedAgent(t, orgB)

	_, err := env.svc.CreateDocument(ctx, &types.CreateDocumentRequest{
		OrganizationID: orgA,
		AgentID:        agentB,
		Name:           "x.txt",
		Content:        []byte("x"),
	})

	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestCreateDocumentPublishesEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)

	ch, err := env.ps.Subscribe(ctx, queue.TopicDocumentCreated)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	doc := env.createDoc(t, orgID, agentID, "evt.txt", "/", []byte("evt"))

	select {
	case msg := <-ch:
		evt, err := queue.ParseDocumentCreated(msg)
		if err != nil {
			t.Fatalf("parse event: %v", err)
		}

		if evt.Payload.Document.DocumentID != doc.ID {
			t.Errorf("event document = %s, want %s", evt.Payload.Document.DocumentID, doc.ID)
		}

		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no dv.document.created event received")
	}
}

func TestReplaceContentVersioned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, agentID, "notes.txt", "/", []byte("v1"))

	updated, err := env.svc.ReplaceContent(ctx, &types.ReplaceContentRequest{
		DocumentID: doc.ID,
		AgentID:    agentID,
		Versioned:  true,
		ChangeNote: "second draft",
		Content:    []byte("v2-content"),
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if updated.CurrentVersion != 2 {
		t.Errorf("current version = %d, want 2", updated.CurrentVersion)
	}

	versions, err := env.svc.ListVersions(ctx, doc.ID, agentID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}

	if len(versions) != 2 {
		t.Fatalf("len(versions) = %d, want 2", len(versions))
	}

	if versions[1].ChangeNote != "second draft" || versions[1].ChangeType != model.ChangeTypeUpdate {
		t.Errorf("version 2 = %+v", versions[1])
	}

	// 历史版本内容仍可下载
	v1 := 1

	content, info, err := env.svc.DownloadDocument(ctx, doc.ID, agentID, &v1)
	if err != nil {
		t.Fatalf("download v1: %v", err)
	}

	if !bytes.Equal(content, []byte("v1")) || info.Version != 1 {
		t.Errorf("v1 content = %q, info = %+v", content, info)
	}
}

func TestReplaceContentRepeatedAdvancesVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, agentID, "journal.txt", "/", []byte("v1"))

	for _, body := range []string{"v2-body", "v3-body"} {
		updated, err := env.svc.ReplaceContent(ctx, &types.ReplaceContentRequest{
			DocumentID: doc.ID,
			AgentID:    agentID,
			Versioned:  true,
			Content:    []byte(body),
		})
		if err != nil {
			t.Fatalf("replace with %q: %v", body, err)
		}

		doc = updated
	}

	if doc.CurrentVersion != 3 {
		t.Fatalf("current version = %d, want 3", doc.CurrentVersion)
	}

	// 两次替换各自落为独立版本，内容互不覆盖
	for version, want := range map[int][]byte{2: []byte("v2-body"), 3: []byte("v3-body")} {
		v := version

		content, info, err := env.svc.DownloadDocument(ctx, doc.ID, agentID, &v)
		if err != nil {
			t.Fatalf("download v%d: %v", version, err)
		}

		if !bytes.Equal(content, want) || info.Version != version {
			t.Errorf("v%d content = %q, info = %+v, want %q", version, content, info, want)
		}
	}
}

func TestReplaceContentVersionCollision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, agentID, "raced.txt", "/", []byte("v1"))

	// 预先占住版本号 2，模拟并发写入者抢先提交
	stale := model.DocumentVersion{
		DocumentID:     doc.ID,
		VersionNumber:  2,
		Filename:       "raced.txt",
		Size:           4,
		ContentType:    "text/plain",
		StorageLocator: doc.StorageLocator,
		ChangeType:     model.ChangeTypeUpdate,
		CreatedBy:      agentID,
		CreatedAt:      time.Now(),
	}
	if err := env.db.Create(&stale).Error; err != nil {
		t.Fatalf("seed version row: %v", err)
	}

	_, err := env.svc.ReplaceContent(ctx, &types.ReplaceContentRequest{
		DocumentID: doc.ID,
		AgentID:    agentID,
		Versioned:  true,
		Content:    []byte("loser"),
	})

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}

	if !service.IsRetryable(err) {
		t.Error("version collision should be retryable")
	}
}

func TestReplaceContentUnversioned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, agentID, "scratch.txt", "/", []byte("old"))

	updated, err := env.svc.ReplaceContent(ctx, &types.ReplaceContentRequest{
		DocumentID: doc.ID,
		AgentID:    agentID,
		Versioned:  false,
		Content:    []byte("overwritten"),
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if updated.CurrentVersion != 1 {
		t.Errorf("current version = %d, want 1", updated.CurrentVersion)
	}

	versions, err := env.svc.ListVersions(ctx, doc.ID, agentID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}

	if len(versions) != 1 {
		t.Fatalf("len(versions) = %d, want 1", len(versions))
	}

	if versions[0].Size != int64(len("overwritten")) {
		t.Errorf("version size = %d, want %d", versions[0].Size, len("overwritten"))
	}

	content, _, err := env.svc.DownloadDocument(ctx, doc.ID, agentID, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}

	if !bytes.Equal(content, []byte("overwritten")) {
		t.Errorf("content = %q, want overwritten", content)
	}
}

func TestReplaceContentRequiresWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	reader := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "locked.txt", "/", []byte("x"))

	env.grant(t, doc.ID, owner, reader, model.PermissionRead)

	_, err := env.svc.ReplaceContent(ctx, &types.ReplaceContentRequest{
		DocumentID: doc.ID,
		AgentID:    reader,
		Versioned:  true,
		Content:    []byte("y"),
	})

	var denied *service.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want PermissionDeniedError", err)
	}

	if denied.Required != model.PermissionWrite {
		t.Errorf("required = %s, want WRITE", denied.Required)
	}
}

func TestRestoreVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, agentID, "spec.md", "/", []byte("draft-1"))

	_, err := env.svc.ReplaceContent(ctx, &types.ReplaceContentRequest{
		DocumentID: doc.ID,
		AgentID:    agentID,
		Versioned:  true,
		Content:    []byte("draft-2"),
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	restored, err := env.svc.RestoreVersion(ctx, doc.ID, 1, agentID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.CurrentVersion != 3 {
		t.Errorf("current version = %d, want 3", restored.CurrentVersion)
	}

	content, _, err := env.svc.DownloadDocument(ctx, doc.ID, agentID, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}

	if !bytes.Equal(content, []byte("draft-1")) {
		t.Errorf("content = %q, want draft-1", content)
	}

	versions, err := env.svc.ListVersions(ctx, doc.ID, agentID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}

	if len(versions) != 3 || versions[2].ChangeType != model.ChangeTypeRestore {
		t.Errorf("versions = %+v", versions)
	}
}

func TestRestoreMissingVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, agentID, "one.txt", "/", []byte("x"))

	_, err := env.svc.RestoreVersion(ctx, doc.ID, 9, agentID)

	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestUpdateMetadata(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, agentID, "old.txt", "/a/", []byte("x"))

	name := "new.txt"
	prefix := "/b/"

	updated, err := env.svc.UpdateMetadata(ctx, &types.UpdateMetadataRequest{
		DocumentID: doc.ID,
		AgentID:    agentID,
		Name:       &name,
		Prefix:     &prefix,
		Tags:       []string{"renamed"},
		Metadata:   map[string]string{"reviewed": "yes"},
	})
	if err != nil {
		t.Fatalf("update metadata: %v", err)
	}

	if updated.Path != "/b/new.txt" {
		t.Errorf("path = %q, want /b/new.txt", updated.Path)
	}

	// 元数据键合并：空值删除
	_, err = env.svc.UpdateMetadata(ctx, &types.UpdateMetadataRequest{
		DocumentID: doc.ID,
		AgentID:    agentID,
		Metadata:   map[string]string{"reviewed": "", "stage": "final"},
	})
	if err != nil {
		t.Fatalf("merge metadata: %v", err)
	}

	detail, err := env.svc.GetDocument(ctx, doc.ID, agentID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}

	if detail.Document.Metadata == "" {
		t.Fatal("metadata should not be empty")
	}

	if got := detail.Document.Metadata; got != `{"stage":"final"}` {
		t.Errorf("metadata = %s, want only stage key", got)
	}
}

func TestUpdateMetadataPathConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)

	env.createDoc(t, orgID, agentID, "taken.txt", "/", []byte("a"))
	doc := env.createDoc(t, orgID, agentID, "free.txt", "/", []byte("b"))

	name := "taken.txt"

	_, err := env.svc.UpdateMetadata(ctx, &types.UpdateMetadataRequest{
		DocumentID: doc.ID,
		AgentID:    agentID,
		Name:       &name,
	})

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestDeleteDocumentSoft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, agentID, "gone.txt", "/", []byte("x"))

	if err := env.svc.DeleteDocument(ctx, doc.ID, agentID, false); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, err := env.svc.GetDocument(ctx, doc.ID, agentID)

	var nf *service.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("get after delete = %v, want NotFoundError", err)
	}

	// 对已软删除文档再次软删除同样是 NotFound
	err = env.svc.DeleteDocument(ctx, doc.ID, agentID, false)
	if !errors.As(err, &nf) {
		t.Fatalf("double soft delete = %v, want NotFoundError", err)
	}
}

func TestDeleteDocumentHard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, agentID, "purge.txt", "/", []byte("x"))

	if err := env.svc.DeleteDocument(ctx, doc.ID, agentID, true); err != nil {
		t.Fatalf("hard delete: %v", err)
	}

	var rows int64
	if err := env.db.Model(&model.DocumentVersion{}).Where("document_id = ?", doc.ID).Count(&rows).Error; err != nil {
		t.Fatalf("count versions: %v", err)
	}

	if rows != 0 {
		t.Errorf("version rows remaining = %d, want 0", rows)
	}

	if err := env.db.Model(&model.AccessGrant{}).Where("document_id = ?", doc.ID).Count(&rows).Error; err != nil {
		t.Fatalf("count grants: %v", err)
	}

	if rows != 0 {
		t.Errorf("grant rows remaining = %d, want 0", rows)
	}
}

func TestDeleteRequiresDeletePermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	writer := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "guarded.txt", "/", []byte("x"))

	env.grant(t, doc.ID, owner, writer, model.PermissionRead, model.PermissionWrite)

	err := env.svc.DeleteDocument(ctx, doc.ID, writer, false)

	var denied *service.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want PermissionDeniedError", err)
	}
}
