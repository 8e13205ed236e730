package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
)

// seedTree 建立一棵层级树：
//
//	/a.txt  /docs/b.txt  /docs/deep/c.txt  /other/d.txt
//
// 全部由 owner 创建并持有 ADMIN.
func seedTree(t *testing.T, env *testEnv, orgID, owner string) map[string]*model.Document {
	t.Helper()

	docs := map[string]*model.Document{}
	for _, spec := range []struct{ name, prefix string }{
		{"a.txt", "/"},
		{"b.txt", "/docs/"},
		{"c.txt", "/docs/deep/"},
		{"d.txt", "/other/"},
	} {
		doc := env.createDoc(t, orgID, owner, spec.name, spec.prefix, []byte(spec.name))
		docs[doc.Path] = doc
	}

	return docs
}

func paths(result *types.ListDocumentsResult) []string {
	out := make([]string, 0, len(result.Documents))
	for _, d := range result.Documents {
		out = append(out, d.Path)
	}

	return out
}

func TestListNonRecursive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	seedTree(t, env, orgID, owner)

	result, err := env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Prefix:         "/docs/",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	got := paths(result)
	if len(got) != 1 || got[0] != "/docs/b.txt" {
		t.Errorf("paths = %v, want [/docs/b.txt]", got)
	}
}

func TestListRecursive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	seedTree(t, env, orgID, owner)

	result, err := env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Prefix:         "/docs/",
		Recursive:      true,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if result.Total != 2 {
		t.Errorf("total = %d, want 2", result.Total)
	}

	got := paths(result)
	if len(got) != 2 || got[0] != "/docs/b.txt" || got[1] != "/docs/deep/c.txt" {
		t.Errorf("paths = %v", got)
	}
}

func TestListRecursiveMaxDepth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	seedTree(t, env, orgID, owner)

	depth := 1

	result, err := env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Prefix:         "/docs/",
		Recursive:      true,
		MaxDepth:       &depth,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	got := paths(result)
	if len(got) != 1 || got[0] != "/docs/b.txt" {
		t.Errorf("paths = %v, want depth-1 only", got)
	}
}

func TestListVisibilityFollowsGrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	reader := env.seedAgent(t, orgID)
	docs := seedTree(t, env, orgID, owner)

	env.grant(t, docs["/docs/b.txt"].ID, owner, reader, model.PermissionRead)

	result, err := env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        reader,
		Recursive:      true,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	got := paths(result)
	if len(got) != 1 || got[0] != "/docs/b.txt" {
		t.Errorf("reader sees %v, want only granted document", got)
	}

	// WRITE 不带来可见性
	writer := env.seedAgent(t, orgID)
	env.grant(t, docs["/other/d.txt"].ID, owner, writer, model.PermissionWrite)

	result, err = env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        writer,
		Recursive:      true,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(result.Documents) != 0 {
		t.Errorf("writer without READ sees %v", paths(result))
	}
}

func TestListExcludesDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	docs := seedTree(t, env, orgID, owner)

	if err := env.svc.DeleteDocument(ctx, docs["/a.txt"].ID, owner, false); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	result, err := env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Recursive:      true,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	for _, p := range paths(result) {
		if p == "/a.txt" {
			t.Error("soft deleted document should be invisible")
		}
	}

	// 按 deleted 过滤是参数错误
	_, err = env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Status:         string(model.StatusDeleted),
	})

	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestListTagFilterAndSort(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)

	for _, spec := range []struct {
		name string
		tags []string
	}{
		{"x.txt", []string{"red", "big"}},
		{"y.txt", []string{"red"}},
		{"z.txt", []string{"blue"}},
	} {
		_, err := env.svc.CreateDocument(ctx, &types.CreateDocumentRequest{
			OrganizationID: orgID,
			AgentID:        owner,
			Name:           spec.name,
			Tags:           spec.tags,
			Content:        []byte(spec.name),
		})
		if err != nil {
			t.Fatalf("create %s: %v", spec.name, err)
		}
	}

	result, err := env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Tags:           []string{"red"},
		SortBy:         "name",
		SortOrder:      "desc",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	got := paths(result)
	if len(got) != 2 || got[0] != "/y.txt" || got[1] != "/x.txt" {
		t.Errorf("paths = %v, want [/y.txt /x.txt]", got)
	}

	// 多标签为 AND 语义
	result, err = env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Tags:           []string{"red", "big"},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(result.Documents) != 1 || result.Documents[0].Path != "/x.txt" {
		t.Errorf("paths = %v, want [/x.txt]", paths(result))
	}
}

func TestListPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	seedTree(t, env, orgID, owner)

	result, err := env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Recursive:      true,
		Limit:          2,
		Offset:         2,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if result.Total != 4 {
		t.Errorf("total = %d, want 4", result.Total)
	}

	if len(result.Documents) != 2 {
		t.Errorf("page size = %d, want 2", len(result.Documents))
	}

	_, err = env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Limit:          5000,
	})

	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("limit err = %v, want ValidationError", err)
	}

	_, err = env.svc.ListDocuments(ctx, &types.ListDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		SortBy:         "password",
	})

	if !errors.As(err, &validation) {
		t.Fatalf("sort err = %v, want ValidationError", err)
	}
}

func TestSearchDocuments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)

	_, err := env.svc.CreateDocument(ctx, &types.CreateDocumentRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Name:           "Quarterly Report.pdf",
		Description:    "Q3 financials",
		Tags:           []string{"finance"},
		Content:        []byte("pdf"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	env.createDoc(t, orgID, owner, "meeting-notes.txt", "/", []byte("notes"))

	// 名称命中，大小写不敏感
	result, err := env.svc.SearchDocuments(ctx, &types.SearchDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Query:          "QUARTERLY",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if result.Total != 1 {
		t.Errorf("total = %d, want 1", result.Total)
	}

	// 标签命中
	result, err = env.svc.SearchDocuments(ctx, &types.SearchDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Query:          "finance",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if result.Total != 1 {
		t.Errorf("tag search total = %d, want 1", result.Total)
	}

	// 查询串过短
	_, err = env.svc.SearchDocuments(ctx, &types.SearchDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        owner,
		Query:          "q",
	})

	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestSearchRespectsVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	stranger := env.seedAgent(t, orgID)

	env.createDoc(t, orgID, owner, "secret-plan.txt", "/", []byte("x"))

	result, err := env.svc.SearchDocuments(ctx, &types.SearchDocumentsRequest{
		OrganizationID: orgID,
		AgentID:        stranger,
		Query:          "secret",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if result.Total != 0 {
		t.Errorf("stranger found %d documents, want 0", result.Total)
	}
}
