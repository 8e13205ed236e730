package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
)

func TestAdminImpliesAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "admin.txt", "/", []byte("x"))

	for _, perm := range model.AllPermissions {
		ok, err := env.svc.ResolvePermission(ctx, doc.ID, owner, perm)
		if err != nil {
			t.Fatalf("resolve %s: %v", perm, err)
		}

		if !ok {
			t.Errorf("ADMIN holder should have %s", perm)
		}
	}
}

func TestNoGrantNoAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	stranger := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "private.txt", "/", []byte("x"))

	ok, err := env.svc.ResolvePermission(ctx, doc.ID, stranger, model.PermissionRead)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if ok {
		t.Error("agent without grant should have no access")
	}
}

func TestExpiredGrantIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	reader := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "timed.txt", "/", []byte("x"))

	// 过期时间只能写未来，先发一条短时授权再把行改成过去
	expiry := time.Now().Add(time.Hour)

	_, err := env.svc.SetGrants(ctx, &types.SetGrantsRequest{
		DocumentID: doc.ID,
		GrantedBy:  owner,
		Grants: []types.GrantSpec{
			{AgentID: owner, Permission: string(model.PermissionAdmin)},
			{AgentID: reader, Permission: string(model.PermissionRead), ExpiresAt: &expiry},
		},
	})
	if err != nil {
		t.Fatalf("set grants: %v", err)
	}

	past := time.Now().Add(-time.Minute)

	err = env.db.Model(&model.AccessGrant{}).
		Where("document_id = ? AND agent_id = ?", doc.ID, reader).
		Update("expires_at", past).Error
	if err != nil {
		t.Fatalf("expire grant: %v", err)
	}

	ok, err := env.svc.ResolvePermission(ctx, doc.ID, reader, model.PermissionRead)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if ok {
		t.Error("expired grant should not confer access")
	}

	grants, err := env.svc.ListGrants(ctx, doc.ID, owner)
	if err != nil {
		t.Fatalf("list grants: %v", err)
	}

	for _, g := range grants {
		if g.AgentID == reader {
			t.Error("expired grant should be filtered from listing")
		}
	}
}

func TestSetGrantsKeepsCallerAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	reader := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "anchored.txt", "/", []byte("x"))

	// 集合里只有 READ：发起方的 ADMIN 不随替换消失
	grants, err := env.svc.SetGrants(ctx, &types.SetGrantsRequest{
		DocumentID: doc.ID,
		GrantedBy:  owner,
		Grants: []types.GrantSpec{
			{AgentID: reader, Permission: string(model.PermissionRead)},
		},
	})
	if err != nil {
		t.Fatalf("set grants: %v", err)
	}

	if len(grants) != 2 {
		t.Errorf("len(grants) = %d, want 2 (submitted READ + retained ADMIN)", len(grants))
	}

	ok, err := env.svc.ResolvePermission(ctx, doc.ID, owner, model.PermissionAdmin)
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}

	if !ok {
		t.Error("owner should retain ADMIN after replacing the set")
	}

	ok, err = env.svc.ResolvePermission(ctx, doc.ID, reader, model.PermissionRead)
	if err != nil {
		t.Fatalf("resolve reader: %v", err)
	}

	if !ok {
		t.Error("reader should hold READ from the new set")
	}
}

func TestSetGrantsSecondAdminKeepsCaller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	coAdmin := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "co-owned.txt", "/", []byte("x"))

	_, err := env.svc.SetGrants(ctx, &types.SetGrantsRequest{
		DocumentID: doc.ID,
		GrantedBy:  owner,
		Grants: []types.GrantSpec{
			{AgentID: coAdmin, Permission: string(model.PermissionAdmin)},
		},
	})
	if err != nil {
		t.Fatalf("set grants: %v", err)
	}

	// 两位 ADMIN 都能查看授权列表
	for _, agent := range []string{owner, coAdmin} {
		if _, err := env.svc.ListGrants(ctx, doc.ID, agent); err != nil {
			t.Errorf("list grants as %s: %v", agent, err)
		}
	}
}

func TestSetGrantsMustKeepAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	sharer := env.seedAgent(t, orgID)
	reader := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "unanchored.txt", "/", []byte("x"))

	env.grant(t, doc.ID, owner, sharer, model.PermissionShare)

	// SHARE 持有方自身无 ADMIN 可保留，提交无 ADMIN 的集合被拒绝
	_, err := env.svc.SetGrants(ctx, &types.SetGrantsRequest{
		DocumentID: doc.ID,
		GrantedBy:  sharer,
		Grants: []types.GrantSpec{
			{AgentID: reader, Permission: string(model.PermissionRead)},
		},
	})

	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestSetGrantsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	reader := env.seedAgent(t, orgID)
	writer := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "stable.txt", "/", []byte("x"))

	req := &types.SetGrantsRequest{
		DocumentID: doc.ID,
		GrantedBy:  owner,
		Grants: []types.GrantSpec{
			{AgentID: reader, Permission: string(model.PermissionRead)},
			{AgentID: writer, Permission: string(model.PermissionWrite)},
		},
	}

	snapshot := func() map[string]struct{} {
		grants, err := env.svc.ListGrants(ctx, doc.ID, owner)
		if err != nil {
			t.Fatalf("list grants: %v", err)
		}

		set := make(map[string]struct{}, len(grants))
		for _, g := range grants {
			set[g.AgentID+"/"+string(g.Permission)] = struct{}{}
		}

		return set
	}

	if _, err := env.svc.SetGrants(ctx, req); err != nil {
		t.Fatalf("first set grants: %v", err)
	}

	first := snapshot()

	if _, err := env.svc.SetGrants(ctx, req); err != nil {
		t.Fatalf("second set grants: %v", err)
	}

	second := snapshot()

	if len(first) != 3 || len(second) != len(first) {
		t.Fatalf("grant sets differ: first %d entries, second %d, want 3", len(first), len(second))
	}

	for key := range first {
		if _, ok := second[key]; !ok {
			t.Errorf("grant %s missing after repeated call", key)
		}
	}
}

func TestSetGrantsRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "dup.txt", "/", []byte("x"))

	_, err := env.svc.SetGrants(ctx, &types.SetGrantsRequest{
		DocumentID: doc.ID,
		GrantedBy:  owner,
		Grants: []types.GrantSpec{
			{AgentID: owner, Permission: string(model.PermissionAdmin)},
			{AgentID: owner, Permission: string(model.PermissionAdmin)},
		},
	})

	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestSetGrantsUnknownAgent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "ghost.txt", "/", []byte("x"))

	_, err := env.svc.SetGrants(ctx, &types.SetGrantsRequest{
		DocumentID: doc.ID,
		GrantedBy:  owner,
		Grants: []types.GrantSpec{
			{AgentID: owner, Permission: string(model.PermissionAdmin)},
			{AgentID: "00000000-0000-0000-0000-000000000001", Permission: string(model.PermissionRead)},
		},
	})

	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestSetGrantsBySharePermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	sharer := env.seedAgent(t, orgID)
	reader := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "shared.txt", "/", []byte("x"))

	env.grant(t, doc.ID, owner, sharer, model.PermissionShare)

	grants, err := env.svc.SetGrants(ctx, &types.SetGrantsRequest{
		DocumentID: doc.ID,
		GrantedBy:  sharer,
		Grants: []types.GrantSpec{
			{AgentID: owner, Permission: string(model.PermissionAdmin)},
			{AgentID: sharer, Permission: string(model.PermissionShare)},
			{AgentID: reader, Permission: string(model.PermissionRead)},
		},
	})
	if err != nil {
		t.Fatalf("set grants by SHARE holder: %v", err)
	}

	if len(grants) != 3 {
		t.Errorf("len(grants) = %d, want 3", len(grants))
	}
}

func TestListGrantsRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	reader := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "roster.txt", "/", []byte("x"))

	env.grant(t, doc.ID, owner, reader, model.PermissionRead)

	_, err := env.svc.ListGrants(ctx, doc.ID, reader)

	var denied *service.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want PermissionDeniedError", err)
	}
}

func TestTransferOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	successor := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "handover.txt", "/", []byte("x"))

	err := env.svc.TransferOwnership(ctx, &types.TransferOwnershipRequest{
		DocumentID: doc.ID,
		NewOwnerID: successor,
		By:         owner,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	ok, err := env.svc.ResolvePermission(ctx, doc.ID, successor, model.PermissionAdmin)
	if err != nil {
		t.Fatalf("resolve successor: %v", err)
	}

	if !ok {
		t.Error("successor should hold ADMIN")
	}

	ok, err = env.svc.ResolvePermission(ctx, doc.ID, owner, model.PermissionAdmin)
	if err != nil {
		t.Fatalf("resolve previous owner: %v", err)
	}

	if ok {
		t.Error("previous owner should lose ADMIN")
	}
}

func TestTransferOwnershipRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	writer := env.seedAgent(t, orgID)
	doc := env.createDoc(t, orgID, owner, "keep.txt", "/", []byte("x"))

	env.grant(t, doc.ID, owner, writer, model.PermissionWrite, model.PermissionShare)

	err := env.svc.TransferOwnership(ctx, &types.TransferOwnershipRequest{
		DocumentID: doc.ID,
		NewOwnerID: writer,
		By:         writer,
	})

	var denied *service.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want PermissionDeniedError", err)
	}
}
