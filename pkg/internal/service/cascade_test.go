package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
)

func TestDeleteEmptyOrganization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)

	result, err := env.svc.DeleteOrganization(ctx, orgID, false)
	if err != nil {
		t.Fatalf("delete empty organization: %v", err)
	}

	if !result.Completed {
		t.Error("delete should complete")
	}

	_, err = env.svc.GetOrganization(ctx, orgID)

	var nf *service.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("get after delete = %v, want NotFoundError", err)
	}
}

func TestDeleteOrganizationRequiresForce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	env.createDoc(t, orgID, agentID, "keep.txt", "/", []byte("x"))

	_, err := env.svc.DeleteOrganization(ctx, orgID, false)

	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestDeleteOrganizationCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentA := env.seedAgent(t, orgID)
	agentB := env.seedAgent(t, orgID)

	docA := env.createDoc(t, orgID, agentA, "a.txt", "/", []byte("a"))
	env.createDoc(t, orgID, agentA, "b.txt", "/docs/", []byte("b"))
	env.grant(t, docA.ID, agentA, agentB, model.PermissionRead)

	result, err := env.svc.DeleteOrganization(ctx, orgID, true)
	if err != nil {
		t.Fatalf("cascade delete: %v", err)
	}

	if !result.Completed {
		t.Error("cascade should complete")
	}

	if len(result.DocumentsDeleted) != 2 {
		t.Errorf("documents deleted = %d, want 2", len(result.DocumentsDeleted))
	}

	if result.AgentsRemoved != 2 {
		t.Errorf("agents removed = %d, want 2", result.AgentsRemoved)
	}

	var rows int64

	for _, m := range []any{&model.Document{}, &model.DocumentVersion{}, &model.AccessGrant{}, &model.Agent{}} {
		if err := env.db.Model(m).Count(&rows).Error; err != nil {
			t.Fatalf("count %T: %v", m, err)
		}

		if rows != 0 {
			t.Errorf("%T rows remaining = %d, want 0", m, rows)
		}
	}
}

func TestDeleteOrganizationIdempotentRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	env.createDoc(t, orgID, agentID, "a.txt", "/", []byte("a"))

	if _, err := env.svc.DeleteOrganization(ctx, orgID, true); err != nil {
		t.Fatalf("first cascade: %v", err)
	}

	// 组织已删除，重试表现为 NotFound
	_, err := env.svc.DeleteOrganization(ctx, orgID, true)

	var nf *service.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("retry = %v, want NotFoundError", err)
	}
}

func TestRemoveAgentRequiresForce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	agentID := env.seedAgent(t, orgID)
	env.createDoc(t, orgID, agentID, "mine.txt", "/", []byte("x"))

	_, err := env.svc.RemoveAgent(ctx, agentID, false)

	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestRemoveAgentForce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	owner := env.seedAgent(t, orgID)
	coOwner := env.seedAgent(t, orgID)

	solo := env.createDoc(t, orgID, owner, "solo.txt", "/", []byte("x"))
	shared := env.createDoc(t, orgID, owner, "shared.txt", "/", []byte("y"))
	env.grant(t, shared.ID, owner, coOwner, model.PermissionAdmin)

	result, err := env.svc.RemoveAgent(ctx, owner, true)
	if err != nil {
		t.Fatalf("remove agent: %v", err)
	}

	if !result.Completed {
		t.Error("removal should complete")
	}

	// solo.txt 失去了唯一的 ADMIN，shared.txt 还有 coOwner
	if len(result.DocumentsOrphaned) != 1 || result.DocumentsOrphaned[0] != solo.ID {
		t.Errorf("orphaned = %v, want [%s]", result.DocumentsOrphaned, solo.ID)
	}

	agent, err := env.svc.GetAgent(ctx, owner)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}

	if agent.IsActive {
		t.Error("removed agent should be inactive")
	}

	var rows int64
	if err := env.db.Model(&model.AccessGrant{}).Where("agent_id = ?", owner).Count(&rows).Error; err != nil {
		t.Fatalf("count grants: %v", err)
	}

	if rows != 0 {
		t.Errorf("grants remaining = %d, want 0", rows)
	}
}

func TestRegisterDuplicateOrganization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)

	_, err := env.svc.RegisterOrganization(ctx, &types.RegisterOrganizationRequest{ID: orgID})

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestRegisterAgentUnknownOrganization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.RegisterAgent(ctx, &types.RegisterAgentRequest{
		ID:             "11111111-1111-1111-1111-111111111111",
		OrganizationID: "22222222-2222-2222-2222-222222222222",
	})

	var nf *service.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestUpdateAndListAgents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := env.seedOrg(t)
	active := env.seedAgent(t, orgID)
	dormant := env.seedAgent(t, orgID)

	off := false

	_, err := env.svc.UpdateAgent(ctx, &types.UpdateAgentRequest{
		AgentID:  dormant,
		IsActive: &off,
		Metadata: map[string]string{"role": "batch"},
	})
	if err != nil {
		t.Fatalf("update agent: %v", err)
	}

	agents, total, err := env.svc.ListAgents(ctx, &types.ListAgentsRequest{
		OrganizationID: orgID,
		ActiveOnly:     true,
	})
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}

	if total != 1 || len(agents) != 1 || agents[0].ID != active {
		t.Errorf("active agents = %v (total %d), want only %s", agents, total, active)
	}
}
