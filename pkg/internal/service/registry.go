package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/types"
)

// RegisterOrganization 登记组织.ID 由调用方提供（上游身份系统分配），重复登记报告 Conflict.
func (s *VaultService) RegisterOrganization(ctx context.Context, req *types.RegisterOrganizationRequest) (*model.Organization, error) {
	orgID, err := ensureUUID("organization_id", req.ID)
	if err != nil {
		return nil, err
	}

	org := &model.Organization{
		ID:       orgID,
		Metadata: marshalMeta(req.Metadata),
	}

	if err := s.dbClient.WithContext(ctx).Create(org).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{ID: orgID, Reason: "organization already registered"}
		}

		return nil, fmt.Errorf("insert organization: %w", err)
	}

	return org, nil
}

// GetOrganization 查询组织.
func (s *VaultService) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	orgID, err := ensureUUID("organization_id", id)
	if err != nil {
		return nil, err
	}

	return s.getOrganization(ctx, orgID)
}

// RegisterAgent 登记代理并挂到组织下.重复登记报告 Conflict.
func (s *VaultService) RegisterAgent(ctx context.Context, req *types.RegisterAgentRequest) (*model.Agent, error) {
	agentID, err := ensureUUID("agent_id", req.ID)
	if err != nil {
		return nil, err
	}

	orgID, err := ensureUUID("organization_id", req.OrganizationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.getOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	agent := &model.Agent{
		ID:             agentID,
		OrganizationID: orgID,
		IsActive:       active,
		Metadata:       marshalMeta(req.Metadata),
	}

	if err := s.dbClient.WithContext(ctx).Create(agent).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{ID: agentID, Reason: "agent already registered"}
		}

		return nil, fmt.Errorf("insert agent: %w", err)
	}

	return agent, nil
}

// GetAgent 查询代理.
func (s *VaultService) GetAgent(ctx context.Context, id string) (*model.Agent, error) {
	agentID, err := ensureUUID("agent_id", id)
	if err != nil {
		return nil, err
	}

	return s.getAgent(ctx, agentID)
}

// UpdateAgent 更新代理的元数据与活跃标记.元数据按键合并，空值删除键.
func (s *VaultService) UpdateAgent(ctx context.Context, req *types.UpdateAgentRequest) (*model.Agent, error) {
	agentID, err := ensureUUID("agent_id", req.AgentID)
	if err != nil {
		return nil, err
	}

	agent, err := s.getAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if req.Metadata != nil {
		agent.Metadata = mergeMeta(agent.Metadata, req.Metadata)
	}

	if req.IsActive != nil {
		agent.IsActive = *req.IsActive
	}

	if err := s.dbClient.WithContext(ctx).Save(agent).Error; err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}

	return agent, nil
}

// ListAgents 列举组织下的代理，按 ID 升序分页.
func (s *VaultService) ListAgents(ctx context.Context, req *types.ListAgentsRequest) ([]model.Agent, int64, error) {
	orgID, err := ensureUUID("organization_id", req.OrganizationID)
	if err != nil {
		return nil, 0, err
	}

	if _, err := s.getOrganization(ctx, orgID); err != nil {
		return nil, 0, err
	}

	limit, offset, err := normalizePage(req.Limit, req.Offset, defaultListLimit, maxListLimit)
	if err != nil {
		return nil, 0, err
	}

	query := s.dbClient.WithContext(ctx).Model(&model.Agent{}).
		Where("organization_id = ?", orgID)
	if req.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count agents: %w", err)
	}

	var agents []model.Agent

	err = query.Order("id").Limit(limit).Offset(offset).Find(&agents).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list agents: %w", err)
	}

	return agents, total, nil
}
