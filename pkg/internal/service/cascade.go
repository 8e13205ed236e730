package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/types"
	nlog "github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/queue"
)

// DeleteOrganization 级联删除组织.force 为 false 时仅允许删除空组织（无文档无代理）；
// force 为 true 时逐文档物理清除，随后移除全部代理与授权.
// 逐文档删除幂等，中途失败可安全重试；失败时返回部分结果且 Completed 为 false.
func (s *VaultService) DeleteOrganization(ctx context.Context, organizationID string, force bool) (*types.CascadeResult, error) {
	orgID, err := ensureUUID("organization_id", organizationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.getOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	result := &types.CascadeResult{OrganizationID: orgID}

	var (
		docCount   int64
		agentCount int64
	)

	err = s.dbClient.WithContext(ctx).Model(&model.Document{}).
		Where("organization_id = ?", orgID).Count(&docCount).Error
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	err = s.dbClient.WithContext(ctx).Model(&model.Agent{}).
		Where("organization_id = ?", orgID).Count(&agentCount).Error
	if err != nil {
		return nil, fmt.Errorf("count agents: %w", err)
	}

	if !force && (docCount > 0 || agentCount > 0) {
		return nil, invalid("organization %s still has %d documents and %d agents, use force to cascade",
			orgID, docCount, agentCount)
	}

	logger := ctxPkg.WithTraceContext(ctx, nlog.Logger())

	// 分批逐文档清除，每个文档独立事务，失败即中止，结果可部分.
	for {
		var docs []model.Document

		err := s.dbClient.WithContext(ctx).
			Where("organization_id = ?", orgID).
			Order("id").Limit(100).
			Find(&docs).Error
		if err != nil {
			return result, fmt.Errorf("list documents for cascade: %w", err)
		}

		if len(docs) == 0 {
			break
		}

		for i := range docs {
			doc := &docs[i]
			if err := s.hardDeleteDocument(ctx, doc); err != nil {
				result.DocumentsFailed = append(result.DocumentsFailed, doc.ID)
				logger.Error().Err(err).Str("document_id", doc.ID).Msg("cascade delete halted")

				s.publishOrgDeleted(ctx, result)

				return result, err
			}

			result.DocumentsDeleted = append(result.DocumentsDeleted, doc.ID)
		}
	}

	// 文档清空后一个事务内移除代理授权、代理与组织本身
	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agentSub := tx.Model(&model.Agent{}).
			Select("id").
			Where("organization_id = ?", orgID)

		res := tx.Where("agent_id IN (?)", agentSub).Delete(&model.AccessGrant{})
		if res.Error != nil {
			return fmt.Errorf("delete agent grants: %w", res.Error)
		}

		result.GrantsRemoved = res.RowsAffected

		res = tx.Where("organization_id = ?", orgID).Delete(&model.Agent{})
		if res.Error != nil {
			return fmt.Errorf("delete agents: %w", res.Error)
		}

		result.AgentsRemoved = int(res.RowsAffected)

		if err := tx.Delete(&model.Organization{}, "id = ?", orgID).Error; err != nil {
			return fmt.Errorf("delete organization row: %w", err)
		}

		return nil
	})
	if err != nil {
		s.publishOrgDeleted(ctx, result)

		return result, err
	}

	// 桶随组织一起回收，残留对象交给孤儿清理
	if err := s.blob.RemoveBucket(ctx, s.bucketFor(orgID)); err != nil {
		logger.Warn().Err(err).Str("organization_id", orgID).Msg("remove organization bucket failed")
	}

	result.Completed = true
	s.publishOrgDeleted(ctx, result)

	return result, nil
}

func (s *VaultService) publishOrgDeleted(ctx context.Context, result *types.CascadeResult) {
	s.publishEvent(ctx, s.events.Registry.OrgDeleted, func() error {
		return queue.PublishOrganizationDeleted(s.mqClient.Publisher(), queue.OrganizationDeletedPayload{
			OrganizationID:   result.OrganizationID,
			DocumentsDeleted: len(result.DocumentsDeleted),
			AgentsRemoved:    result.AgentsRemoved,
			Completed:        result.Completed,
		})
	})
}

// RemoveAgent 移除代理.force 为 false 时代理若仍创建有存活文档或持有授权则拒绝；
// force 为 true 时清除其全部授权并报告因此失去最后一条 ADMIN 的文档.
// 代理行保留并置为不活跃，保证历史版本的 created_by 仍可追溯.
func (s *VaultService) RemoveAgent(ctx context.Context, agentID string, force bool) (*types.CascadeResult, error) {
	agentID, err := ensureUUID("agent_id", agentID)
	if err != nil {
		return nil, err
	}

	agent, err := s.getAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	result := &types.CascadeResult{AgentID: agentID, OrganizationID: agent.OrganizationID}

	if !force {
		var authored int64

		err := s.dbClient.WithContext(ctx).Model(&model.Document{}).
			Where("created_by = ? AND status <> ?", agentID, model.StatusDeleted).
			Count(&authored).Error
		if err != nil {
			return nil, fmt.Errorf("count authored documents: %w", err)
		}

		var granted int64

		err = s.dbClient.WithContext(ctx).Model(&model.AccessGrant{}).
			Where("agent_id = ?", agentID).
			Count(&granted).Error
		if err != nil {
			return nil, fmt.Errorf("count grants: %w", err)
		}

		if authored > 0 || granted > 0 {
			return nil, invalid("agent %s still has %d live documents and %d grants, use force to cascade",
				agentID, authored, granted)
		}
	}

	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 该代理是唯一 ADMIN 的文档在授权清除后成为孤儿，先行记录
		var orphaned []string

		otherAdmin := tx.Model(&model.AccessGrant{}).
			Select("1").
			Where("access_grants.document_id = documents.id").
			Where("access_grants.agent_id <> ?", agentID).
			Where("access_grants.permission = ?", model.PermissionAdmin)

		err := tx.Model(&model.Document{}).
			Where("status <> ?", model.StatusDeleted).
			Where("id IN (?)", tx.Model(&model.AccessGrant{}).
				Select("document_id").
				Where("agent_id = ? AND permission = ?", agentID, model.PermissionAdmin)).
			Where("NOT EXISTS (?)", otherAdmin).
			Pluck("id", &orphaned).Error
		if err != nil {
			return fmt.Errorf("find orphaned documents: %w", err)
		}

		result.DocumentsOrphaned = orphaned

		res := tx.Where("agent_id = ?", agentID).Delete(&model.AccessGrant{})
		if res.Error != nil {
			return fmt.Errorf("delete grants: %w", res.Error)
		}

		result.GrantsRemoved = res.RowsAffected

		err = tx.Model(&model.Agent{}).
			Where("id = ?", agentID).
			Update("is_active", false).Error
		if err != nil {
			return fmt.Errorf("deactivate agent: %w", err)
		}

		return nil
	})
	if err != nil {
		return result, err
	}

	result.Completed = true

	if len(result.DocumentsOrphaned) > 0 {
		logger := ctxPkg.WithTraceContext(ctx, nlog.Logger())
		logger.Warn().Strs("document_ids", result.DocumentsOrphaned).
			Msg("documents lost their last admin grant")
	}

	s.publishEvent(ctx, s.events.Registry.AgentRemoved, func() error {
		return queue.PublishAgentRemoved(s.mqClient.Publisher(), queue.AgentRemovedPayload{
			AgentID:        agentID,
			OrganizationID: agent.OrganizationID,
			Force:          force,
		})
	})

	return result, nil
}
