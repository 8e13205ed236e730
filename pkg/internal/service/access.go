package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/queue"
)

// readablePermissions 使文档在列举/搜索中可见的权限集合.
var readablePermissions = []model.Permission{model.PermissionRead, model.PermissionAdmin}

// ResolvePermission 判断代理对文档是否持有指定权限.
// ADMIN 支配其余权限；过期授权视同不存在.
func (s *VaultService) ResolvePermission(ctx context.Context, documentID, agentID string, perm model.Permission) (bool, error) {
	documentID, err := ensureUUID("document_id", documentID)
	if err != nil {
		return false, err
	}

	agentID, err = ensureUUID("agent_id", agentID)
	if err != nil {
		return false, err
	}

	if !perm.Valid() {
		return false, invalid("unknown permission %q", perm)
	}

	if _, err := s.getLiveDocument(ctx, documentID); err != nil {
		return false, err
	}

	return s.hasPermission(ctx, documentID, agentID, perm)
}

// hasPermission 单条 SQL 判定：目标权限或 ADMIN，且未过期.
func (s *VaultService) hasPermission(ctx context.Context, documentID, agentID string, perm model.Permission) (bool, error) {
	var count int64

	err := s.dbClient.WithContext(ctx).Model(&model.AccessGrant{}).
		Where("document_id = ? AND agent_id = ?", documentID, agentID).
		Where("permission IN ?", []model.Permission{perm, model.PermissionAdmin}).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("query grants: %w", err)
	}

	return count > 0, nil
}

// requirePermission 权限不足时返回 PermissionDeniedError.
func (s *VaultService) requirePermission(ctx context.Context, documentID, agentID string, perm model.Permission) error {
	ok, err := s.hasPermission(ctx, documentID, agentID, perm)
	if err != nil {
		return err
	}

	if !ok {
		return &PermissionDeniedError{DocumentID: documentID, AgentID: agentID, Required: perm}
	}

	return nil
}

// ListGrants 返回文档的全部未过期授权.仅 ADMIN 可见.
func (s *VaultService) ListGrants(ctx context.Context, documentID, requesterID string) ([]model.AccessGrant, error) {
	documentID, err := ensureUUID("document_id", documentID)
	if err != nil {
		return nil, err
	}

	requesterID, err = ensureUUID("requester_id", requesterID)
	if err != nil {
		return nil, err
	}

	if _, err := s.getLiveDocument(ctx, documentID); err != nil {
		return nil, err
	}

	if err := s.requirePermission(ctx, documentID, requesterID, model.PermissionAdmin); err != nil {
		return nil, err
	}

	var grants []model.AccessGrant

	err = s.dbClient.WithContext(ctx).
		Where("document_id = ?", documentID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("agent_id, permission").
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}

	return grants, nil
}

// SetGrants 整体替换文档的授权集合.发起方需持有 ADMIN 或 SHARE.
// 发起方自身的未过期 ADMIN 授权隐式保留，不随替换消失；移交 ADMIN 走
// TransferOwnership.替换后的集合仍须保有至少一条未过期 ADMIN，否则拒绝.
// 同一输入重复执行结果一致.
func (s *VaultService) SetGrants(ctx context.Context, req *types.SetGrantsRequest) ([]model.AccessGrant, error) {
	documentID, err := ensureUUID("document_id", req.DocumentID)
	if err != nil {
		return nil, err
	}

	grantedBy, err := ensureUUID("granted_by", req.GrantedBy)
	if err != nil {
		return nil, err
	}

	doc, err := s.getLiveDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.requirePermission(ctx, documentID, grantedBy, model.PermissionShare); err != nil {
		return nil, err
	}

	now := time.Now()

	rows, err := buildGrantRows(documentID, grantedBy, now, req.Grants)
	if err != nil {
		return nil, err
	}

	// 目标代理必须真实存在，缺失按参数错误处理
	for _, row := range rows {
		if _, err := s.getAgent(ctx, row.AgentID); err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				return nil, invalid("grant target agent %s does not exist", row.AgentID)
			}

			return nil, err
		}
	}

	callerAdminIncluded := false
	hasAdmin := false

	for _, row := range rows {
		if row.Permission == model.PermissionAdmin {
			hasAdmin = true

			if row.AgentID == grantedBy {
				callerAdminIncluded = true
			}
		}
	}

	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked model.Document
		if err := lockForUpdate(tx).Take(&locked, "id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("document", documentID)
			}

			return fmt.Errorf("lock document: %w", err)
		}

		// 发起方已有的未过期 ADMIN 随新集合原样保留
		if !callerAdminIncluded {
			var keep model.AccessGrant

			err := tx.Where("document_id = ? AND agent_id = ? AND permission = ?",
				documentID, grantedBy, model.PermissionAdmin).
				Where("expires_at IS NULL OR expires_at > ?", now).
				Take(&keep).Error
			switch {
			case err == nil:
				keep.ID = 0
				keep.UpdatedAt = now
				rows = append(rows, keep)
				hasAdmin = true
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("load caller admin grant: %w", err)
			}
		}

		if !hasAdmin {
			return invalid("replacement grant set must keep at least one unexpired ADMIN")
		}

		if err := tx.Where("document_id = ?", documentID).Delete(&model.AccessGrant{}).Error; err != nil {
			return fmt.Errorf("clear grants: %w", err)
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert grants: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, s.events.Document.Grants, func() error {
		return queue.PublishGrantsReplaced(s.mqClient.Publisher(), queue.GrantsReplacedPayload{
			Document:   documentRef(doc),
			GrantCount: len(rows),
			GrantedBy:  grantedBy,
		})
	})

	return rows, nil
}

// buildGrantRows 校验授权描述并生成行：权限合法、无重复、过期时间在未来.
func buildGrantRows(documentID, grantedBy string, now time.Time, specs []types.GrantSpec) ([]model.AccessGrant, error) {
	if len(specs) == 0 {
		return nil, invalid("grants must not be empty")
	}

	seen := make(map[string]struct{}, len(specs))
	rows := make([]model.AccessGrant, 0, len(specs))

	for _, spec := range specs {
		agentID, err := ensureUUID("grant agent_id", spec.AgentID)
		if err != nil {
			return nil, err
		}

		perm := model.Permission(spec.Permission)
		if !perm.Valid() {
			return nil, invalid("unknown permission %q", spec.Permission)
		}

		key := agentID + "/" + string(perm)
		if _, dup := seen[key]; dup {
			return nil, invalid("duplicate grant %s for agent %s", perm, agentID)
		}

		seen[key] = struct{}{}

		if spec.ExpiresAt != nil && !spec.ExpiresAt.After(now) {
			return nil, invalid("grant %s for agent %s expires in the past", perm, agentID)
		}

		rows = append(rows, model.AccessGrant{
			DocumentID: documentID,
			AgentID:    agentID,
			Permission: perm,
			GrantedBy:  grantedBy,
			GrantedAt:  now,
			UpdatedAt:  now,
			ExpiresAt:  spec.ExpiresAt,
		})
	}

	return rows, nil
}

// TransferOwnership 原子转移 ADMIN 所有权：newOwner 获得（或保持）ADMIN，
// 发起方的 ADMIN 授权随之移除.任一时刻文档都保有至少一条 ADMIN 授权.
func (s *VaultService) TransferOwnership(ctx context.Context, req *types.TransferOwnershipRequest) error {
	documentID, err := ensureUUID("document_id", req.DocumentID)
	if err != nil {
		return err
	}

	newOwnerID, err := ensureUUID("new_owner_id", req.NewOwnerID)
	if err != nil {
		return err
	}

	byID, err := ensureUUID("by", req.By)
	if err != nil {
		return err
	}

	doc, err := s.getLiveDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if _, err := s.getAgent(ctx, newOwnerID); err != nil {
		return err
	}

	if err := s.requirePermission(ctx, documentID, byID, model.PermissionAdmin); err != nil {
		return err
	}

	now := time.Now()

	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked model.Document
		if err := lockForUpdate(tx).Take(&locked, "id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("document", documentID)
			}

			return fmt.Errorf("lock document: %w", err)
		}

		grant := model.AccessGrant{
			DocumentID: documentID,
			AgentID:    newOwnerID,
			Permission: model.PermissionAdmin,
			GrantedBy:  byID,
			GrantedAt:  now,
			UpdatedAt:  now,
		}

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "document_id"}, {Name: "agent_id"}, {Name: "permission"}},
			DoUpdates: clause.Assignments(map[string]any{
				"granted_by": byID,
				"updated_at": now,
				"expires_at": nil,
			}),
		}).Create(&grant).Error
		if err != nil {
			return fmt.Errorf("upsert admin grant: %w", err)
		}

		if byID != newOwnerID {
			err := tx.Where("document_id = ? AND agent_id = ? AND permission = ?",
				documentID, byID, model.PermissionAdmin).
				Delete(&model.AccessGrant{}).Error
			if err != nil {
				return fmt.Errorf("drop previous admin grant: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, s.events.Document.Grants, func() error {
		return queue.PublishOwnershipTransferred(s.mqClient.Publisher(), queue.OwnershipTransferredPayload{
			Document:      documentRef(doc),
			NewOwner:      newOwnerID,
			PreviousOwner: byID,
		})
	})

	return nil
}

// documentRef 构造事件负载中的文档引用.
func documentRef(doc *model.Document) queue.DocumentRef {
	return queue.DocumentRef{
		DocumentID:     doc.ID,
		OrganizationID: doc.OrganizationID,
		Path:           doc.Path,
		Version:        doc.CurrentVersion,
		StorageLocator: doc.StorageLocator,
		Size:           doc.Size,
		ContentType:    doc.ContentType,
	}
}
