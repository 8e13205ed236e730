package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	"github.com/yeisme/docvault/pkg/internal/types"
	nlog "github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/queue"
)

// CreateDocument 创建文档：写入对象存储、建立文档行与首版本、
// 授予创建者 ADMIN，全部落在同一事务.携带幂等令牌的重试返回首次结果.
func (s *VaultService) CreateDocument(ctx context.Context, req *types.CreateDocumentRequest) (*model.Document, error) {
	orgID, err := ensureUUID("organization_id", req.OrganizationID)
	if err != nil {
		return nil, err
	}

	agentID, err := ensureUUID("agent_id", req.AgentID)
	if err != nil {
		return nil, err
	}

	if err := validateName(req.Name); err != nil {
		return nil, err
	}

	if err := validatePrefix(req.Prefix); err != nil {
		return nil, err
	}

	if _, err := s.getOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	agent, err := s.getAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if agent.OrganizationID != orgID {
		return nil, invalid("agent %s does not belong to organization %s", agentID, orgID)
	}

	idemScope := "create:" + orgID
	if docID, hit := s.idempotencyGet(ctx, idemScope, req.IdempotencyKey); hit {
		return s.getDocument(ctx, docID)
	}

	now := time.Now()
	docID := uuid.NewString()
	filename := req.Filename
	if filename == "" {
		filename = req.Name
	}

	doc := &model.Document{
		ID:             docID,
		OrganizationID: orgID,
		Name:           req.Name,
		Description:    req.Description,
		Filename:       filename,
		Size:           int64(len(req.Content)),
		ContentType:    detectContentType(req.ContentType, filename),
		StorageLocator: buildLocator(docID, 1, filename),
		CurrentVersion: 1,
		Status:         model.StatusActive,
		Prefix:         normalizePrefix(req.Prefix),
		CreatedBy:      agentID,
		UpdatedBy:      agentID,
		Metadata:       marshalMeta(req.Metadata),
	}
	doc.SetTags(req.Tags)
	doc.RebuildPath()
	doc.RebuildSearchIndex()

	bucket := s.bucketFor(orgID)
	if err := s.blob.EnsureBucket(ctx, bucket); err != nil {
		return nil, storageFailure("ensure-bucket", bucket, err)
	}

	if err := s.blob.Put(ctx, bucket, doc.StorageLocator, bytes.NewReader(req.Content),
		doc.Size, doc.ContentType); err != nil {
		return nil, storageFailure("put", doc.StorageLocator, err)
	}

	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &ConflictError{ID: doc.Path, Reason: "path already exists in organization"}
			}

			return fmt.Errorf("insert document: %w", err)
		}

		grant := model.AccessGrant{
			DocumentID: docID,
			AgentID:    agentID,
			Permission: model.PermissionAdmin,
			GrantedBy:  agentID,
			GrantedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&grant).Error; err != nil {
			return fmt.Errorf("insert admin grant: %w", err)
		}

		version := model.DocumentVersion{
			DocumentID:     docID,
			VersionNumber:  1,
			Filename:       filename,
			Size:           doc.Size,
			ContentType:    doc.ContentType,
			StorageLocator: doc.StorageLocator,
			ChangeType:     model.ChangeTypeCreate,
			ChangeNote:     "Initial version",
			Metadata:       doc.Metadata,
			CreatedBy:      agentID,
		}
		if err := tx.Create(&version).Error; err != nil {
			return fmt.Errorf("insert initial version: %w", err)
		}

		return nil
	})
	if err != nil {
		// 元数据未落库，回收已写入的对象；失败交给后台孤儿清理
		if delErr := s.blob.Delete(ctx, bucket, doc.StorageLocator); delErr != nil {
			nlog.Logger().Warn().Err(delErr).Str("locator", doc.StorageLocator).Msg("orphan blob left behind")
		}

		return nil, err
	}

	s.idempotencySet(ctx, idemScope, req.IdempotencyKey, docID)

	s.publishEvent(ctx, s.events.Document.Created, func() error {
		return queue.PublishDocumentCreated(s.mqClient.Publisher(), queue.DocumentCreatedPayload{
			Document:  documentRef(doc),
			CreatedBy: agentID,
		})
	})

	return doc, nil
}

// ReplaceContent 替换文档内容.Versioned 为 true 时生成 current+1 的新版本；
// 为 false 时原位覆盖当前对象，不产生历史记录.需要 WRITE.
func (s *VaultService) ReplaceContent(ctx context.Context, req *types.ReplaceContentRequest) (*model.Document, error) {
	documentID, err := ensureUUID("document_id", req.DocumentID)
	if err != nil {
		return nil, err
	}

	agentID, err := ensureUUID("agent_id", req.AgentID)
	if err != nil {
		return nil, err
	}

	doc, err := s.getLiveDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.requirePermission(ctx, documentID, agentID, model.PermissionWrite); err != nil {
		return nil, err
	}

	idemScope := "replace:" + documentID
	if _, hit := s.idempotencyGet(ctx, idemScope, req.IdempotencyKey); hit {
		return s.getLiveDocument(ctx, documentID)
	}

	bucket := s.bucketFor(doc.OrganizationID)
	prevVersion := doc.CurrentVersion

	var updated *model.Document

	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked model.Document
		if err := lockForUpdate(tx).Take(&locked, "id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("document", documentID)
			}

			return fmt.Errorf("lock document: %w", err)
		}

		if locked.Status == model.StatusDeleted {
			return notFound("document", documentID)
		}

		filename := req.Filename
		if filename == "" {
			filename = locked.Filename
		}

		contentType := detectContentType(req.ContentType, filename)
		size := int64(len(req.Content))
		prevVersion = locked.CurrentVersion

		if req.Versioned {
			next := locked.CurrentVersion + 1
			locator := buildLocator(locked.ID, next, filename)

			if err := s.blob.Put(ctx, bucket, locator, bytes.NewReader(req.Content), size, contentType); err != nil {
				return storageFailure("put", locator, err)
			}

			version := model.DocumentVersion{
				DocumentID:     locked.ID,
				VersionNumber:  next,
				Filename:       filename,
				Size:           size,
				ContentType:    contentType,
				StorageLocator: locator,
				ChangeType:     model.ChangeTypeUpdate,
				ChangeNote:     req.ChangeNote,
				Metadata:       locked.Metadata,
				CreatedBy:      agentID,
			}
			if err := tx.Create(&version).Error; err != nil {
				// 唯一约束 (document_id, version_number) 兜底并发写入
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return &ConflictError{ID: locked.ID, Reason: "concurrent version write"}
				}

				return fmt.Errorf("insert version %d: %w", next, err)
			}

			locked.CurrentVersion = next
			locked.StorageLocator = locator
		} else {
			// 原位覆盖：对象键不变，历史不动，同步当前版本行的快照字段
			if err := s.blob.Put(ctx, bucket, locked.StorageLocator, bytes.NewReader(req.Content), size, contentType); err != nil {
				return storageFailure("put", locked.StorageLocator, err)
			}

			err := tx.Model(&model.DocumentVersion{}).
				Where("document_id = ? AND version_number = ?", locked.ID, locked.CurrentVersion).
				Updates(map[string]any{
					"size":         size,
					"content_type": contentType,
					"filename":     filename,
					"created_by":   agentID,
				}).Error
			if err != nil {
				return fmt.Errorf("sync current version row: %w", err)
			}
		}

		locked.Filename = filename
		locked.Size = size
		locked.ContentType = contentType
		locked.UpdatedBy = agentID
		locked.RebuildSearchIndex()

		if err := tx.Save(&locked).Error; err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		updated = &locked

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.idempotencySet(ctx, idemScope, req.IdempotencyKey, documentID)

	s.publishEvent(ctx, s.events.Document.Replaced, func() error {
		return queue.PublishDocumentReplaced(s.mqClient.Publisher(), queue.DocumentReplacedPayload{
			Document:    documentRef(updated),
			Versioned:   req.Versioned,
			PrevVersion: prevVersion,
			UpdatedBy:   agentID,
		})
	})

	return updated, nil
}

// RestoreVersion 将历史版本恢复为新的当前版本：复制旧对象为 current+1 的新对象，
// 历史记录保持连续.恢复不存在的版本按参数错误处理.需要 WRITE.
func (s *VaultService) RestoreVersion(ctx context.Context, documentID string, versionNumber int, agentID string) (*model.Document, error) {
	documentID, err := ensureUUID("document_id", documentID)
	if err != nil {
		return nil, err
	}

	agentID, err = ensureUUID("agent_id", agentID)
	if err != nil {
		return nil, err
	}

	if versionNumber < 1 {
		return nil, invalid("version number must be >= 1, got %d", versionNumber)
	}

	doc, err := s.getLiveDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.requirePermission(ctx, documentID, agentID, model.PermissionWrite); err != nil {
		return nil, err
	}

	bucket := s.bucketFor(doc.OrganizationID)
	fromVersion := versionNumber

	var updated *model.Document

	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked model.Document
		if err := lockForUpdate(tx).Take(&locked, "id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("document", documentID)
			}

			return fmt.Errorf("lock document: %w", err)
		}

		if locked.Status == model.StatusDeleted {
			return notFound("document", documentID)
		}

		var target model.DocumentVersion

		err := tx.Take(&target, "document_id = ? AND version_number = ?", documentID, versionNumber).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("version %d does not exist for document %s", versionNumber, documentID)
			}

			return fmt.Errorf("query version %d: %w", versionNumber, err)
		}

		next := locked.CurrentVersion + 1
		locator := buildLocator(locked.ID, next, target.Filename)

		if err := s.blob.Copy(ctx, bucket, target.StorageLocator, locator); err != nil {
			return storageFailure("copy", target.StorageLocator, err)
		}

		version := model.DocumentVersion{
			DocumentID:     locked.ID,
			VersionNumber:  next,
			Filename:       target.Filename,
			Size:           target.Size,
			ContentType:    target.ContentType,
			StorageLocator: locator,
			ChangeType:     model.ChangeTypeRestore,
			ChangeNote:     fmt.Sprintf("Restored from version %d", versionNumber),
			Metadata:       target.Metadata,
			CreatedBy:      agentID,
		}
		if err := tx.Create(&version).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &ConflictError{ID: locked.ID, Reason: "concurrent version write"}
			}

			return fmt.Errorf("insert restore version: %w", err)
		}

		locked.CurrentVersion = next
		locked.StorageLocator = locator
		locked.Filename = target.Filename
		locked.Size = target.Size
		locked.ContentType = target.ContentType
		locked.UpdatedBy = agentID
		locked.RebuildSearchIndex()

		if err := tx.Save(&locked).Error; err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		updated = &locked

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, s.events.Document.Restored, func() error {
		return queue.PublishDocumentRestored(s.mqClient.Publisher(), queue.DocumentRestoredPayload{
			Document:    documentRef(updated),
			FromVersion: fromVersion,
			RestoredBy:  agentID,
		})
	})

	return updated, nil
}

// UpdateMetadata 更新文档的名称、前缀、描述、标签与元数据映射.
// 名称或前缀变化时重算逻辑路径，组织内路径冲突报告 Conflict.需要 WRITE.
func (s *VaultService) UpdateMetadata(ctx context.Context, req *types.UpdateMetadataRequest) (*model.Document, error) {
	documentID, err := ensureUUID("document_id", req.DocumentID)
	if err != nil {
		return nil, err
	}

	agentID, err := ensureUUID("agent_id", req.AgentID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return nil, err
		}
	}

	if req.Prefix != nil {
		if err := validatePrefix(*req.Prefix); err != nil {
			return nil, err
		}
	}

	if _, err := s.getLiveDocument(ctx, documentID); err != nil {
		return nil, err
	}

	if err := s.requirePermission(ctx, documentID, agentID, model.PermissionWrite); err != nil {
		return nil, err
	}

	var (
		updated  *model.Document
		prevPath string
	)

	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked model.Document
		if err := lockForUpdate(tx).Take(&locked, "id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("document", documentID)
			}

			return fmt.Errorf("lock document: %w", err)
		}

		if locked.Status == model.StatusDeleted {
			return notFound("document", documentID)
		}

		prevPath = locked.Path

		if req.Name != nil {
			locked.Name = *req.Name
		}

		if req.Prefix != nil {
			locked.Prefix = normalizePrefix(*req.Prefix)
		}

		if req.Name != nil || req.Prefix != nil {
			locked.RebuildPath()
		}

		if req.Description != nil {
			locked.Description = *req.Description
		}

		if req.Tags != nil {
			locked.SetTags(req.Tags)
		}

		if req.Metadata != nil {
			locked.Metadata = mergeMeta(locked.Metadata, req.Metadata)
		}

		locked.UpdatedBy = agentID
		locked.RebuildSearchIndex()

		if err := tx.Save(&locked).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &ConflictError{ID: locked.Path, Reason: "path already exists in organization"}
			}

			return fmt.Errorf("update document: %w", err)
		}

		updated = &locked

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, s.events.Document.MetaUpdated, func() error {
		payload := queue.DocumentMetaUpdatedPayload{
			Document:  documentRef(updated),
			UpdatedBy: agentID,
		}
		if updated.Path != prevPath {
			payload.PrevPath = prevPath
		}

		return queue.PublishDocumentMetaUpdated(s.mqClient.Publisher(), payload)
	})

	return updated, nil
}

// DeleteDocument 删除文档.hard 为 false 时软删除（status=deleted，行与对象保留）；
// 为 true 时物理清除行与全部版本对象.需要 DELETE.
// 草稿不可删除；对已软删除文档的软删除表现为 NotFound.
func (s *VaultService) DeleteDocument(ctx context.Context, documentID, agentID string, hard bool) error {
	documentID, err := ensureUUID("document_id", documentID)
	if err != nil {
		return err
	}

	agentID, err = ensureUUID("agent_id", agentID)
	if err != nil {
		return err
	}

	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if doc.Status == model.StatusDeleted && !hard {
		return notFound("document", documentID)
	}

	if doc.Status != model.StatusDeleted && !doc.Status.CanTransitionTo(model.StatusDeleted) {
		return invalid("document in status %s cannot be deleted", doc.Status)
	}

	if err := s.requirePermission(ctx, documentID, agentID, model.PermissionDelete); err != nil {
		return err
	}

	if hard {
		if err := s.hardDeleteDocument(ctx, doc); err != nil {
			return err
		}
	} else {
		err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&model.Document{}).
				Where("id = ? AND status <> ?", documentID, model.StatusDeleted).
				Updates(map[string]any{
					"status":     model.StatusDeleted,
					"updated_by": agentID,
				})
			if res.Error != nil {
				return fmt.Errorf("soft delete document: %w", res.Error)
			}

			if res.RowsAffected == 0 {
				return notFound("document", documentID)
			}

			return nil
		})
		if err != nil {
			return err
		}
	}

	s.publishEvent(ctx, s.events.Document.Deleted, func() error {
		return queue.PublishDocumentDeleted(s.mqClient.Publisher(), queue.DocumentDeletedPayload{
			Document:  documentRef(doc),
			Hard:      hard,
			DeletedBy: agentID,
		})
	})

	return nil
}

// hardDeleteDocument 物理清除：同一事务删除授权、版本与文档行，
// 提交后尽力删除对象；残留对象由后台孤儿清理回收.
func (s *VaultService) hardDeleteDocument(ctx context.Context, doc *model.Document) error {
	var locators []string

	err := s.dbClient.WithContext(ctx).Model(&model.DocumentVersion{}).
		Where("document_id = ?", doc.ID).
		Pluck("storage_locator", &locators).Error
	if err != nil {
		return fmt.Errorf("collect version locators: %w", err)
	}

	seen := make(map[string]struct{}, len(locators)+1)
	for _, loc := range append(locators, doc.StorageLocator) {
		if loc != "" {
			seen[loc] = struct{}{}
		}
	}

	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.AccessGrant{}).Error; err != nil {
			return fmt.Errorf("delete grants: %w", err)
		}

		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.DocumentVersion{}).Error; err != nil {
			return fmt.Errorf("delete versions: %w", err)
		}

		if err := tx.Delete(&model.Document{}, "id = ?", doc.ID).Error; err != nil {
			return fmt.Errorf("delete document row: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.deleteBlobs(ctx, s.bucketFor(doc.OrganizationID), seen)

	return nil
}

// deleteBlobs 并行尽力删除对象，失败只记日志.
func (s *VaultService) deleteBlobs(ctx context.Context, bucket string, locators map[string]struct{}) {
	logger := ctxPkg.WithTraceContext(ctx, nlog.Logger())

	for loc := range locators {
		if err := s.blob.Delete(ctx, bucket, loc); err != nil && !errors.Is(err, blob.ErrNotFound) {
			logger.Warn().Err(err).Str("bucket", bucket).Str("locator", loc).Msg("orphan blob left behind")
		}
	}
}

// DownloadDocument 下载当前版本或指定历史版本的内容.需要 READ.
func (s *VaultService) DownloadDocument(ctx context.Context, documentID, agentID string, version *int) ([]byte, *types.DownloadInfo, error) {
	documentID, err := ensureUUID("document_id", documentID)
	if err != nil {
		return nil, nil, err
	}

	agentID, err = ensureUUID("agent_id", agentID)
	if err != nil {
		return nil, nil, err
	}

	doc, err := s.getLiveDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.requirePermission(ctx, documentID, agentID, model.PermissionRead); err != nil {
		return nil, nil, err
	}

	info := &types.DownloadInfo{
		DocumentID:  doc.ID,
		Version:     doc.CurrentVersion,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Size:        doc.Size,
	}
	locator := doc.StorageLocator

	if version != nil && *version != doc.CurrentVersion {
		var target model.DocumentVersion

		err := s.dbClient.WithContext(ctx).
			Take(&target, "document_id = ? AND version_number = ?", documentID, *version).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, invalid("version %d does not exist for document %s", *version, documentID)
			}

			return nil, nil, fmt.Errorf("query version %d: %w", *version, err)
		}

		info.Version = target.VersionNumber
		info.Filename = target.Filename
		info.ContentType = target.ContentType
		info.Size = target.Size
		locator = target.StorageLocator
	}

	bucket := s.bucketFor(doc.OrganizationID)

	rc, err := s.blob.Get(ctx, bucket, locator)
	if err != nil {
		return nil, nil, storageFailure("get", locator, err)
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, storageFailure("read", locator, err)
	}

	return content, info, nil
}

// GetDocument 返回文档详情与版本历史；请求者持有 ADMIN 时附带授权列表.需要 READ.
func (s *VaultService) GetDocument(ctx context.Context, documentID, agentID string) (*types.DocumentDetail, error) {
	documentID, err := ensureUUID("document_id", documentID)
	if err != nil {
		return nil, err
	}

	agentID, err = ensureUUID("agent_id", agentID)
	if err != nil {
		return nil, err
	}

	doc, err := s.getLiveDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.requirePermission(ctx, documentID, agentID, model.PermissionRead); err != nil {
		return nil, err
	}

	versions, err := s.listVersions(ctx, documentID)
	if err != nil {
		return nil, err
	}

	detail := &types.DocumentDetail{Document: *doc, Versions: versions}

	isAdmin, err := s.hasPermission(ctx, documentID, agentID, model.PermissionAdmin)
	if err != nil {
		return nil, err
	}

	if isAdmin {
		grants, err := s.ListGrants(ctx, documentID, agentID)
		if err != nil {
			return nil, err
		}

		detail.Grants = grants
	}

	return detail, nil
}

// ListVersions 返回文档的版本历史，按版本号升序.需要 READ.
func (s *VaultService) ListVersions(ctx context.Context, documentID, agentID string) ([]model.DocumentVersion, error) {
	documentID, err := ensureUUID("document_id", documentID)
	if err != nil {
		return nil, err
	}

	agentID, err = ensureUUID("agent_id", agentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.getLiveDocument(ctx, documentID); err != nil {
		return nil, err
	}

	if err := s.requirePermission(ctx, documentID, agentID, model.PermissionRead); err != nil {
		return nil, err
	}

	return s.listVersions(ctx, documentID)
}

func (s *VaultService) listVersions(ctx context.Context, documentID string) ([]model.DocumentVersion, error) {
	var versions []model.DocumentVersion

	err := s.dbClient.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("version_number").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	return versions, nil
}
