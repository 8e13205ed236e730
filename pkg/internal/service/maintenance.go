package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/model"
	nlog "github.com/yeisme/docvault/pkg/log"
)

// PurgeDeletedDocuments 物理清除 before 之前软删除的文档，返回清除数量.
// 每个文档独立清除，单个失败不中断其余.
func (s *VaultService) PurgeDeletedDocuments(ctx context.Context, before time.Time) (int, error) {
	var docs []model.Document

	err := s.dbClient.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.StatusDeleted, before).
		Order("id").
		Find(&docs).Error
	if err != nil {
		return 0, fmt.Errorf("list deleted documents: %w", err)
	}

	logger := ctxPkg.WithTraceContext(ctx, nlog.Logger())
	purged := 0

	for i := range docs {
		if err := s.hardDeleteDocument(ctx, &docs[i]); err != nil {
			logger.Error().Err(err).Str("document_id", docs[i].ID).Msg("purge deleted document failed")
			continue
		}

		purged++
	}

	return purged, nil
}

// PurgeExpiredGrants 删除 before 之前已过期的授权行.
// 过期授权在查询层早已不可见，这里只是回收存储.
func (s *VaultService) PurgeExpiredGrants(ctx context.Context, before time.Time) (int64, error) {
	res := s.dbClient.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", before).
		Delete(&model.AccessGrant{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired grants: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// SweepOrphanBlobs 回收组织桶中不再被任何版本引用的对象.
// 只清理 modifiedBefore 之前写入的对象，避开正在进行的上传.
func (s *VaultService) SweepOrphanBlobs(ctx context.Context, organizationID string, modifiedBefore time.Time) (int, error) {
	orgID, err := ensureUUID("organization_id", organizationID)
	if err != nil {
		return 0, err
	}

	bucket := s.bucketFor(orgID)

	objects, err := s.blob.List(ctx, bucket, "")
	if err != nil {
		return 0, storageFailure("list", bucket, err)
	}

	logger := ctxPkg.WithTraceContext(ctx, nlog.Logger())
	swept := 0

	for _, obj := range objects {
		if !obj.LastModified.Before(modifiedBefore) {
			continue
		}

		// 对象键形如 docID/v1/filename
		docID, _, ok := strings.Cut(obj.Key, "/")
		if !ok {
			continue
		}

		referenced, err := s.locatorReferenced(ctx, docID, obj.Key)
		if err != nil {
			return swept, err
		}

		if referenced {
			continue
		}

		if err := s.blob.Delete(ctx, bucket, obj.Key); err != nil {
			logger.Warn().Err(err).Str("bucket", bucket).Str("key", obj.Key).Msg("sweep orphan blob failed")
			continue
		}

		logger.Info().Str("bucket", bucket).Str("key", obj.Key).Msg("swept orphan blob")

		swept++
	}

	return swept, nil
}

// ListOrganizationIDs 返回全部组织 ID，供后台任务逐组织执行.
func (s *VaultService) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	var ids []string

	err := s.dbClient.WithContext(ctx).Model(&model.Organization{}).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}

	return ids, nil
}

func (s *VaultService) locatorReferenced(ctx context.Context, docID, locator string) (bool, error) {
	var count int64

	err := s.dbClient.WithContext(ctx).Model(&model.DocumentVersion{}).
		Where("document_id = ? AND storage_locator = ?", docID, locator).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count version references: %w", err)
	}

	if count > 0 {
		return true, nil
	}

	err = s.dbClient.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND storage_locator = ?", docID, locator).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count document references: %w", err)
	}

	return count > 0, nil
}
