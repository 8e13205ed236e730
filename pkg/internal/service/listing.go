package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/types"
)

const (
	defaultListLimit   = 100
	maxListLimit       = 1000
	defaultSearchLimit = 50
	maxSearchLimit     = 100
	minQueryLength     = 2
)

// listSortColumns 列举结果允许的排序字段白名单.
var listSortColumns = map[string]string{
	"name":       "name",
	"path":       "path",
	"size":       "size",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// ListDocuments 列举代理可见的文档.可见性 = 持有未过期 READ 或 ADMIN 授权；
// 支持前缀过滤、递归深度限制、状态与标签过滤、分页与排序.
func (s *VaultService) ListDocuments(ctx context.Context, req *types.ListDocumentsRequest) (*types.ListDocumentsResult, error) {
	orgID, err := ensureUUID("organization_id", req.OrganizationID)
	if err != nil {
		return nil, err
	}

	agentID, err := ensureUUID("agent_id", req.AgentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.getOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	if _, err := s.getAgent(ctx, agentID); err != nil {
		return nil, err
	}

	if req.Prefix != "" {
		if err := validatePrefix(req.Prefix); err != nil {
			return nil, err
		}
	}

	limit, offset, err := normalizePage(req.Limit, req.Offset, defaultListLimit, maxListLimit)
	if err != nil {
		return nil, err
	}

	query := s.visibleDocuments(ctx, orgID, agentID)

	if req.Status != "" {
		status := model.DocumentStatus(req.Status)
		if !status.Valid() || status == model.StatusDeleted {
			return nil, invalid("cannot filter by status %q", req.Status)
		}

		query = query.Where("status = ?", status)
	}

	prefix := normalizePrefix(req.Prefix)
	if req.Recursive {
		if prefix != "/" {
			query = query.Where(`path LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
		}

		if req.MaxDepth != nil {
			if *req.MaxDepth < 1 {
				return nil, invalid("max_depth must be >= 1, got %d", *req.MaxDepth)
			}

			// path 中的 '/' 个数减去前缀自身的个数即为相对深度
			prefixSlashes := strings.Count(prefix, "/")
			if prefix == "/" {
				prefixSlashes = 1
			}

			query = query.Where(
				"(LENGTH(path) - LENGTH(REPLACE(path, '/', ''))) <= ?",
				prefixSlashes-1+*req.MaxDepth,
			)
		}
	} else {
		query = query.Where("prefix = ?", prefix)
	}

	for _, tag := range req.Tags {
		if tag == "" {
			continue
		}

		query = query.Where(`tags_json LIKE ? ESCAPE '\'`, `%"`+escapeLike(tag)+`"%`)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	order, err := buildOrder(req.SortBy, req.SortOrder)
	if err != nil {
		return nil, err
	}

	var docs []model.Document

	err = query.Order(order).Limit(limit).Offset(offset).Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return &types.ListDocumentsResult{
		Documents: docs,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

// SearchDocuments 在代理可见的文档上做子串搜索，匹配名称、描述、文件名与标签.
// 查询串至少 2 个字符，大小写不敏感.
func (s *VaultService) SearchDocuments(ctx context.Context, req *types.SearchDocumentsRequest) (*types.ListDocumentsResult, error) {
	orgID, err := ensureUUID("organization_id", req.OrganizationID)
	if err != nil {
		return nil, err
	}

	agentID, err := ensureUUID("agent_id", req.AgentID)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(req.Query))
	if len(query) < minQueryLength {
		return nil, invalid("search query must be at least %d characters", minQueryLength)
	}

	if _, err := s.getOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	if _, err := s.getAgent(ctx, agentID); err != nil {
		return nil, err
	}

	if req.Prefix != "" {
		if err := validatePrefix(req.Prefix); err != nil {
			return nil, err
		}
	}

	limit, offset, err := normalizePage(req.Limit, req.Offset, defaultSearchLimit, maxSearchLimit)
	if err != nil {
		return nil, err
	}

	db := s.visibleDocuments(ctx, orgID, agentID).
		Where(`search_index LIKE ? ESCAPE '\'`, "%"+escapeLike(query)+"%")

	prefix := normalizePrefix(req.Prefix)
	if prefix != "/" {
		db = db.Where(`path LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count search hits: %w", err)
	}

	var docs []model.Document

	err = db.Order("name, created_at DESC").Limit(limit).Offset(offset).Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	return &types.ListDocumentsResult{
		Documents: docs,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

// visibleDocuments 组织内代理可见文档的基础查询：非删除状态，
// 且存在未过期的 READ 或 ADMIN 授权.EXISTS 子查询避免逐文档鉴权.
func (s *VaultService) visibleDocuments(ctx context.Context, orgID, agentID string) *gorm.DB {
	grantSub := s.dbClient.WithContext(ctx).Model(&model.AccessGrant{}).
		Select("1").
		Where("access_grants.document_id = documents.id").
		Where("access_grants.agent_id = ?", agentID).
		Where("access_grants.permission IN ?", readablePermissions).
		Where("access_grants.expires_at IS NULL OR access_grants.expires_at > CURRENT_TIMESTAMP")

	return s.dbClient.WithContext(ctx).Model(&model.Document{}).
		Where("organization_id = ?", orgID).
		Where("status <> ?", model.StatusDeleted).
		Where("EXISTS (?)", grantSub)
}

// normalizePage 规范化分页参数：limit 为 0 取默认值，越界与负 offset 报错.
func normalizePage(limit, offset, def, max int) (int, int, error) {
	if limit == 0 {
		limit = def
	}

	if limit < 0 || limit > max {
		return 0, 0, invalid("limit must be between 1 and %d, got %d", max, limit)
	}

	if offset < 0 {
		return 0, 0, invalid("offset must be >= 0, got %d", offset)
	}

	return limit, offset, nil
}

// buildOrder 按白名单构造排序表达式，默认 path 升序.
func buildOrder(sortBy, sortOrder string) (string, error) {
	column := "path"

	if sortBy != "" {
		col, ok := listSortColumns[sortBy]
		if !ok {
			return "", invalid("cannot sort by %q", sortBy)
		}

		column = col
	}

	switch sortOrder {
	case "", "asc":
		return column, nil
	case "desc":
		return column + " DESC", nil
	default:
		return "", invalid("sort order must be asc or desc, got %q", sortOrder)
	}
}

// escapeLike 转义 LIKE 模式中的通配符.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)

	return strings.ReplaceAll(s, "_", `\_`)
}
