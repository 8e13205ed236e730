package types

import (
	"github.com/yeisme/docvault/pkg/internal/model"
)

// ListDocumentsRequest 前缀列举请求.
type ListDocumentsRequest struct {
	OrganizationID string `json:"organization_id" form:"organization_id" rule:"required,uuid"`
	AgentID        string `json:"agent_id"        form:"agent_id"        rule:"required,uuid"`
	// Prefix 层级前缀，空等价于根 "/"
	Prefix string `json:"prefix" form:"prefix"`
	// Recursive 为 false 时仅列出 prefix 的直接子节点
	Recursive bool `json:"recursive" form:"recursive"`
	// MaxDepth 递归列举的相对深度上限，nil 表示不限
	MaxDepth *int `json:"max_depth,omitempty" form:"max_depth"`
	// Status 按状态过滤，空表示全部非 deleted
	Status string   `json:"status" form:"status"`
	Tags   []string `json:"tags"   form:"tags"`
	SortBy string   `json:"sort_by" form:"sort_by"`
	// SortOrder asc 或 desc
	SortOrder string `json:"sort_order" form:"sort_order"`
	Limit     int    `json:"limit"      form:"limit"`
	Offset    int    `json:"offset"     form:"offset"`
}

// SearchDocumentsRequest 名称/描述搜索请求.
type SearchDocumentsRequest struct {
	OrganizationID string `json:"organization_id" form:"organization_id" rule:"required,uuid"`
	AgentID        string `json:"agent_id"        form:"agent_id"        rule:"required,uuid"`
	Query          string `json:"query"           form:"query"           rule:"required,min=2"`
	// Prefix 限定搜索范围，空表示整个组织
	Prefix string `json:"prefix" form:"prefix"`
	Limit  int    `json:"limit"  form:"limit"`
	Offset int    `json:"offset" form:"offset"`
}

// ListDocumentsResult 分页列举结果.Total 为过滤后的总数.
type ListDocumentsResult struct {
	Documents []model.Document `json:"documents"`
	Total     int64            `json:"total"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
}
