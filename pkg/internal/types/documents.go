// Package types 定义服务层与 HTTP 层共享的请求/响应结构.
package types

import (
	"time"

	"github.com/yeisme/docvault/pkg/internal/model"
)

// CreateDocumentRequest 创建文档请求.Content 为文档内容本体，
// HTTP 层从 multipart 表单读取后填充.
type CreateDocumentRequest struct {
	OrganizationID string            `json:"organization_id" rule:"required,uuid"`
	AgentID        string            `json:"agent_id"        rule:"required,uuid"`
	Name           string            `json:"name"            rule:"required,max=512"`
	Prefix         string            `json:"prefix,omitempty"`
	Description    string            `json:"description,omitempty"`
	Filename       string            `json:"filename,omitempty"`
	ContentType    string            `json:"content_type,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	// IdempotencyKey 客户端幂等令牌，重试时返回首次结果
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Content        []byte `json:"-"`
}

// ReplaceContentRequest 替换文档内容请求.
type ReplaceContentRequest struct {
	DocumentID  string `json:"document_id" rule:"required,uuid"`
	AgentID     string `json:"agent_id"    rule:"required,uuid"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	ChangeNote  string `json:"change_note,omitempty"`
	// Versioned 为 true 时产生新版本，false 时原位覆盖且不写历史
	Versioned      bool   `json:"versioned"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Content        []byte `json:"-"`
}

// UpdateMetadataRequest 更新文档元数据请求.指针字段为 nil 表示不修改.
type UpdateMetadataRequest struct {
	DocumentID  string   `json:"document_id" rule:"required,uuid"`
	AgentID     string   `json:"agent_id"    rule:"required,uuid"`
	Name        *string  `json:"name,omitempty"`
	Prefix      *string  `json:"prefix,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	// Metadata 按键合并：值为空字符串表示删除该键
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DownloadInfo 下载响应的元信息.
type DownloadInfo struct {
	DocumentID  string `json:"document_id"`
	Version     int    `json:"version"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// DocumentDetail 文档详情：文档行、版本历史，请求者为 ADMIN 时附带授权列表.
type DocumentDetail struct {
	Document model.Document          `json:"document"`
	Versions []model.DocumentVersion `json:"versions"`
	Grants   []model.AccessGrant     `json:"grants,omitempty"`
}

// GrantSpec 单条授权描述，setGrants 的输入元素.
type GrantSpec struct {
	AgentID    string     `json:"agent_id"   rule:"required,uuid"`
	Permission string     `json:"permission" rule:"required"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// SetGrantsRequest 整体替换文档授权集合的请求.
type SetGrantsRequest struct {
	DocumentID string      `json:"document_id" rule:"required,uuid"`
	GrantedBy  string      `json:"granted_by"  rule:"required,uuid"`
	Grants     []GrantSpec `json:"grants"      rule:"required,min=1"`
}

// TransferOwnershipRequest 转移文档所有权的请求.
type TransferOwnershipRequest struct {
	DocumentID string `json:"document_id"  rule:"required,uuid"`
	NewOwnerID string `json:"new_owner_id" rule:"required,uuid"`
	By         string `json:"by"           rule:"required,uuid"`
}
