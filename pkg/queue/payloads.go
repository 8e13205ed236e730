package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// DocumentRef 标识文档及其当前版本.
type DocumentRef struct {
	DocumentID     string `json:"document_id"`
	OrganizationID string `json:"organization_id"`
	Path           string `json:"path,omitempty"`
	Version        int    `json:"version,omitempty"`
	StorageLocator string `json:"storage_locator,omitempty"`
	Size           int64  `json:"size,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
}

// DocumentCreatedPayload 文档创建完成.
type DocumentCreatedPayload struct {
	Document  DocumentRef `json:"document"`
	CreatedBy string      `json:"created_by"`
}

// DocumentReplacedPayload 文档内容替换.
type DocumentReplacedPayload struct {
	Document DocumentRef `json:"document"`
	// Versioned 为 true 表示产生了新版本，false 表示原位覆盖
	Versioned   bool   `json:"versioned"`
	PrevVersion int    `json:"prev_version,omitempty"`
	UpdatedBy   string `json:"updated_by"`
}

// DocumentRestoredPayload 文档从历史版本恢复.
type DocumentRestoredPayload struct {
	Document    DocumentRef `json:"document"`
	FromVersion int         `json:"from_version"`
	RestoredBy  string      `json:"restored_by"`
}

// DocumentMetaUpdatedPayload 文档元数据更新.
type DocumentMetaUpdatedPayload struct {
	Document  DocumentRef `json:"document"`
	UpdatedBy string      `json:"updated_by"`
	// PrevPath 路径变化时记录旧路径
	PrevPath string `json:"prev_path,omitempty"`
}

// DocumentDeletedPayload 文档删除（软删除或物理清除）.
type DocumentDeletedPayload struct {
	Document  DocumentRef `json:"document"`
	Hard      bool        `json:"hard"`
	DeletedBy string      `json:"deleted_by,omitempty"`
}

// GrantsReplacedPayload 文档授权集合被整体替换.
type GrantsReplacedPayload struct {
	Document   DocumentRef `json:"document"`
	GrantCount int         `json:"grant_count"`
	GrantedBy  string      `json:"granted_by"`
}

// OwnershipTransferredPayload ADMIN 所有权转移.
type OwnershipTransferredPayload struct {
	Document      DocumentRef `json:"document"`
	NewOwner      string      `json:"new_owner"`
	PreviousOwner string      `json:"previous_owner,omitempty"`
}

// OrganizationDeletedPayload 组织级联删除完成.
type OrganizationDeletedPayload struct {
	OrganizationID   string `json:"organization_id"`
	DocumentsDeleted int    `json:"documents_deleted"`
	AgentsRemoved    int    `json:"agents_removed"`
	Completed        bool   `json:"completed"`
}

// AgentRemovedPayload 代理移除.
type AgentRemovedPayload struct {
	AgentID        string `json:"agent_id"`
	OrganizationID string `json:"organization_id"`
	// Force 为 true 表示连带清除其授权记录
	Force bool `json:"force"`
}
