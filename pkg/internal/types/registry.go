package types

// RegisterOrganizationRequest 注册组织请求.ID 由外部系统提供.
type RegisterOrganizationRequest struct {
	ID       string            `json:"id" rule:"required,uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RegisterAgentRequest 注册代理请求.ID 由外部系统提供.
type RegisterAgentRequest struct {
	ID             string            `json:"id"              rule:"required,uuid"`
	OrganizationID string            `json:"organization_id" rule:"required,uuid"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	// IsActive 为 nil 时默认 true
	IsActive *bool `json:"is_active,omitempty"`
}

// UpdateAgentRequest 更新代理请求.nil 字段不修改.
type UpdateAgentRequest struct {
	AgentID  string            `json:"agent_id" rule:"required,uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	IsActive *bool             `json:"is_active,omitempty"`
}

// ListAgentsRequest 列举组织内代理请求.
type ListAgentsRequest struct {
	OrganizationID string `json:"organization_id" form:"organization_id" rule:"required,uuid"`
	ActiveOnly     bool   `json:"active_only"     form:"active_only"`
	Limit          int    `json:"limit"           form:"limit"`
	Offset         int    `json:"offset"          form:"offset"`
}

// CascadeResult 级联删除的结果报告：已移除与未移除的子资源.
// 删除中途出错时 Completed 为 false，已完成的步骤不回滚.
type CascadeResult struct {
	OrganizationID string `json:"organization_id,omitempty"`
	AgentID        string `json:"agent_id,omitempty"`
	// DocumentsDeleted 已物理清除的文档
	DocumentsDeleted []string `json:"documents_deleted,omitempty"`
	// DocumentsFailed 清除失败的文档（级联中止点）
	DocumentsFailed []string `json:"documents_failed,omitempty"`
	// DocumentsOrphaned 因代理移除而失去全部 ADMIN 授权的文档
	DocumentsOrphaned []string `json:"documents_orphaned,omitempty"`
	AgentsRemoved     int      `json:"agents_removed,omitempty"`
	GrantsRemoved     int64    `json:"grants_removed,omitempty"`
	Completed         bool     `json:"completed"`
}
