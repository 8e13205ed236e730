package model

import (
	"time"
)

// AccessGrant 授权记录.一行表示"某代理对某文档持有某权限"，
// (document_id, agent_id, permission) 唯一.过期授权按读取时惰性过滤，
// 行本身由后台任务清理.
type AccessGrant struct {
	ID         uint       `gorm:"primaryKey"                           json:"id"`
	DocumentID string     `gorm:"size:36;index;index:idx_dap,unique"   json:"document_id"`
	AgentID    string     `gorm:"size:36;index;index:idx_dap,unique"   json:"agent_id"`
	Permission Permission `gorm:"size:16;index:idx_dap,unique"         json:"permission"`
	GrantedBy  string     `gorm:"size:36"                              json:"granted_by"`
	GrantedAt  time.Time  `json:"granted_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at,omitempty"`
}

// Expired 判断授权在 now 时刻是否已过期.
func (g *AccessGrant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// AutoMigrateModels 需要迁移的全部模型.
func AutoMigrateModels() []any {
	return []any{
		&Organization{},
		&Agent{},
		&Document{},
		&DocumentVersion{},
		&AccessGrant{},
	}
}
