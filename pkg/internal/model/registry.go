package model

import (
	"time"
)

// Organization 组织模型.主键为外部系统提供的 UUID.
type Organization struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`
	// Metadata 以 JSON 字符串形式存储的扩展信息
	Metadata  string    `gorm:"type:text" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Agent 代理模型.主键为外部系统提供的 UUID，归属于单个组织.
// 名称、邮箱等身份信息由外部系统维护，这里只保留引用与状态.
type Agent struct {
	ID             string    `gorm:"primaryKey;size:36"   json:"id"`
	OrganizationID string    `gorm:"size:36;index;not null" json:"organization_id"`
	IsActive       bool      `gorm:"index"                json:"is_active"`
	Metadata       string    `gorm:"type:text"            json:"metadata"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
