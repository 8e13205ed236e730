package model

import (
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Document 文档模型.一行对应一个逻辑文档，内容本体存放在对象存储，
// StorageLocator 指向当前版本的对象键.
type Document struct {
	ID             string `gorm:"primaryKey;size:36"                                   json:"id"`
	OrganizationID string `gorm:"size:36;index;index:idx_org_path,unique;not null"     json:"organization_id"`
	Name           string `gorm:"size:512;index"                                       json:"name"`
	Description    string `gorm:"type:text"                                            json:"description"`
	Filename       string `gorm:"size:512"                                             json:"filename"`
	Size           int64  `json:"size"`
	ContentType    string `gorm:"size:255"  json:"content_type"`
	StorageLocator string `gorm:"size:1024" json:"storage_locator"`
	CurrentVersion int    `gorm:"not null;default:1" json:"current_version"`
	// Status 生命周期状态，软删除通过 status=deleted 表达而不是行删除
	Status DocumentStatus `gorm:"size:16;index" json:"status"`
	// Prefix 形如 /reports/2025/ 的层级前缀，根为 /
	Prefix string `gorm:"size:1024;index" json:"prefix"`
	// Path 唯一逻辑路径，= Prefix + Name，组织内唯一
	Path      string `gorm:"size:1024;index:idx_org_path,unique" json:"path"`
	CreatedBy string `gorm:"size:36;index"                       json:"created_by"`
	UpdatedBy string `gorm:"size:36"                             json:"updated_by"`
	// TagsJSON 以 JSON 字符串形式存储，便于模糊搜索
	TagsJSON string `gorm:"type:text" json:"tags_json"`
	Metadata string `gorm:"type:text" json:"metadata"`
	// SearchIndex 派生列：小写的 name/description/filename/tags 拼接，搜索用
	SearchIndex string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tags 解析 TagsJSON.解析失败视为无标签.
func (d *Document) Tags() []string {
	if d.TagsJSON == "" {
		return nil
	}

	var tags []string
	if err := sonic.UnmarshalString(d.TagsJSON, &tags); err != nil {
		return nil
	}

	return tags
}

// SetTags 序列化标签到 TagsJSON.
func (d *Document) SetTags(tags []string) {
	if len(tags) == 0 {
		d.TagsJSON = ""
		return
	}

	if s, err := sonic.MarshalString(tags); err == nil {
		d.TagsJSON = s
	}
}

// RebuildPath 由 Prefix 与 Name 重新计算 Path.
func (d *Document) RebuildPath() {
	prefix := d.Prefix
	if prefix == "" {
		prefix = "/"
	}

	d.Path = prefix + d.Name
}

// RebuildSearchIndex 重建派生的搜索列.
func (d *Document) RebuildSearchIndex() {
	parts := []string{d.Name, d.Description, d.Filename}
	parts = append(parts, d.Tags()...)

	d.SearchIndex = strings.ToLower(strings.Join(parts, " "))
}

// DocumentVersion 文档版本快照.版本号从 1 开始连续递增，
// (document_id, version_number) 唯一约束兜底并发写入.
type DocumentVersion struct {
	ID             uint       `gorm:"primaryKey"                          json:"id"`
	DocumentID     string     `gorm:"size:36;index:idx_doc_ver,unique"    json:"document_id"`
	VersionNumber  int        `gorm:"index:idx_doc_ver,unique;not null"   json:"version_number"`
	Filename       string     `gorm:"size:512"  json:"filename"`
	Size           int64      `json:"size"`
	ContentType    string     `gorm:"size:255"  json:"content_type"`
	StorageLocator string     `gorm:"size:1024" json:"storage_locator"`
	ChangeType     ChangeType `gorm:"size:16"   json:"change_type"`
	ChangeNote     string     `gorm:"type:text" json:"change_note"`
	Metadata       string     `gorm:"type:text" json:"metadata"`
	CreatedBy      string     `gorm:"size:36"   json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}
