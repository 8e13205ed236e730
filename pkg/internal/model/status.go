package model

// DocumentStatus 文档生命周期状态.
type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "draft"
	StatusActive   DocumentStatus = "active"
	StatusArchived DocumentStatus = "archived"
	StatusDeleted  DocumentStatus = "deleted"
)

// Valid 判断是否为合法状态值.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived, StatusDeleted:
		return true
	}

	return false
}

// transitions 状态机：draft -> active -> archived（可回退 active），
// active/archived -> deleted（软删除），deleted 之后只能物理清除.
var transitions = map[DocumentStatus][]DocumentStatus{
	StatusDraft:    {StatusActive},
	StatusActive:   {StatusArchived, StatusDeleted},
	StatusArchived: {StatusActive, StatusDeleted},
	StatusDeleted:  {},
}

// CanTransitionTo 校验状态迁移是否合法.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}

	return false
}

// ChangeType 版本变更类型.
type ChangeType string

const (
	ChangeTypeCreate  ChangeType = "create"
	ChangeTypeUpdate  ChangeType = "update"
	ChangeTypeRestore ChangeType = "restore"
)
