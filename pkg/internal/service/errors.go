package service

import (
	"errors"
	"fmt"

	"github.com/yeisme/docvault/pkg/internal/model"
)

// NotFoundError 目标实体不存在（或已软删除，对调用者不可见）.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ValidationError 调用者提供的参数非法.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// PermissionDeniedError 代理缺少所需权限.携带所需权限与上下文，便于调用方提示.
type PermissionDeniedError struct {
	DocumentID string
	AgentID    string
	Required   model.Permission
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("agent %s lacks %s on document %s", e.AgentID, e.Required, e.DocumentID)
}

// ConflictError 并发写冲突或唯一约束冲突，可重试.
type ConflictError struct {
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.ID, e.Reason)
}

// StorageFailureError 对象存储操作失败，可重试.
type StorageFailureError struct {
	Op      string
	Locator string
	Err     error
}

func (e *StorageFailureError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Locator, e.Err)
}

func (e *StorageFailureError) Unwrap() error {
	return e.Err
}

// IsRetryable 判断错误是否为瞬态错误，调用方可安全重试.
func IsRetryable(err error) bool {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return true
	}

	var storage *StorageFailureError

	return errors.As(err, &storage)
}

func notFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func storageFailure(op, locator string, err error) error {
	return &StorageFailureError{Op: op, Locator: locator, Err: err}
}
