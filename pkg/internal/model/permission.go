package model

// Permission 权限枚举（封闭集合）.
type Permission string

const (
	PermissionRead   Permission = "READ"
	PermissionWrite  Permission = "WRITE"
	PermissionDelete Permission = "DELETE"
	PermissionShare  Permission = "SHARE"
	PermissionAdmin  Permission = "ADMIN"
)

// AllPermissions 全部合法权限，便于校验与遍历.
var AllPermissions = []Permission{
	PermissionRead,
	PermissionWrite,
	PermissionDelete,
	PermissionShare,
	PermissionAdmin,
}

// Valid 判断是否为合法权限值.
func (p Permission) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionDelete, PermissionShare, PermissionAdmin:
		return true
	}

	return false
}

// Implies 权限支配关系：ADMIN 蕴含其余全部权限，其余权限只蕴含自身.
func (p Permission) Implies(other Permission) bool {
	if p == other {
		return true
	}

	return p == PermissionAdmin && other.Valid()
}
