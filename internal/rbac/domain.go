package rbac

import (
	"fmt"

	"github.com/accesshub/accesshub/internal/shared"
)

// Permission is the grant level a role holds on a module. Levels form a
// total order: read < write < delete, and each level implies every level
// below it.
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
)

// Level returns the ordinal of the permission, 0 for unknown values.
func (p Permission) Level() int {
	switch p {
	case PermissionRead:
		return 1
	case PermissionWrite:
		return 2
	case PermissionDelete:
		return 3
	}
	return 0
}

// Implies reports whether holding p permits performing action.
func (p Permission) Implies(action Permission) bool {
	return p.Level() >= action.Level() && action.Level() > 0
}

// ParsePermission validates a raw permission value.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(raw)
	if p.Level() == 0 {
		return "", fmt.Errorf("%w: unknown permission %q", shared.ErrInvalidInput, raw)
	}
	return p, nil
}

// Assignment is one role→module grant, joined with display names.
type Assignment struct {
	RoleID     int64      `json:"role_id"`
	ModuleID   int64      `json:"module_id"`
	Permission Permission `json:"permission"`
	RoleName   string     `json:"role_name"`
	ModuleName string     `json:"module_name"`
}

// ModuleAccess pairs a module with the highest permission the caller holds
// on it. Permission is empty for admins on modules without an explicit
// grant, meaning implicit full access.
type ModuleAccess struct {
	ModuleID   int64      `json:"id"`
	Name       string     `json:"name"`
	Permission Permission `json:"permission,omitempty"`
}

// RoleRef identifies a role held by a user.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
