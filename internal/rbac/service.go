package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/accesshub/accesshub/internal/shared"
)

// Service is the only path by which user-role and role-module assignments
// change, and the component that derives access decisions from them.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AssignRoleToUser links a role to a user. Admins may assign anyone; a
// non-admin may only join a role themselves. The admin path is idempotent;
// the self-service join reports Conflict when the membership already exists.
func (s *Service) AssignRoleToUser(ctx context.Context, actor shared.Principal, userID, roleID int64) error {
	if userID <= 0 || roleID <= 0 {
		return fmt.Errorf("%w: user and role ids must be positive", shared.ErrInvalidInput)
	}
	selfService := !actor.IsAdmin()
	if selfService && actor.ID != userID {
		return fmt.Errorf("%w: only admins may assign roles to other users", shared.ErrForbidden)
	}
	inserted, err := s.repo.UpsertUserRole(ctx, userID, roleID)
	if err != nil {
		// A missing user or role surfaces as a foreign key failure.
		if errors.Is(err, shared.ErrInvalidReference) {
			return fmt.Errorf("%w: user or role does not exist", shared.ErrNotFound)
		}
		return err
	}
	if selfService && !inserted {
		return fmt.Errorf("%w: already a member of this role", shared.ErrConflict)
	}
	return nil
}

// RemoveRoleFromUser unlinks a role from a user. Admin removal is an
// idempotent no-op on absent pairs; the self-service leave path reports
// NotFound when no membership existed.
func (s *Service) RemoveRoleFromUser(ctx context.Context, actor shared.Principal, userID, roleID int64) (bool, error) {
	if userID <= 0 || roleID <= 0 {
		return false, fmt.Errorf("%w: user and role ids must be positive", shared.ErrInvalidInput)
	}
	selfService := !actor.IsAdmin()
	if selfService && actor.ID != userID {
		return false, fmt.Errorf("%w: only admins may remove roles from other users", shared.ErrForbidden)
	}
	removed, err := s.repo.DeleteUserRole(ctx, userID, roleID)
	if err != nil {
		return false, err
	}
	if selfService && !removed {
		return false, fmt.Errorf("%w: not a member of this role", shared.ErrNotFound)
	}
	return removed, nil
}

// AssignModulesToRole upserts (role, module) → permission for every module
// id that exists, silently dropping unknown ids from the batch. The whole
// batch runs in one transaction: either all valid pairs land or none do.
// Returns the number of pairs written.
func (s *Service) AssignModulesToRole(ctx context.Context, actor shared.Principal, roleID int64, moduleIDs []int64, permission Permission) (int, error) {
	if !actor.IsAdmin() {
		return 0, fmt.Errorf("%w: only admins may assign modules", shared.ErrForbidden)
	}
	if roleID <= 0 || len(moduleIDs) == 0 {
		return 0, fmt.Errorf("%w: role id and module ids are required", shared.ErrInvalidInput)
	}
	if _, err := ParsePermission(string(permission)); err != nil {
		return 0, err
	}

	affected := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.LockRole(ctx, roleID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: role %d", shared.ErrNotFound, roleID)
		}
		valid, err := tx.ExistingModuleIDs(ctx, dedupe(moduleIDs))
		if err != nil {
			return err
		}
		for _, moduleID := range valid {
			if err := tx.UpsertRoleModule(ctx, roleID, moduleID, permission); err != nil {
				return err
			}
		}
		affected = len(valid)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// RemoveModuleFromRole deletes one (role, module) grant. Idempotent; the
// returned bool reports whether a row existed.
func (s *Service) RemoveModuleFromRole(ctx context.Context, actor shared.Principal, roleID, moduleID int64) (bool, error) {
	if !actor.IsAdmin() {
		return false, fmt.Errorf("%w: only admins may remove module grants", shared.ErrForbidden)
	}
	if roleID <= 0 || moduleID <= 0 {
		return false, fmt.Errorf("%w: role and module ids must be positive", shared.ErrInvalidInput)
	}
	return s.repo.DeleteRoleModule(ctx, roleID, moduleID)
}

// ListAssignments returns every role→module grant joined with names.
func (s *Service) ListAssignments(ctx context.Context) ([]Assignment, error) {
	return s.repo.ListAssignments(ctx)
}

// RolesForUser returns the roles a user holds through memberships.
func (s *Service) RolesForUser(ctx context.Context, userID int64) ([]RoleRef, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", shared.ErrInvalidInput)
	}
	return s.repo.RolesForUser(ctx, userID)
}

// EffectiveRoles resolves the principal's effective role-id set from
// memberships. The coarse admin tag grants no roles here; it only feeds the
// bypass in Authorize.
func (s *Service) EffectiveRoles(ctx context.Context, userID int64) ([]int64, error) {
	return s.repo.EffectiveRoleIDs(ctx, userID)
}

// Authorize decides whether the principal may perform action on a module.
// Admin-tagged principals are allowed unconditionally. Everyone else is
// allowed iff some effective role grants a level at or above the action on
// that module; no grant means deny.
func (s *Service) Authorize(ctx context.Context, principal shared.Principal, moduleID int64, action Permission) (bool, error) {
	if _, err := ParsePermission(string(action)); err != nil {
		return false, err
	}
	if principal.IsAdmin() {
		return true, nil
	}
	roleIDs, err := s.EffectiveRoles(ctx, principal.ID)
	if err != nil {
		return false, err
	}
	if len(roleIDs) == 0 {
		return false, nil
	}
	perms, err := s.repo.PermissionsForModule(ctx, roleIDs, moduleID)
	if err != nil {
		return false, err
	}
	for _, granted := range perms {
		if granted.Implies(action) {
			return true, nil
		}
	}
	return false, nil
}

// AccessibleModules lists the modules visible to the principal. Admins see
// every module, with an empty permission when no explicit grant exists.
// Others see only modules reachable through their roles, each with the
// highest granted level.
func (s *Service) AccessibleModules(ctx context.Context, principal shared.Principal) ([]ModuleAccess, error) {
	if principal.IsAdmin() {
		return s.repo.AllModules(ctx)
	}
	return s.repo.ModulesForUser(ctx, principal.ID)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
