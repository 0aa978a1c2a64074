package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/accesshub/accesshub/internal/shared"
)

// Service handles role business rules. Any authenticated user may create a
// role and owns it afterwards; mutation requires ownership or the admin tag.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create inserts a role owned by the actor. Name uniqueness is enforced by
// the store and surfaces as Conflict.
func (s *Service) Create(ctx context.Context, actor shared.Principal, name string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalidInput)
	}
	return s.repo.CreateRole(ctx, name, actor.ID)
}

// List returns all roles for admins and only owned roles for everyone else.
func (s *Service) List(ctx context.Context, actor shared.Principal) ([]Role, error) {
	if actor.IsAdmin() {
		return s.repo.ListRoles(ctx)
	}
	return s.repo.ListRolesByCreator(ctx, actor.ID)
}

// Update renames a role. Permitted for admins and the owning creator. The
// ownership check and the write share a transaction with a row lock.
func (s *Service) Update(ctx context.Context, actor shared.Principal, roleID int64, name string) error {
	name = strings.TrimSpace(name)
	if roleID <= 0 || name == "" {
		return fmt.Errorf("%w: role id and name are required", shared.ErrInvalidInput)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		role, err := tx.RoleForUpdate(ctx, roleID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && actor.ID != role.CreatedBy {
			return fmt.Errorf("%w: not the role owner", shared.ErrForbidden)
		}
		return tx.UpdateRoleName(ctx, roleID, name)
	})
}

// Delete removes a role, cascading its memberships and module grants.
// Permitted for admins and the owning creator.
func (s *Service) Delete(ctx context.Context, actor shared.Principal, roleID int64) error {
	if roleID <= 0 {
		return fmt.Errorf("%w: role id must be positive", shared.ErrInvalidInput)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		role, err := tx.RoleForUpdate(ctx, roleID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && actor.ID != role.CreatedBy {
			return fmt.Errorf("%w: not the role owner", shared.ErrForbidden)
		}
		return tx.DeleteRole(ctx, roleID)
	})
}
