package modules

import (
	"context"
	"fmt"
	"strings"

	"github.com/accesshub/accesshub/internal/shared"
)

// Service handles module catalog business rules.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all modules. Visible to any authenticated caller; whether a
// module is usable is the access evaluator's concern.
func (s *Service) List(ctx context.Context) ([]Module, error) {
	return s.repo.ListModules(ctx)
}

// Create inserts a module. Admin only.
func (s *Service) Create(ctx context.Context, actor shared.Principal, name, description string) (Module, error) {
	if !actor.IsAdmin() {
		return Module{}, fmt.Errorf("%w: only admins may create modules", shared.ErrForbidden)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Module{}, fmt.Errorf("%w: module name required", shared.ErrInvalidInput)
	}
	return s.repo.CreateModule(ctx, name, strings.TrimSpace(description))
}

// Delete removes a module, cascading its role grants. Admin only. Returns
// NotFound when the module does not exist.
func (s *Service) Delete(ctx context.Context, actor shared.Principal, id int64) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins may delete modules", shared.ErrForbidden)
	}
	if id <= 0 {
		return fmt.Errorf("%w: module id must be positive", shared.ErrInvalidInput)
	}
	removed, err := s.repo.DeleteModule(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: module %d", shared.ErrNotFound, id)
	}
	return nil
}
