package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/accesshub/accesshub/internal/shared"
)

// Service handles user management business rules.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all users. Admin only.
func (s *Service) List(ctx context.Context, actor shared.Principal) ([]User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may list users", shared.ErrForbidden)
	}
	return s.repo.ListUsers(ctx)
}

// Create inserts a user with an explicit role tag. Admin only; registration
// goes through the auth service instead.
func (s *Service) Create(ctx context.Context, actor shared.Principal, name, email, password string, role shared.RoleTag) (User, error) {
	if !actor.IsAdmin() {
		return User{}, fmt.Errorf("%w: only admins may create users", shared.ErrForbidden)
	}
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return User{}, fmt.Errorf("%w: name, email and password are required", shared.ErrInvalidInput)
	}
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role tag %q", shared.ErrInvalidInput, role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, name, email, string(hash), role)
}

// Delete removes a user. Admin only, and admin-tagged targets can never be
// deleted. The check and the delete share a transaction with a row lock so
// concurrent requests cannot slip past the guard.
func (s *Service) Delete(ctx context.Context, actor shared.Principal, userID int64) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins may delete users", shared.ErrForbidden)
	}
	if userID <= 0 {
		return fmt.Errorf("%w: user id must be positive", shared.ErrInvalidInput)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		tag, err := tx.RoleTagForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if tag == shared.RoleAdmin {
			return fmt.Errorf("%w: admin accounts cannot be deleted", shared.ErrForbidden)
		}
		return tx.DeleteUser(ctx, userID)
	})
}
