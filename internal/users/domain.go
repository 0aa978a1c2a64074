package users

import (
	"time"

	"github.com/accesshub/accesshub/internal/shared"
)

// User represents a user account for management. The password hash never
// leaves this package.
type User struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Role      shared.RoleTag `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}
