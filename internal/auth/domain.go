package auth

import (
	"time"

	"github.com/accesshub/accesshub/internal/shared"
)

// Account represents an authenticated user account including the credential
// hash. Only this package sees the hash.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         shared.RoleTag
	CreatedAt    time.Time
}
