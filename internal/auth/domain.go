package auth

import (
	"time"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         shared.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
