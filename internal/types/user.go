package types

import (
	"time"

	"github.com/google/uuid"
)

// Role values form a closed set. Admins may act on any book record,
// regular users only on their own.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the enumerated roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// UserAuth represents the core user entity in the domain.
type UserAuth struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"-"` // Hashed password (never exposed).
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"` // Nil until first profile change.
}

// Actor is the authenticated identity passed explicitly into every
// lifecycle operation. There is no ambient "current user" inside the core.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
