package types

import "github.com/google/uuid"

// Role is the authorization level of a caller.
type Role string

// Roles
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Caller is the authenticated actor on whose behalf an operation runs.
// A nil *Caller means no identity is available.
type Caller struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// IsElevated reports whether the caller may act on records owned by others.
func (c *Caller) IsElevated() bool {
	return c != nil && c.Role == RoleAdmin
}

// Owns reports whether the caller is the given owner or holds an elevated role.
func (c *Caller) Owns(owner *uuid.UUID) bool {
	if c == nil {
		return false
	}
	if c.IsElevated() {
		return true
	}
	return owner != nil && *owner == c.ID
}

// ParseRole maps free text to a Role, defaulting to RoleUser.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}
