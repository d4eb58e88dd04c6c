package domain

import "time"

// Role enumerates the access level of an account.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleClient   Role = "client"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleClient:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role grants staff operations.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// User is an account that can authenticate against the service.
// Username and Email are both optional but at least one is always set.
type User struct {
	ID           string
	Name         string
	Username     *string
	Email        *string
	PasswordHash string
	Role         Role
	Phone        *string
	CreatedAt    time.Time
}
