package models

import "time"

// UserRole represents the available roles in the shop.
type UserRole string

const (
	RoleOwner    UserRole = "owner"
	RoleManager  UserRole = "manager"
	RoleMechanic UserRole = "mechanic"
	RoleViewer   UserRole = "viewer"
)

// User represents a team member of the shop.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         UserRole  `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the snapshot stamped onto records this user writes.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.FullName, Role: u.Role}
}

// UserFilter captures filtering criteria for listing team members.
type UserFilter struct {
	Role   *UserRole
	Active *bool
	Search string
}
