package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// User is an account that can log in to the portal.
type User struct {
	ID           uuid.UUID // UUIDv7
	Email        string    // Login identifier, unique
	Name         string    // Display name
	PasswordHash string    // bcrypt hash, never serialized
	Roles        []string  // e.g. RoleAdmin

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleAdmin may list users and edit the hole library.
const RoleAdmin = "admin"

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Profile is the public view of a user returned to clients.
type Profile struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name,omitempty"`
	Roles []string  `json:"roles,omitempty"`
}

// Profile returns the public view of the user.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Name: u.Name, Roles: slices.Clone(u.Roles)}
}
