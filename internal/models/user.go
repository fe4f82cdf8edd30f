package models

import (
	"strings"
	"time"
)

// Role names carried by users and JWT claims
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// User represents a user in the system
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // Not serialized
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName is the name embossed on the user's cards
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasRole reports whether the user holds role, ignoring case
func (u *User) HasRole(role string) bool {
	return hasRole(u.Roles, role)
}

// IsAdmin reports whether the user holds the administrator role
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
