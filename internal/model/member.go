package model

import "time"

// Member represents a registered account (finder or claimant).
type Member struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	Role         string     `json:"role"`
	Point        int        `json:"point"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	return levels[role] >= levels[minimum]
}
