package models

import "time"

// User roles
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
)

// User is an authenticated operator of the finishing floor
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"nome"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissoes"`
	IsActive     bool      `json:"ativo"`
	CreatedAt    time.Time `json:"data_criacao"`
}

// Can reports whether the user holds capability; admins hold all of them
func (u *User) Can(capability string) bool {
	if !u.IsActive {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	for _, p := range u.Permissions {
		if p == capability {
			return true
		}
	}
	return false
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Actor is whoever drives a mutating operation
type Actor struct {
	UserID int
	Name   string
}
