package auth

import (
	"strings"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Account is the persisted identity. PasswordHash is nil for federated
// accounts that never set a local password.
type Account struct {
	ID           string
	Email        string
	PasswordHash *string
	FullName     string
	Role         string
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicAccount is the outward representation. The password hash never
// crosses this boundary.
type PublicAccount struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	Role       string `json:"role"`
	IsActive   bool   `json:"isActive"`
	IsVerified bool   `json:"isVerified"`
}

func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:         a.ID,
		Email:      a.Email,
		FullName:   a.FullName,
		Role:       a.Role,
		IsActive:   a.IsActive,
		IsVerified: a.IsVerified,
	}
}

// NormalizeEmail is applied before every store or lookup so the unique email
// constraint is case-insensitive in practice.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
