package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the effective permission level of a caller. It is derived from
// account state on every request and never persisted.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Roles lists every role in ascending privilege order.
func Roles() []Role {
	return []Role{RoleStudent, RoleInstructor, RoleAdmin}
}

// Group names that grant elevated roles.
const (
	GroupAdmin      = "admin"
	GroupInstructor = "instructor"
)

// Account is a login principal. Student accounts are usually shared by a
// student group.
type Account struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	IsSuperuser  bool       `db:"is_superuser" json:"is_superuser"`
	Active       bool       `db:"active" json:"active"`
	Groups       []string   `db:"-" json:"groups"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// InGroup reports whether the account belongs to the named group.
func (a *Account) InGroup(name string) bool {
	if a == nil {
		return false
	}
	for _, g := range a.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// Caller is the resolved identity of the account performing a request.
type Caller struct {
	AccountID string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Role      Role   `json:"role"`

	TokenID        string    `json:"-"`
	TokenExpiresAt time.Time `json:"-"`
}

// IsStaff reports whether the caller is an instructor or administrator.
func (c *Caller) IsStaff() bool {
	return c != nil && (c.Role == RoleAdmin || c.Role == RoleInstructor)
}

// IsStudent reports whether the caller holds the student role.
func (c *Caller) IsStudent() bool {
	return c != nil && c.Role == RoleStudent
}

// JWTClaims is the access token payload. Roles are deliberately absent and
// resolved from the store on each request.
type JWTClaims struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
