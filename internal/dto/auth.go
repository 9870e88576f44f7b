package dto

import (
	"time"

	"github.com/noah-isme/dmr-api/internal/models"
)

// LoginRequest holds credentials for authenticating an account.
type LoginRequest struct {
	Username  string `json:"username" validate:"required,max=150"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued access token and account info.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	IssuedAt    time.Time   `json:"issued_at"`
	Account     AccountInfo `json:"account"`
}

// AccountInfo describes the authenticated account in responses.
type AccountInfo struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
	Groups   []string    `json:"groups"`
}

// NewAccountInfo builds the response view of an account with its resolved role.
func NewAccountInfo(account *models.Account, role models.Role) AccountInfo {
	groups := account.Groups
	if groups == nil {
		groups = []string{}
	}
	return AccountInfo{
		ID:       account.ID,
		Username: account.Username,
		FullName: account.FullName,
		Role:     role,
		Groups:   groups,
	}
}
