// Package authz resolves caller roles and evaluates per-resource policies.
package authz

import "github.com/noah-isme/dmr-api/internal/models"

// ResolveRole derives the effective role from account state. Superusers and
// members of the admin group are administrators, members of the instructor
// group are instructors and everyone else is a student.
func ResolveRole(account *models.Account) models.Role {
	switch {
	case account == nil:
		return models.RoleStudent
	case account.IsSuperuser || account.InGroup(models.GroupAdmin):
		return models.RoleAdmin
	case account.InGroup(models.GroupInstructor):
		return models.RoleInstructor
	default:
		return models.RoleStudent
	}
}

// NewCaller builds the request identity for an account.
func NewCaller(account *models.Account) *models.Caller {
	return &models.Caller{
		AccountID: account.ID,
		Username:  account.Username,
		FullName:  account.FullName,
		Role:      ResolveRole(account),
	}
}
