package authz

import (
	"fmt"

	"github.com/noah-isme/dmr-api/internal/models"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

// Target describes the loaded object a detail operation acts on.
type Target struct {
	OwnerID string
	Status  models.RequestStatus
	Grant   *models.FileGrant
}

// OwnedBy targets a record owned by the given account.
func OwnedBy(ownerID string) *Target {
	return &Target{OwnerID: ownerID}
}

// OwnedRequest targets a diagnostic request in its current status.
func OwnedRequest(req *models.DiagnosticRequest) *Target {
	return &Target{OwnerID: req.UserID, Status: req.Status}
}

// GrantedBy targets a file the caller holds the given grant on (nil when none).
func GrantedBy(grant *models.FileGrant) *Target {
	return &Target{Grant: grant}
}

// Authorize evaluates the policy for the caller. A nil target checks the role
// table only. Students failing an ownership rule receive NotFound so the
// record's existence is not revealed.
func Authorize(p *Policy, caller *models.Caller, op Operation, target *Target) error {
	if caller == nil {
		return appErrors.ErrUnauthorized
	}
	if !p.Allows(caller.Role, op) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s may not %s %s", caller.Role, op, p.Resource))
	}
	if target == nil || !op.Detail() || caller.Role != models.RoleStudent {
		return nil
	}

	switch p.Ownership {
	case OwnershipOwner:
		if target.OwnerID != caller.AccountID {
			return appErrors.ErrNotFound
		}
	case OwnershipOwnerPending:
		if target.OwnerID != caller.AccountID {
			return appErrors.ErrNotFound
		}
		if (op == OpUpdate || op == OpDelete) && target.Status != models.StatusPending {
			return appErrors.Clone(appErrors.ErrForbidden, "request can only be changed while pending")
		}
	case OwnershipFileGrant:
		if target.Grant == nil {
			return appErrors.ErrNotFound
		}
	}
	return nil
}
