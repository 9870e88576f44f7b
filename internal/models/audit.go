package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin               = "LOGIN"
	AuditActionLogout              = "LOGOUT"
	AuditActionPatientCreate       = "PATIENT_CREATE"
	AuditActionPatientUpdate       = "PATIENT_UPDATE"
	AuditActionPatientDelete       = "PATIENT_DELETE"
	AuditActionObservationCreate   = "OBSERVATION_CREATE"
	AuditActionObservationUpdate   = "OBSERVATION_UPDATE"
	AuditActionObservationDelete   = "OBSERVATION_DELETE"
	AuditActionRequestCreate       = "DIAGNOSTIC_REQUEST_CREATE"
	AuditActionRequestUpdate       = "DIAGNOSTIC_REQUEST_UPDATE"
	AuditActionRequestDelete       = "DIAGNOSTIC_REQUEST_DELETE"
	AuditActionRequestStatusChange = "DIAGNOSTIC_REQUEST_STATUS_CHANGE"
	AuditActionFileUpload          = "FILE_UPLOAD"
	AuditActionFileUpdate          = "FILE_UPDATE"
	AuditActionFileDelete          = "FILE_DELETE"
	AuditActionFileRelease         = "FILE_RELEASE"
	AuditActionFileReleaseUpdate   = "FILE_RELEASE_UPDATE"
	AuditActionFileReleaseRevoke   = "FILE_RELEASE_REVOKE"
	AuditActionFileView            = "FILE_VIEW"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
