package dto

import "github.com/noah-isme/dmr-api/internal/models"

// DiagnosticRequestInput creates an imaging or blood test request. User is
// only honoured on the management surface.
type DiagnosticRequestInput struct {
	Kind                        models.DiagnosticRequestKind `json:"kind" validate:"required,oneof=imaging blood_test"`
	Patient                     string                       `json:"patient" validate:"required,uuid"`
	User                        *string                      `json:"user,omitempty" validate:"omitempty,uuid"`
	TestType                    string                       `json:"test_type" validate:"max=255"`
	TestTypes                   []string                     `json:"test_types" validate:"omitempty,max=50,dive,required,max=100"`
	Details                     string                       `json:"details" validate:"max=5000"`
	ImagingFocus                string                       `json:"imaging_focus" validate:"max=255"`
	InfectionControlPrecautions string                       `json:"infection_control_precautions" validate:"max=255"`
	RequesterName               string                       `json:"requester_name" validate:"max=255"`
	RequesterRole               string                       `json:"requester_role" validate:"max=255"`
}

// DiagnosticRequestUpdate changes descriptive fields; absent fields are kept.
type DiagnosticRequestUpdate struct {
	TestType                    *string   `json:"test_type" validate:"omitempty,max=255"`
	TestTypes                   *[]string `json:"test_types" validate:"omitempty,max=50,dive,required,max=100"`
	Details                     *string   `json:"details" validate:"omitempty,max=5000"`
	ImagingFocus                *string   `json:"imaging_focus" validate:"omitempty,max=255"`
	InfectionControlPrecautions *string   `json:"infection_control_precautions" validate:"omitempty,max=255"`
	RequesterName               *string   `json:"requester_name" validate:"omitempty,max=255"`
	RequesterRole               *string   `json:"requester_role" validate:"omitempty,max=255"`
}

// ApprovedFileInput attaches one file to a completed request.
type ApprovedFileInput struct {
	FileID    string `json:"file_id" validate:"required,uuid"`
	PageRange string `json:"page_range"`
}

// StatusUpdateRequest moves a request through its lifecycle. A present
// approved_files list replaces the attached set; an empty list clears it.
type StatusUpdateRequest struct {
	Status        models.RequestStatus `json:"status" validate:"required"`
	Note          string               `json:"note" validate:"max=2000"`
	ApprovedFiles *[]ApprovedFileInput `json:"approved_files" validate:"omitempty,dive"`
}

// DiagnosticRequestQuery captures list query parameters.
type DiagnosticRequestQuery struct {
	Status    string `form:"status"`
	Kind      string `form:"kind"`
	PatientID string `form:"patient_id"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}
