package dto

import "github.com/noah-isme/dmr-api/internal/models"

// PatientRequest is the payload for creating or replacing a patient.
type PatientRequest struct {
	FirstName   string        `json:"first_name" validate:"required,max=100"`
	LastName    string        `json:"last_name" validate:"max=100"`
	DateOfBirth *string       `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      models.Gender `json:"gender" validate:"omitempty,oneof=male female other unspecified"`
	MRN         string        `json:"mrn" validate:"required,max=50"`
	Ward        string        `json:"ward" validate:"max=50"`
	Bed         string        `json:"bed" validate:"max=20"`
	PhoneNumber string        `json:"phone_number" validate:"max=30"`
}

// PatientQuery captures list query parameters.
type PatientQuery struct {
	Search   string `form:"search"`
	Ward     string `form:"ward"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
