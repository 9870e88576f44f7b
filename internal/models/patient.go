package models

import "time"

// Gender enumerates the recorded patient genders.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
	GenderUnspecified Gender = "unspecified"
)

// Patient is a simulated patient record.
type Patient struct {
	ID          string     `db:"id" json:"id"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      Gender     `db:"gender" json:"gender"`
	MRN         string     `db:"mrn" json:"mrn"`
	Ward        string     `db:"ward" json:"ward"`
	Bed         string     `db:"bed" json:"bed"`
	PhoneNumber string     `db:"phone_number" json:"phone_number"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (p *Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// PatientFilter captures listing criteria.
type PatientFilter struct {
	Search   string
	Ward     string
	Page     int
	PageSize int
}
