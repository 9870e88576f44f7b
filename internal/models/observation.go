package models

import "time"

// ObservationKind identifies one observation variant.
type ObservationKind string

const (
	KindNote             ObservationKind = "note"
	KindBloodPressure    ObservationKind = "blood_pressure"
	KindHeartRate        ObservationKind = "heart_rate"
	KindBodyTemperature  ObservationKind = "body_temperature"
	KindRespiratoryRate  ObservationKind = "respiratory_rate"
	KindBloodSugar       ObservationKind = "blood_sugar"
	KindOxygenSaturation ObservationKind = "oxygen_saturation"
	KindPainScore        ObservationKind = "pain_score"
)

type observationKindInfo struct {
	table   string
	columns []string
}

var observationKindOrder = []ObservationKind{
	KindNote,
	KindBloodPressure,
	KindHeartRate,
	KindBodyTemperature,
	KindRespiratoryRate,
	KindBloodSugar,
	KindOxygenSaturation,
	KindPainScore,
}

var observationKindTable = map[ObservationKind]observationKindInfo{
	KindNote:             {table: "notes", columns: []string{"content"}},
	KindBloodPressure:    {table: "blood_pressures", columns: []string{"systolic", "diastolic"}},
	KindHeartRate:        {table: "heart_rates", columns: []string{"heart_rate"}},
	KindBodyTemperature:  {table: "body_temperatures", columns: []string{"temperature"}},
	KindRespiratoryRate:  {table: "respiratory_rates", columns: []string{"respiratory_rate"}},
	KindBloodSugar:       {table: "blood_sugars", columns: []string{"sugar_level"}},
	KindOxygenSaturation: {table: "oxygen_saturations", columns: []string{"saturation_percentage"}},
	KindPainScore:        {table: "pain_scores", columns: []string{"score"}},
}

// ObservationKinds returns every variant in a stable order.
func ObservationKinds() []ObservationKind {
	out := make([]ObservationKind, len(observationKindOrder))
	copy(out, observationKindOrder)
	return out
}

// ParseObservationKind accepts a variant name such as "blood_pressure".
func ParseObservationKind(raw string) (ObservationKind, bool) {
	kind := ObservationKind(raw)
	_, ok := observationKindTable[kind]
	return kind, ok
}

// Valid reports whether the kind is registered.
func (k ObservationKind) Valid() bool {
	_, ok := observationKindTable[k]
	return ok
}

// Table returns the backing table name.
func (k ObservationKind) Table() string {
	return observationKindTable[k].table
}

// Columns returns the value columns specific to the variant.
func (k ObservationKind) Columns() []string {
	cols := observationKindTable[k].columns
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// Observation is a single recorded observation of any variant. Only the
// value fields belonging to Kind are populated.
type Observation struct {
	ID        string          `db:"id" json:"id"`
	Kind      ObservationKind `db:"-" json:"kind"`
	PatientID string          `db:"patient_id" json:"patient"`
	UserID    string          `db:"user_id" json:"user"`

	Content              *string  `db:"content" json:"content,omitempty"`
	Systolic             *int     `db:"systolic" json:"systolic,omitempty"`
	Diastolic            *int     `db:"diastolic" json:"diastolic,omitempty"`
	HeartRate            *int     `db:"heart_rate" json:"heart_rate,omitempty"`
	Temperature          *float64 `db:"temperature" json:"temperature,omitempty"`
	RespiratoryRate      *int     `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	SugarLevel           *float64 `db:"sugar_level" json:"sugar_level,omitempty"`
	SaturationPercentage *int     `db:"saturation_percentage" json:"saturation_percentage,omitempty"`
	Score                *int     `db:"score" json:"score,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ObservationFilter scopes observation listings.
type ObservationFilter struct {
	PatientID string
	UserID    string
	Limit     int
	Offset    int
	Ascending bool
}

// ObservationGroup is the grouped listing of all variants for one patient.
type ObservationGroup struct {
	Count   int                                `json:"count"`
	Results map[ObservationKind][]*Observation `json:"results"`
}
