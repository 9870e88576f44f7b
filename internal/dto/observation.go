package dto

import "github.com/noah-isme/dmr-api/internal/models"

// ObservationMember carries the references shared by every observation variant.
type ObservationMember struct {
	Patient string  `json:"patient" validate:"required,uuid"`
	User    *string `json:"user,omitempty" validate:"omitempty,uuid"`
}

// Member returns the shared references.
func (m *ObservationMember) Member() *ObservationMember { return m }

// Measurement is one numeric value submitted for range checking.
type Measurement struct {
	Field string
	Value float64
}

// ObservationInput is implemented by every variant payload.
type ObservationInput interface {
	Kind() models.ObservationKind
	Member() *ObservationMember
	Measurements() []Measurement
	Apply(obs *models.Observation)
}

// NoteInput records free text.
type NoteInput struct {
	ObservationMember
	Content string `json:"content" validate:"required"`
}

func (in *NoteInput) Kind() models.ObservationKind { return models.KindNote }
func (in *NoteInput) Measurements() []Measurement  { return nil }
func (in *NoteInput) Apply(obs *models.Observation) {
	content := in.Content
	obs.Content = &content
}

// BloodPressureInput records systolic and diastolic pressure in mmHg.
type BloodPressureInput struct {
	ObservationMember
	Systolic  *int `json:"systolic" validate:"required"`
	Diastolic *int `json:"diastolic" validate:"required"`
}

func (in *BloodPressureInput) Kind() models.ObservationKind { return models.KindBloodPressure }
func (in *BloodPressureInput) Measurements() []Measurement {
	return collect(intMeasurement("systolic", in.Systolic), intMeasurement("diastolic", in.Diastolic))
}
func (in *BloodPressureInput) Apply(obs *models.Observation) {
	obs.Systolic = copyInt(in.Systolic)
	obs.Diastolic = copyInt(in.Diastolic)
}

// HeartRateInput records beats per minute.
type HeartRateInput struct {
	ObservationMember
	HeartRate *int `json:"heart_rate" validate:"required"`
}

func (in *HeartRateInput) Kind() models.ObservationKind { return models.KindHeartRate }
func (in *HeartRateInput) Measurements() []Measurement {
	return collect(intMeasurement("heart_rate", in.HeartRate))
}
func (in *HeartRateInput) Apply(obs *models.Observation) { obs.HeartRate = copyInt(in.HeartRate) }

// BodyTemperatureInput records temperature in degrees Celsius.
type BodyTemperatureInput struct {
	ObservationMember
	Temperature *float64 `json:"temperature" validate:"required"`
}

func (in *BodyTemperatureInput) Kind() models.ObservationKind { return models.KindBodyTemperature }
func (in *BodyTemperatureInput) Measurements() []Measurement {
	return collect(floatMeasurement("temperature", in.Temperature))
}
func (in *BodyTemperatureInput) Apply(obs *models.Observation) {
	obs.Temperature = copyFloat(in.Temperature)
}

// RespiratoryRateInput records breaths per minute.
type RespiratoryRateInput struct {
	ObservationMember
	RespiratoryRate *int `json:"respiratory_rate" validate:"required"`
}

func (in *RespiratoryRateInput) Kind() models.ObservationKind { return models.KindRespiratoryRate }
func (in *RespiratoryRateInput) Measurements() []Measurement {
	return collect(intMeasurement("respiratory_rate", in.RespiratoryRate))
}
func (in *RespiratoryRateInput) Apply(obs *models.Observation) {
	obs.RespiratoryRate = copyInt(in.RespiratoryRate)
}

// BloodSugarInput records glucose in mg/dL.
type BloodSugarInput struct {
	ObservationMember
	SugarLevel *float64 `json:"sugar_level" validate:"required"`
}

func (in *BloodSugarInput) Kind() models.ObservationKind { return models.KindBloodSugar }
func (in *BloodSugarInput) Measurements() []Measurement {
	return collect(floatMeasurement("sugar_level", in.SugarLevel))
}
func (in *BloodSugarInput) Apply(obs *models.Observation) { obs.SugarLevel = copyFloat(in.SugarLevel) }

// OxygenSaturationInput records SpO2 as a percentage.
type OxygenSaturationInput struct {
	ObservationMember
	SaturationPercentage *int `json:"saturation_percentage" validate:"required"`
}

func (in *OxygenSaturationInput) Kind() models.ObservationKind { return models.KindOxygenSaturation }
func (in *OxygenSaturationInput) Measurements() []Measurement {
	return collect(intMeasurement("saturation_percentage", in.SaturationPercentage))
}
func (in *OxygenSaturationInput) Apply(obs *models.Observation) {
	obs.SaturationPercentage = copyInt(in.SaturationPercentage)
}

// PainScoreInput records pain on a 0-10 scale.
type PainScoreInput struct {
	ObservationMember
	Score *int `json:"score" validate:"required"`
}

func (in *PainScoreInput) Kind() models.ObservationKind { return models.KindPainScore }
func (in *PainScoreInput) Measurements() []Measurement {
	return collect(intMeasurement("score", in.Score))
}
func (in *PainScoreInput) Apply(obs *models.Observation) { obs.Score = copyInt(in.Score) }

// ObservationBundleRequest submits any combination of variants for one
// patient. At least one member must be present.
type ObservationBundleRequest struct {
	Note             *NoteInput             `json:"note,omitempty"`
	BloodPressure    *BloodPressureInput    `json:"blood_pressure,omitempty"`
	HeartRate        *HeartRateInput        `json:"heart_rate,omitempty"`
	BodyTemperature  *BodyTemperatureInput  `json:"body_temperature,omitempty"`
	RespiratoryRate  *RespiratoryRateInput  `json:"respiratory_rate,omitempty"`
	BloodSugar       *BloodSugarInput       `json:"blood_sugar,omitempty"`
	OxygenSaturation *OxygenSaturationInput `json:"oxygen_saturation,omitempty"`
	PainScore        *PainScoreInput        `json:"pain_score,omitempty"`
}

// Members returns the present members in a stable order.
func (r *ObservationBundleRequest) Members() []ObservationInput {
	var out []ObservationInput
	if r.Note != nil {
		out = append(out, r.Note)
	}
	if r.BloodPressure != nil {
		out = append(out, r.BloodPressure)
	}
	if r.HeartRate != nil {
		out = append(out, r.HeartRate)
	}
	if r.BodyTemperature != nil {
		out = append(out, r.BodyTemperature)
	}
	if r.RespiratoryRate != nil {
		out = append(out, r.RespiratoryRate)
	}
	if r.BloodSugar != nil {
		out = append(out, r.BloodSugar)
	}
	if r.OxygenSaturation != nil {
		out = append(out, r.OxygenSaturation)
	}
	if r.PainScore != nil {
		out = append(out, r.PainScore)
	}
	return out
}

// NewObservationInput returns an empty payload for decoding a single variant.
func NewObservationInput(kind models.ObservationKind) (ObservationInput, bool) {
	switch kind {
	case models.KindNote:
		return &NoteInput{}, true
	case models.KindBloodPressure:
		return &BloodPressureInput{}, true
	case models.KindHeartRate:
		return &HeartRateInput{}, true
	case models.KindBodyTemperature:
		return &BodyTemperatureInput{}, true
	case models.KindRespiratoryRate:
		return &RespiratoryRateInput{}, true
	case models.KindBloodSugar:
		return &BloodSugarInput{}, true
	case models.KindOxygenSaturation:
		return &OxygenSaturationInput{}, true
	case models.KindPainScore:
		return &PainScoreInput{}, true
	}
	return nil, false
}

// ObservationListQuery captures grouped listing parameters.
type ObservationListQuery struct {
	PatientID string `form:"patient_id"`
	Types     string `form:"types"`
	PageSize  string `form:"page_size"`
	Ordering  string `form:"ordering"`
}

func intMeasurement(field string, v *int) *Measurement {
	if v == nil {
		return nil
	}
	return &Measurement{Field: field, Value: float64(*v)}
}

func floatMeasurement(field string, v *float64) *Measurement {
	if v == nil {
		return nil
	}
	return &Measurement{Field: field, Value: *v}
}

func collect(ms ...*Measurement) []Measurement {
	out := make([]Measurement, 0, len(ms))
	for _, m := range ms {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
