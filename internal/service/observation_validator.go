package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/pkg/config"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

type patientExistence interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// ObservationValidator checks observation payloads before anything is written.
// Every failure is collected so clients see the complete list at once.
type ObservationValidator struct {
	validator *validator.Validate
	bounds    config.ObservationBounds
	patients  patientExistence
	ranges    map[string]config.Range
}

// NewObservationValidator constructs a validator using the configured bounds.
func NewObservationValidator(validate *validator.Validate, bounds config.ObservationBounds, patients patientExistence) *ObservationValidator {
	if validate == nil {
		validate = NewValidator()
	}
	if bounds.NoteMaxLength <= 0 {
		bounds.NoteMaxLength = config.DefaultObservationBounds().NoteMaxLength
	}
	return &ObservationValidator{
		validator: validate,
		bounds:    bounds,
		patients:  patients,
		ranges: map[string]config.Range{
			"systolic":              bounds.Systolic,
			"diastolic":             bounds.Diastolic,
			"heart_rate":            bounds.HeartRate,
			"temperature":           bounds.Temperature,
			"respiratory_rate":      bounds.RespiratoryRate,
			"sugar_level":           bounds.BloodSugar,
			"saturation_percentage": bounds.OxygenSaturation,
			"score":                 bounds.PainScore,
		},
	}
}

// ValidateBundle validates every member and returns the observations to persist.
// All members must reference one patient and resolve to one owner.
func (v *ObservationValidator) ValidateBundle(ctx context.Context, caller *models.Caller, members []dto.ObservationInput) ([]*models.Observation, error) {
	if caller == nil {
		return nil, appErrors.ErrUnauthorized
	}
	errs := appErrors.FieldErrors{}
	if len(members) == 0 {
		errs.Add("non_field_errors", "at least one observation is required")
		return nil, errs.Err("observation validation failed")
	}

	patients := make(map[string]struct{})
	owners := make(map[string]struct{})
	for _, in := range members {
		prefix := string(in.Kind())
		if err := v.checkMember(errs, prefix, in); err != nil {
			return nil, err
		}
		member := in.Member()
		if member.Patient != "" {
			patients[member.Patient] = struct{}{}
		}
		owner, ok := resolveOwner(caller, member.User)
		if !ok {
			errs.Add(prefix+".user", "students may only record observations for their own account")
			continue
		}
		owners[owner] = struct{}{}
	}

	if len(patients) > 1 {
		errs.Add("patient", "all observations must reference the same patient")
	}
	if len(owners) > 1 {
		errs.Add("user", "all observations must belong to the same account")
	}
	if len(patients) == 1 {
		for patientID := range patients {
			if err := v.checkPatient(ctx, errs, members, patientID); err != nil {
				return nil, err
			}
		}
	}
	if !errs.Empty() {
		return nil, errs.Err("observation validation failed")
	}

	var owner string
	for id := range owners {
		owner = id
	}
	observations := make([]*models.Observation, 0, len(members))
	for _, in := range members {
		obs := &models.Observation{Kind: in.Kind(), PatientID: in.Member().Patient, UserID: owner}
		in.Apply(obs)
		observations = append(observations, obs)
	}
	return observations, nil
}

// ValidateValues checks a single variant payload used to edit an existing row.
func (v *ObservationValidator) ValidateValues(in dto.ObservationInput) error {
	errs := appErrors.FieldErrors{}
	if err := v.checkMember(errs, "", in); err != nil {
		return err
	}
	return errs.Err("observation validation failed")
}

func (v *ObservationValidator) checkMember(errs appErrors.FieldErrors, prefix string, in dto.ObservationInput) error {
	if err := collectFieldErrors(errs, prefix, v.validator.Struct(in)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate observation")
	}
	key := func(field string) string {
		if prefix == "" {
			return field
		}
		return prefix + "." + field
	}

	values := make(map[string]float64)
	for _, m := range in.Measurements() {
		values[m.Field] = m.Value
		r, ok := v.ranges[m.Field]
		if ok && !r.Contains(m.Value) {
			errs.Add(key(m.Field), fmt.Sprintf("must be between %s and %s", formatBound(r.Min), formatBound(r.Max)))
		}
	}
	sys, hasSys := values["systolic"]
	dia, hasDia := values["diastolic"]
	if hasSys && hasDia && sys < dia {
		errs.Add(key("systolic"), "systolic pressure must be greater than or equal to diastolic pressure")
	}

	if note, ok := in.(*dto.NoteInput); ok && note.Content != "" {
		if strings.TrimSpace(note.Content) == "" {
			errs.Add(key("content"), "may not be blank")
		}
		if utf8.RuneCountInString(note.Content) > v.bounds.NoteMaxLength {
			errs.Add(key("content"), fmt.Sprintf("must be at most %d characters", v.bounds.NoteMaxLength))
		}
	}
	return nil
}

func (v *ObservationValidator) checkPatient(ctx context.Context, errs appErrors.FieldErrors, members []dto.ObservationInput, patientID string) error {
	if _, err := uuid.Parse(patientID); err != nil || v.patients == nil {
		return nil
	}
	exists, err := v.patients.Exists(ctx, patientID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify patient")
	}
	if !exists {
		for _, in := range members {
			errs.Add(string(in.Kind())+".patient", "patient does not exist")
		}
	}
	return nil
}

// resolveOwner defaults the owner to the caller. Students cannot name another account.
func resolveOwner(caller *models.Caller, requested *string) (string, bool) {
	if requested == nil || *requested == "" {
		return caller.AccountID, true
	}
	if caller.IsStudent() && *requested != caller.AccountID {
		return "", false
	}
	return *requested, true
}

func formatBound(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
