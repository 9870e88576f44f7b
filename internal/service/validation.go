package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// collectFieldErrors appends validator failures to errs, prefixing keys with
// prefix when set. Non validator errors are returned unchanged.
func collectFieldErrors(errs appErrors.FieldErrors, prefix string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		key := fe.Field()
		if prefix != "" {
			key = prefix + "." + key
		}
		errs.Add(key, describeFieldError(fe))
	}
	return nil
}

// validationFailed converts a validator error into a 400 with field details.
func validationFailed(err error, message string) error {
	errs := appErrors.FieldErrors{}
	if other := collectFieldErrors(errs, "", err); other != nil {
		return appErrors.Wrap(other, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return errs.Err(message)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "uuid":
		return "must be a valid UUID"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return "must be a date formatted as YYYY-MM-DD"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
