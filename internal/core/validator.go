package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"snowbrief/internal/types"
)

// Validator wraps go-playground/validator and translates tag failures into
// the service's structured error codes, so handlers can pass validation
// errors straight to core.Error.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with JSON tag names reported in error
// details instead of Go field names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateStruct validates the struct and returns a *types.AppError on
// failure. The error code distinguishes missing required fields from values
// that are present but invalid; per-field failures are attached as details.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalidErr *validator.InvalidValidationError
	if errors.As(err, &invalidErr) {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"validation invoked on a non-struct value",
			err,
		)
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "unexpected validation failure", err)
	}

	details := make(map[string]any, len(validationErrs))
	missingRequired := false
	for _, fe := range validationErrs {
		details[fe.Field()] = describeFailure(fe)
		if fe.Tag() == "required" {
			missingRequired = true
		}
	}

	code := types.ErrCodeValidationInvalidValue
	message := "request contains invalid field values"
	if missingRequired {
		code = types.ErrCodeValidationMissingField
		message = "request is missing required fields"
	}

	return types.NewAppErrorWithDetails(code, message, err, details)
}

// describeFailure renders a single tag failure as a short human-readable
// reason for the details map.
func describeFailure(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must match the format %s", fe.Param())
	case "latitude":
		return "must be a valid latitude between -90 and 90"
	case "longitude":
		return "must be a valid longitude between -180 and 180"
	default:
		return fmt.Sprintf("failed validation rule %q", fe.Tag())
	}
}
