package utils

import (
	"reflect"
	"strings"

	apperrors "github.com/campusworks/gradebook-service/internal/errors"
	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground struct validation with the engine's
// custom rules and converts failures to ValidationErrors.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with all custom rules registered.
func NewValidator() *Validator {
	validate := validator.New()
	RegisterCustomValidators(validate)
	return &Validator{validate: validate}
}

// Validate validates struct tags; failures come back as
// apperrors.ValidationErrors so handlers can render field detail.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if errs := apperrors.ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// Custom validation functions

func ValidateCurveType(fl validator.FieldLevel) bool {
	validTypes := []models.CurveType{
		models.CurveLinear,
		models.CurveNormal,
		models.CurveSquareRoot,
		models.CurveCustom,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func ValidateDisputeStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.DisputeStatus{
		models.DisputePending,
		models.DisputeUnderReview,
		models.DisputeApproved,
		models.DisputeRejected,
		models.DisputeResolved,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

func ValidateScaleResolution(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "course_first" || value == "default_only"
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("curve_type", ValidateCurveType)
	validate.RegisterValidation("dispute_status", ValidateDisputeStatus)
	validate.RegisterValidation("scale_resolution", ValidateScaleResolution)

	// Use json tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
