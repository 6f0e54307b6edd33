package services

import (
	"errors"
	"fmt"

	apperrors "github.com/campusworks/gradebook-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("resource conflict")
	ErrInternalError    = errors.New("internal server error")

	// Category specific errors
	ErrCategoryNotFound    = errors.New("grade category not found")
	ErrCategoryHasEntries  = errors.New("grade category has gradebook entries")
	ErrParentCategoryWrong = errors.New("parent category belongs to another course")

	// Curve specific errors
	ErrCurveNotFound          = errors.New("grade curve not found")
	ErrCurveInvalidParameters = errors.New("invalid curve parameters")
	ErrCurveInactive          = errors.New("grade curve is not active")

	// Scale specific errors
	ErrScaleNotFound = errors.New("grade scale not found")
	ErrNoActiveScale = errors.New("no active grade scale is resolvable")
	ErrScaleInactive = errors.New("grade scale is not active")

	// Entry specific errors
	ErrEntryNotFound      = errors.New("gradebook entry not found")
	ErrEntryInvalidPoints = errors.New("possible points must be greater than 0")
	ErrEntryNotPublished  = errors.New("gradebook entry is not published")

	// Dispute specific errors
	ErrDisputeNotFound          = errors.New("grade dispute not found")
	ErrDisputeAlreadyActive     = errors.New("an active dispute already exists for this entry")
	ErrDisputeNotOwnEntry       = errors.New("students may only dispute their own entries")
	ErrDisputeInvalidTransition = errors.New("invalid dispute status transition")
	ErrDisputeNotApproved       = errors.New("dispute is not approved")
	ErrDisputeNoProposedScore   = errors.New("dispute has no proposed score to apply")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// OverlappingRangeError reports two scale entries whose ranges overlap.
type OverlappingRangeError struct {
	A string `json:"a"`
	B string `json:"b"`
}

func (e *OverlappingRangeError) Error() string {
	return fmt.Sprintf("scale entries '%s' and '%s' have overlapping ranges", e.A, e.B)
}

func (e *OverlappingRangeError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidRangeError reports a scale entry with inverted or out-of-range
// bounds.
type InvalidRangeError struct {
	Letter     string  `json:"letter"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("scale entry '%s' has invalid range [%.2f, %.2f]", e.Letter, e.LowerBound, e.UpperBound)
}

func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidInput
}

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     uint   `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %d cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func (pe *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrCurveNotFound) ||
		errors.Is(err, ErrScaleNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrDisputeNotFound)
}

// IsForbidden checks if error represents an authorization failure
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrDisputeNotOwnEntry)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrInvalidInput) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDisputeAlreadyActive) ||
		errors.Is(err, ErrCategoryHasEntries)
}
