package errors

import (
	"errors"
	"fmt"
)

// Error types for different layers of the ledger
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeAuthorization ErrorType = "authorization"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeTransition    ErrorType = "transition"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeInternal      ErrorType = "internal"
)

// Stable machine codes surfaced to callers. Callers branch on Code,
// never on message text.
const (
	CodeValidationError          = "VALIDATION_ERROR"
	CodeTenantMismatch           = "TENANT_MISMATCH"
	CodeUnauthorizedRole         = "UNAUTHORIZED_ROLE"
	CodeAISafetyViolation        = "AI_SAFETY_VIOLATION"
	CodeContractInactive         = "CONTRACT_INACTIVE"
	CodeStateTransitionViolation = "STATE_TRANSITION_VIOLATION"
	CodeConflictingPayload       = "CONFLICTING_PAYLOAD"
	CodeContractExists           = "CONTRACT_EXISTS"
	CodeCommandInFlight          = "COMMAND_IN_FLIGHT"
	CodeEvidenceNotFound         = "EVIDENCE_NOT_FOUND"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
	Retryable  bool           `json:"retryable"`
	StatusCode int            `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors

func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewTenantMismatchError() *AppError {
	return &AppError{
		Type:       ErrorTypeAuthorization,
		Code:       CodeTenantMismatch,
		Message:    "command tenant does not match evidence tenant",
		Retryable:  false,
		StatusCode: 403,
	}
}

func NewUnauthorizedRoleError(role, commandType string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthorization,
		Code:       CodeUnauthorizedRole,
		Message:    fmt.Sprintf("role %q may not issue %s", role, commandType),
		Retryable:  false,
		StatusCode: 403,
	}
}

func NewAISafetyViolationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthorization,
		Code:       CodeAISafetyViolation,
		Message:    message,
		Retryable:  false,
		StatusCode: 403,
	}
}

func NewContractInactiveError(tenantID, entityType string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       CodeContractInactive,
		Message:    fmt.Sprintf("no active ingestion contract for tenant %s entity type %s", tenantID, entityType),
		Retryable:  false,
		StatusCode: 422,
	}
}

func NewStateTransitionError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeTransition,
		Code:       CodeStateTransitionViolation,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

// NewConflictingPayloadError carries a reference to the previously applied
// result so the caller can reconcile manually.
func NewConflictingPayloadError(existingEvidenceID, priorState string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       CodeConflictingPayload,
		Message:    "command_id was already applied with a different payload",
		Retryable:  false,
		StatusCode: 409,
		Details: map[string]any{
			"existing_evidence_id": existingEvidenceID,
			"prior_state":          priorState,
		},
	}
}

func NewCommandInFlightError(commandID string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       CodeCommandInFlight,
		Message:    fmt.Sprintf("command %s is still being applied", commandID),
		Retryable:  true,
		StatusCode: 409,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

// Predefined common errors
var (
	ErrEvidenceNotFound = &AppError{
		Type: ErrorTypeNotFound, Code: CodeEvidenceNotFound,
		Message: "evidence not found", StatusCode: 404,
	}
	ErrContractNotFound = NewNotFoundError("contract")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf extracts the machine code from an error, or empty string.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
