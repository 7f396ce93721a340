package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")
	ErrReferenceNotFound     = errors.New("referenced resource does not exist")

	// Authentication errors
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrUnauthorized = errors.New("authentication required")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// External services
	ErrExternalService = errors.New("external service error")
)

// Circulation errors
var (
	ErrInvalidStatusTransition = errors.New("status transition is not allowed")
	ErrRenewalLimitReached     = errors.New("loan renewal limit reached")
	ErrLoanAlreadyReturned     = errors.New("loan already returned")
	ErrBookingNotIssuable      = errors.New("booking is not ready for issue")
)

// Reading room errors
var (
	ErrRoomCapacityExceeded = errors.New("not enough free seats for the requested time window")
	ErrRoomInactive         = errors.New("reading room is not active")
	ErrInvalidTimeWindow    = errors.New("start time must be before end time")
)

// Queue errors
var (
	ErrAlreadyInQueue = errors.New("user is already queued for this book at this branch")
	ErrQueueEmpty     = errors.New("no waiting queue entries")
)

// Fine errors
var (
	ErrFineAlreadyPaid       = errors.New("fine is already paid")
	ErrFineNotPayable        = errors.New("fine cannot be paid in its current status")
	ErrPaymentNotFound       = errors.New("payment not found at gateway")
	ErrPaymentsDisabled      = errors.New("payment gateway is not configured")
	ErrMissingGatewayPayment = errors.New("fine has no gateway payment id")
)

// Catalog errors
var (
	ErrCategoryCycle = errors.New("category cannot be its own ancestor")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError wraps ErrValidationFailed with a field-specific message
func NewValidationError(field, message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
