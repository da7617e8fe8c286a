package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrValidation             = errors.New("validation failed")
	ErrAlreadyActive          = errors.New("applicant already has an active loan request")
	ErrNotFound               = errors.New("loan request not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrStaleWrite             = errors.New("loan request was modified concurrently")
	ErrUnauthenticated        = errors.New("identity could not be established")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeAlreadyActive          = "ALREADY_ACTIVE"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	ErrCodeAuthentication         = "AUTHENTICATION_ERROR"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeCacheError             = "CACHE_ERROR"
)

func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, ErrValidation)
}

func WrapAlreadyActive(mobile string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyActive,
		fmt.Sprintf("Applicant %s already has an active loan request", mobile),
		ErrAlreadyActive,
	)
}

func WrapNotFound(id string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Loan request %s not found", id),
		ErrNotFound,
	)
}

func WrapInvalidStateTransition(id, from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStateTransition,
		fmt.Sprintf("Loan request %s cannot move from %s to %s", id, from, to),
		ErrInvalidStateTransition,
	)
}

// WrapLetterUnavailable reports a letter download before issuance or after the bank step.
func WrapLetterUnavailable(id, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStateTransition,
		fmt.Sprintf("Letter for loan request %s is not available in status %s", id, status),
		ErrInvalidStateTransition,
	)
}

// WrapStaleWrite reports a lost compare-and-swap as a rejected transition.
func WrapStaleWrite(id string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStateTransition,
		fmt.Sprintf("Loan request %s changed while the action was applied", id),
		errors.Join(ErrInvalidStateTransition, ErrStaleWrite),
	)
}

func WrapAuthentication(message string) *BusinessError {
	return NewBusinessError(ErrCodeAuthentication, message, ErrUnauthenticated)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	var be *BusinessError
	if !errors.As(err, &be) {
		return http.StatusInternalServerError
	}
	switch be.Code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeAlreadyActive, ErrCodeInvalidStateTransition:
		return http.StatusConflict
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message of a BusinessError, or a generic one.
func Message(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Message
	}
	return "internal server error"
}
