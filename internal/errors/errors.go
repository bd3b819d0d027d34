package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure so callers can map it to a response.
type ErrorCode string

const (
	ErrCodeNotFound               ErrorCode = "NOT_FOUND"
	ErrCodeConflict               ErrorCode = "CONFLICT"
	ErrCodeDuplicateRegistration  ErrorCode = "DUPLICATE_REGISTRATION"
	ErrCodeInvalidTransition      ErrorCode = "INVALID_TRANSITION"
	ErrCodeInsufficientBalance    ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeValidation             ErrorCode = "VALIDATION_ERROR"
	ErrCodeDBError                ErrorCode = "DB_ERROR"
	ErrCodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden              ErrorCode = "FORBIDDEN"
	ErrCodeShiftAlreadyOpen       ErrorCode = "SHIFT_ALREADY_OPEN"
	ErrCodeTableOccupied          ErrorCode = "TABLE_OCCUPIED"
	ErrCodeShiftNumberUnavailable ErrorCode = "SHIFT_NUMBER_UNAVAILABLE"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrDuplicateRegistration = errors.New("user already registered")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInsufficientBalance   = errors.New("insufficient bonus balance")
	ErrValidation            = errors.New("validation failed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")

	// ErrShiftAlreadyOpen and ErrTableOccupied are conflicts on the
	// "only one" invariants.
	ErrShiftAlreadyOpen = fmt.Errorf("%w: a shift is already open", ErrConflict)
	ErrTableOccupied    = fmt.Errorf("%w: table already has an active order", ErrConflict)
)

// AppError carries a code and message alongside the underlying error.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NotFound builds a NOT_FOUND error for an entity and its key.
func NotFound(entity string, key any) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s %v not found", entity, key), ErrNotFound)
}

// Validation builds a VALIDATION_ERROR with the given message.
func Validation(format string, args ...any) *AppError {
	return NewAppError(ErrCodeValidation, fmt.Sprintf(format, args...), ErrValidation)
}

// IsAppError reports whether err is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError returns the first AppError in err's chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// CodeOf returns the code of the wrapped AppError, DB_ERROR otherwise.
func CodeOf(err error) ErrorCode {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrConflict):
		return ErrCodeConflict
	case errors.Is(err, ErrValidation):
		return ErrCodeValidation
	}
	return ErrCodeDBError
}
