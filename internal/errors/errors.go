package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeEncoding     ErrorType = "encoding"
	ErrorTypeModelRequest ErrorType = "model_request"
	ErrorTypeParse        ErrorType = "parse"
	ErrorTypeBusy         ErrorType = "busy"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInternal     ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying extra detail text
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func newAppError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewEncodingError is returned when an image cannot be decoded or re-encoded
func NewEncodingError(message string, cause error) *AppError {
	return newAppError(ErrorTypeEncoding, http.StatusUnprocessableEntity, message, cause)
}

// NewModelRequestError wraps a failed call to the critique model
func NewModelRequestError(message string, cause error) *AppError {
	return newAppError(ErrorTypeModelRequest, http.StatusBadGateway, message, cause)
}

// NewParseError is returned when the model reply does not have the expected shape
func NewParseError(message string, cause error) *AppError {
	return newAppError(ErrorTypeParse, http.StatusBadGateway, message, cause)
}

// NewBusyError is returned when a session already has a critique in flight
func NewBusyError(message string) *AppError {
	return newAppError(ErrorTypeBusy, http.StatusConflict, message, nil)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// IsType checks if the error, or anything it wraps, is an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// TypeOf returns the AppError type of err, or ErrorTypeInternal for foreign errors
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
