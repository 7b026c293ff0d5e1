package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeMissingParameter  ErrorType = "missing_parameter"
	ErrorTypeUnsupportedType   ErrorType = "unsupported_type"
	ErrorTypeTooLarge          ErrorType = "too_large"
	ErrorTypeProcessing        ErrorType = "processing"
	ErrorTypeUpstream          ErrorType = "upstream_unavailable"
	ErrorTypeMalformedUpstream ErrorType = "malformed_upstream"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeNoJSON            ErrorType = "no_json"
	ErrorTypeInvalidShape      ErrorType = "invalid_shape"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeInternal          ErrorType = "internal"
)

var (
	// ErrNoJSONFound is the cause of every no_json error.
	ErrNoJSONFound = errors.New("no JSON object found in model output")

	// ErrInvalidShape is the cause of every invalid_shape error.
	ErrInvalidShape = errors.New("model output does not match the expected shape")
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

// WithDetails attaches technical detail that is only shown outside production.
func (e *AppError) WithDetails(format string, args ...interface{}) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

// WithPrefix returns a copy whose message is prefixed with an operation label.
func (e *AppError) WithPrefix(prefix string) *AppError {
	cp := *e
	cp.Message = prefix + cp.Message
	return &cp
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewMissingParameterError reports a required request parameter that was absent or empty.
func NewMissingParameterError(param string) *AppError {
	return newError(ErrorTypeMissingParameter, http.StatusBadRequest,
		fmt.Sprintf("Missing required parameter: %s", param), nil)
}

// NewUnsupportedTypeError creates an error for uploads that are not images
func NewUnsupportedTypeError(message string, cause error) *AppError {
	return newError(ErrorTypeUnsupportedType, http.StatusUnsupportedMediaType, message, cause)
}

// NewTooLargeError creates an error for uploads over the size limit
func NewTooLargeError(message string, cause error) *AppError {
	return newError(ErrorTypeTooLarge, http.StatusRequestEntityTooLarge, message, cause)
}

// NewProcessingError creates a new processing error
func NewProcessingError(message string, cause error) *AppError {
	return newError(ErrorTypeProcessing, http.StatusUnprocessableEntity, message, cause)
}

// NewUpstreamError creates an error for a failed or non-success model service call
func NewUpstreamError(message string, cause error) *AppError {
	return newError(ErrorTypeUpstream, http.StatusBadGateway, message, cause)
}

// NewMalformedUpstreamError creates an error for a success response without message content
func NewMalformedUpstreamError(message string, cause error) *AppError {
	return newError(ErrorTypeMalformedUpstream, http.StatusBadGateway, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewNoJSONError creates an extraction error for model output without a JSON object
func NewNoJSONError(message string) *AppError {
	return newError(ErrorTypeNoJSON, http.StatusUnprocessableEntity, message, ErrNoJSONFound)
}

// NewInvalidShapeError creates an extraction error for JSON that fails validation
func NewInvalidShapeError(message string) *AppError {
	return newError(ErrorTypeInvalidShape, http.StatusUnprocessableEntity, message, ErrInvalidShape)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// IsType checks if any error in the chain is an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// UserMessage returns the message that may be shown to an end user.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}

// TechnicalDetail returns the diagnostic text behind err.
func TechnicalDetail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Details
		}
		if appErr.Cause != nil {
			return appErr.Cause.Error()
		}
		return ""
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
