package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrSubmitFailed  = errors.New("submit failed")
	ErrUnavailable   = errors.New("cluster unavailable")
)

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound      = "RESOURCE_NOT_FOUND"
	ErrCodeResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeValidationError       = "VALIDATION_ERROR"
	ErrCodeSubmitFailed          = "SUBMIT_FAILED"
	ErrCodeSubmitInProgress      = "SUBMIT_IN_PROGRESS"
	ErrCodeClusterUnavailable    = "CLUSTER_UNAVAILABLE"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// APIError represents an error response from the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	ErrCode string `json:"error_code,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
