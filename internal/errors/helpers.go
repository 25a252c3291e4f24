package errors

import (
	"fmt"
	"net/http"
)

// NewValidationError creates a validation error with field context
func NewValidationError(field, value, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithContext("value", value).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewInvalidInputError reports a request that could not be decoded
func NewInvalidInputError(message string, err error) *AppError {
	return Wrap(err, ErrCodeInvalidInput, message).
		WithUserMessage(message)
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Database operation failed")
}

// NewBridgeError wraps a protocol client failure for one account
func NewBridgeError(accountID, operation string, err error) *AppError {
	return WrapRetryable(err, ErrCodeBridge, fmt.Sprintf("bridge %s failed", operation)).
		WithContext("account_id", accountID).
		WithContext("operation", operation).
		WithUserMessage("Messaging bridge is unavailable")
}

func NewAuthError(reason string) *AppError {
	return New(ErrCodeAuthentication, "authentication failed").
		WithContext("reason", reason).
		WithUserMessage("Unauthorized: invalid or missing API key")
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(fmt.Sprintf("%s %s not found", resource, identifier))
}

// NewConflictError reports a resource that already exists
func NewConflictError(resource, identifier string) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf("%s already exists", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(fmt.Sprintf("%s %s already exists", resource, identifier))
}

func NewRateLimitError(limit float64, burst int) *AppError {
	return New(ErrCodeRateLimit, "rate limit exceeded").
		WithContext("limit", limit).
		WithContext("burst", burst).
		WithUserMessage("Too many requests, please try again later")
}

// HTTPStatusCode maps error codes to HTTP status codes
func HTTPStatusCode(err error) int {
	switch GetCode(err) {
	case ErrCodeValidationFailed, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeBridge:
		return http.StatusBadGateway
	case ErrCodeDatabaseConnection, ErrCodeDatabaseQuery, ErrCodeDatabaseMigration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorResponse is the error form of the API envelope
type HTTPErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Code      ErrorCode `json:"code"`
	RequestID string    `json:"requestId,omitempty"`
}

// ToHTTPResponse converts an error to the API envelope. Causes are never exposed.
func ToHTTPResponse(err error, requestID string) HTTPErrorResponse {
	return HTTPErrorResponse{
		Success:   false,
		Error:     GetUserMessage(err),
		Code:      GetCode(err),
		RequestID: requestID,
	}
}
