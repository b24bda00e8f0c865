// Package errors provides the standardized error taxonomy of the prediction proxy
// and its translation to HTTP responses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDatasetLoadFailed ErrorCode = "DATASET_LOAD_FAILED"

	ErrCodeInvalidIdentifier ErrorCode = "INVALID_IDENTIFIER"
	ErrCodeUnknownUser       ErrorCode = "UNKNOWN_USER"

	ErrCodeInferenceUnavailable ErrorCode = "INFERENCE_UNAVAILABLE"
	ErrCodeInferenceRejected    ErrorCode = "INFERENCE_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Public messages written into the "error" field of HTTP responses. Clients
// of the original service match on these strings.
const (
	MsgInvalidUserID           = "Invalid user_id"
	MsgUserNotFound            = "User not found"
	MsgModelServiceUnavailable = "Model service unavailable"
	MsgInternalServerError     = "Internal server error"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewDatasetLoadFailedError reports a dataset that could not be read or parsed.
// Startup continues with an empty store.
func NewDatasetLoadFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatasetLoadFailed,
		Message:   "Failed to load feature dataset",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: false,
		Metadata:  map[string]interface{}{"source": source},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidIdentifierError creates a non-retryable client input error.
func NewInvalidIdentifierError(raw string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidIdentifier,
		Message:   MsgInvalidUserID,
		Details:   fmt.Sprintf("userId: %q is not an integer", raw),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownUserError creates a non-retryable lookup miss carrying the id.
func NewUnknownUserError(userID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownUser,
		Message:   MsgUserNotFound,
		Details:   fmt.Sprintf("userId: %d", userID),
		Retryable: false,
		Metadata:  map[string]interface{}{"userId": userID},
		Timestamp: time.Now().UTC(),
	}
}

// NewInferenceUnavailableError wraps a transport failure talking to the
// inference service (connection refused, DNS, reset).
func NewInferenceUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInferenceUnavailable,
		Message:   MsgModelServiceUnavailable,
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInferenceTimeoutError reports an inference call abandoned after timeout.
func NewInferenceTimeoutError(timeout time.Duration, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInferenceUnavailable,
		Message:   MsgModelServiceUnavailable,
		Details:   fmt.Sprintf("timeout of %s exceeded", timeout),
		Retryable: true,
		Metadata:  map[string]interface{}{"timeoutMs": timeout.Milliseconds()},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInferenceRejectedError reports a structured rejection from the inference
// service. detail is the service's own explanation and may be empty.
func NewInferenceRejectedError(statusCode int, detail string) *StandardError {
	if strings.TrimSpace(detail) == "" {
		detail = fmt.Sprintf("model service rejected the request with status %d", statusCode)
	}
	return &StandardError{
		Code:      ErrCodeInferenceRejected,
		Message:   MsgModelServiceUnavailable,
		Details:   detail,
		Retryable: false,
		Metadata:  map[string]interface{}{"statusCode": statusCode},
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// HTTPStatus maps an error code to the status returned to clients.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidIdentifier:
		return http.StatusBadRequest
	case ErrCodeUnknownUser:
		return http.StatusNotFound
	case ErrCodeInferenceUnavailable, ErrCodeInferenceRejected:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is worth retrying by the caller.
// The proxy itself never retries.
func IsRetryableErrorCode(code ErrorCode) bool {
	return code == ErrCodeInferenceUnavailable
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "DATASET"):
		return "DATASET"
	case strings.HasPrefix(codeStr, "INFERENCE"):
		return "INFERENCE"
	case code == ErrCodeInvalidIdentifier:
		return "VALIDATION"
	case code == ErrCodeUnknownUser:
		return "LOOKUP"
	default:
		return "OTHER"
	}
}

// ResponseBody renders the client-facing JSON body for an error.
func ResponseBody(stdErr *StandardError) map[string]interface{} {
	switch stdErr.Code {
	case ErrCodeInvalidIdentifier:
		return map[string]interface{}{"error": MsgInvalidUserID}
	case ErrCodeUnknownUser:
		body := map[string]interface{}{
			"error":   MsgUserNotFound,
			"message": "User is not present in the feature dataset",
		}
		if id, ok := stdErr.Metadata["userId"]; ok {
			body["userId"] = id
		}
		return body
	case ErrCodeInferenceUnavailable, ErrCodeInferenceRejected:
		return map[string]interface{}{
			"error":   MsgModelServiceUnavailable,
			"message": stdErr.Details,
		}
	default:
		return map[string]interface{}{"error": MsgInternalServerError}
	}
}
