// Package errors provides the structured errors shared by connectors, the HTTP
// server and the job workers, and their mapping to HTTP statuses and BPMN
// errors.
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
	ErrCodeCardBuildFailed      ErrorCode = "CARD_BUILD_FAILED"
	ErrCodeCardValidationFailed ErrorCode = "CARD_VALIDATION_FAILED"
	ErrCodeInvalidCardRequest   ErrorCode = "INVALID_CARD_REQUEST"

	ErrCodeUpstreamUnavailable   ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout       ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamAuthFailed    ErrorCode = "UPSTREAM_AUTH_FAILED"
	ErrCodeUpstreamRequestFailed ErrorCode = "UPSTREAM_REQUEST_FAILED"

	ErrCodeConnectorNotFound      ErrorCode = "CONNECTOR_NOT_FOUND"
	ErrCodeFingerprintStoreFailed ErrorCode = "FINGERPRINT_STORE_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying error, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e after setting key. It is meant for construction time
// only.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the variables set on a failed or thrown job.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewCardBuildFailedError reports a card that could not be assembled from
// upstream data.
func NewCardBuildFailedError(source string, err error) *StandardError {
	return newError(ErrCodeCardBuildFailed, "Card could not be built",
		fmt.Sprintf("source: %s, error: %s", source, err.Error()), false, err)
}

// NewCardValidationFailedError reports a card rejected by strict validation or
// the card contract schema.
func NewCardValidationFailedError(details string) *StandardError {
	return newError(ErrCodeCardValidationFailed, "Card failed validation", details, false, nil)
}

func NewInvalidCardRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidCardRequest, "Invalid card request", details, false, nil)
}

// NewUpstreamUnavailableError covers transport failures, 5xx responses and an
// open circuit breaker.
func NewUpstreamUnavailableError(service string, err error) *StandardError {
	return newError(ErrCodeUpstreamUnavailable, fmt.Sprintf("Upstream service '%s' unavailable", service),
		err.Error(), true, err)
}

func NewUpstreamTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeUpstreamTimeout, fmt.Sprintf("Upstream service '%s' timeout", service),
		err.Error(), true, err)
}

func NewUpstreamAuthFailedError(service string, status int) *StandardError {
	return newError(ErrCodeUpstreamAuthFailed, fmt.Sprintf("Upstream service '%s' rejected credentials", service),
		fmt.Sprintf("status: %d", status), false, nil).WithMetadata("upstreamStatus", status)
}

func NewUpstreamRequestFailedError(service string, status int, body string) *StandardError {
	return newError(ErrCodeUpstreamRequestFailed, fmt.Sprintf("Upstream service '%s' rejected request", service),
		fmt.Sprintf("status: %d, body: %s", status, body), false, nil).WithMetadata("upstreamStatus", status)
}

func NewConnectorNotFoundError(name string) *StandardError {
	return newError(ErrCodeConnectorNotFound, "Connector not found",
		fmt.Sprintf("connector: %s", name), false, nil)
}

func NewFingerprintStoreFailedError(err error) *StandardError {
	return newError(ErrCodeFingerprintStoreFailed, "Fingerprint store error", err.Error(), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// AsStandardError returns the first *StandardError in err's chain, or wraps err
// as an internal error.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// ==========================
// 4. Error Conversion
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. Codes that
// are not listed pass through unchanged.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeCardBuildFailed:        "CARD_BUILD_FAILED",
	ErrCodeCardValidationFailed:   "CARD_VALIDATION_FAILED",
	ErrCodeInvalidCardRequest:     "INVALID_CARD_REQUEST",
	ErrCodeUpstreamUnavailable:    "UPSTREAM_UNAVAILABLE",
	ErrCodeUpstreamTimeout:        "UPSTREAM_TIMEOUT",
	ErrCodeUpstreamAuthFailed:     "UPSTREAM_AUTH_FAILED",
	ErrCodeUpstreamRequestFailed:  "UPSTREAM_REQUEST_FAILED",
	ErrCodeConnectorNotFound:      "CONNECTOR_NOT_FOUND",
	ErrCodeFingerprintStoreFailed: "FINGERPRINT_STORE_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamUnavailable,
		ErrCodeFingerprintStoreFailed:
		return 3

	case ErrCodeUpstreamTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus returns the status the connector answers the hub with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidCardRequest:
		return http.StatusBadRequest
	case ErrCodeUpstreamAuthFailed:
		return http.StatusForbidden
	case ErrCodeConnectorNotFound:
		return http.StatusNotFound
	case ErrCodeCardValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeUpstreamRequestFailed:
		return http.StatusBadGateway
	case ErrCodeUpstreamUnavailable, ErrCodeFingerprintStoreFailed:
		return http.StatusServiceUnavailable
	case ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CARD"):
		return "CARD"
	case strings.Contains(codeStr, "UPSTREAM"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "CONNECTOR"):
		return "ROUTING"
	case strings.Contains(codeStr, "FINGERPRINT"):
		return "STORAGE"
	default:
		return "OTHER"
	}
}
