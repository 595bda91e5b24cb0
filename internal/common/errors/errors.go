// Package errors provides the standardized error envelope shared by the
// recommendation client, its CLI and the workflow worker.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeRecommendationTransportFailed ErrorCode = "RECOMMENDATION_TRANSPORT_FAILED"
	ErrCodeRecommendationTimeout         ErrorCode = "RECOMMENDATION_TIMEOUT"
	ErrCodeRecommendationServiceError    ErrorCode = "RECOMMENDATION_SERVICE_ERROR"
	ErrCodeRecommendationParseFailed     ErrorCode = "RECOMMENDATION_PARSE_FAILED"

	ErrCodeSubmitInFlight ErrorCode = "SUBMIT_IN_FLIGHT"

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
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is the shape thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for Camunda job variables.
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

// NewValidationError is returned for input that never reaches the service.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Please describe what you are looking for",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportError covers requests that never produced a response.
func NewTransportError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecommendationTransportFailed,
		Message:   "Could not reach the recommendation service",
		Details:   fmt.Sprintf("endpoint: %s, error: %s", endpoint, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError is the transport failure caused by the request deadline.
func NewTimeoutError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecommendationTimeout,
		Message:   "The recommendation service took too long to answer",
		Details:   fmt.Sprintf("endpoint: %s, error: %s", endpoint, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewServiceError carries the non-success status returned by the service.
func NewServiceError(statusCode int, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecommendationServiceError,
		Message:   fmt.Sprintf("Server returned %d", statusCode),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"statusCode": statusCode},
		Timestamp: time.Now().UTC(),
	}
}

// NewParseError is returned when a success body has the wrong shape.
func NewParseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecommendationParseFailed,
		Message:   "The recommendation service sent an unreadable answer",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmitInFlightError rejects a submit issued while another is pending.
func NewSubmitInFlightError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmitInFlight,
		Message:   "A request is already in progress",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps anything that does not fit the taxonomy.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:              "VALIDATION_FAILED",
	ErrCodeRecommendationTransportFailed: "RECOMMENDATION_TRANSPORT_FAILED",
	ErrCodeRecommendationTimeout:         "RECOMMENDATION_TIMEOUT",
	ErrCodeRecommendationServiceError:    "RECOMMENDATION_SERVICE_ERROR",
	ErrCodeRecommendationParseFailed:     "RECOMMENDATION_PARSE_FAILED",
	ErrCodeInternal:                      "INTERNAL_ERROR",
}

// GetRetryCount returns how many engine retries a code warrants. Every
// recommendation failure is terminal for its submission.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSubmitInFlight:
		return 1
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

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if status, ok := stdErr.Metadata["statusCode"]; ok {
		vars["statusCode"] = status
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
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
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "TRANSPORT") || strings.Contains(codeStr, "TIMEOUT"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "SERVICE"):
		return "SERVICE"
	case strings.Contains(codeStr, "PARSE"):
		return "PARSE"
	case strings.Contains(codeStr, "IN_FLIGHT"):
		return "CONCURRENCY"
	default:
		return "OTHER"
	}
}
