package recommender

import (
	"errors"
	"fmt"

	apperrors "car-recommender/internal/common/errors"
)

// ErrSubmitInFlight is returned when Submit is called while a request is
// still pending. The pending request is left untouched.
var ErrSubmitInFlight = errors.New("SUBMIT_IN_FLIGHT")

// ErrorKind tags the four failure variants of a submission.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindTransport
	KindService
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindService:
		return "service"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// ValidationError is raised for input that must never reach the service.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError means no response was received.
type TransportError struct {
	Endpoint string
	Cause    error
	Timeout  bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request to %s timed out: %v", e.Endpoint, e.Cause)
	}
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ServiceError is a response with a non-success status. Detail holds the
// service's own error text and is kept out of user-facing messages.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("Server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("Server returned %d: %s", e.StatusCode, e.Detail)
}

// ParseError is a success response whose body is not the expected shape.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed recommendation response: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Classify returns the variant tag of err.
func Classify(err error) ErrorKind {
	var (
		validationErr *ValidationError
		transportErr  *TransportError
		serviceErr    *ServiceError
		parseErr      *ParseError
	)
	switch {
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.As(err, &serviceErr):
		return KindService
	case errors.As(err, &parseErr):
		return KindParse
	default:
		return KindUnknown
	}
}

// ToStandardError converts a submission failure into the shared error
// envelope used for logs, workflow errors and user messages.
func ToStandardError(err error) *apperrors.StandardError {
	var (
		validationErr *ValidationError
		transportErr  *TransportError
		serviceErr    *ServiceError
		parseErr      *ParseError
		stdErr        *apperrors.StandardError
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSubmitInFlight):
		return apperrors.NewSubmitInFlightError()
	case errors.As(err, &validationErr):
		return apperrors.NewValidationError(validationErr.Field, validationErr.Reason)
	case errors.As(err, &transportErr):
		if transportErr.Timeout {
			return apperrors.NewTimeoutError(transportErr.Endpoint, transportErr.Cause)
		}
		return apperrors.NewTransportError(transportErr.Endpoint, transportErr.Cause)
	case errors.As(err, &serviceErr):
		return apperrors.NewServiceError(serviceErr.StatusCode, serviceErr.Detail)
	case errors.As(err, &parseErr):
		return apperrors.NewParseError(parseErr.Cause)
	case errors.As(err, &stdErr):
		return stdErr
	default:
		return apperrors.NewInternalError(err)
	}
}

// UserMessage is the single human readable line shown for err. Only the
// status code of a ServiceError leaks through; other detail stays in logs.
func UserMessage(err error) string {
	stdErr := ToStandardError(err)
	if stdErr == nil {
		return ""
	}
	if stdErr.Code == apperrors.ErrCodeInternal {
		return "Unknown error"
	}
	return stdErr.Message
}
