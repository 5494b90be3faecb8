package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork             ErrorType = "network"
	ErrorTypeUpstreamUnavailable ErrorType = "upstream_unavailable"
	ErrorTypePlatform            ErrorType = "platform"
	ErrorTypeMalformedResponse   ErrorType = "malformed_response"
	ErrorTypeHTTPStatus          ErrorType = "http_status"
	ErrorTypeStorage             ErrorType = "storage"
	ErrorTypeUnknown             ErrorType = "unknown"
)

// Error is the typed error returned by every component that talks to the
// platform or the filesystem. Code carries the platform's envelope code for
// ErrorTypePlatform and the HTTP status for ErrorTypeHTTPStatus.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same type, so sentinel comparisons like
// errors.Is(err, &Error{Type: ErrorTypePlatform}) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Code == 0 || t.Code == e.Code)
}

// NewNetwork wraps a transport failure, timeouts included.
func NewNetwork(message string, err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: message, Err: err}
}

// NewUpstreamUnavailable reports that key material could not be obtained.
func NewUpstreamUnavailable(message string, err error) *Error {
	return &Error{Type: ErrorTypeUpstreamUnavailable, Message: message, Err: err}
}

// NewPlatform reports a non-zero envelope code.
func NewPlatform(code int, message string) *Error {
	return &Error{Type: ErrorTypePlatform, Message: message, Code: code}
}

// NewMalformedResponse reports a body that is not the expected JSON shape.
func NewMalformedResponse(message string, err error) *Error {
	return &Error{Type: ErrorTypeMalformedResponse, Message: message, Err: err}
}

// NewHTTPStatus reports a non-2xx response.
func NewHTTPStatus(status int, message string) *Error {
	return &Error{Type: ErrorTypeHTTPStatus, Message: message, Code: status}
}

// NewStorage wraps a filesystem or snapshot backend failure.
func NewStorage(message string, err error) *Error {
	return &Error{Type: ErrorTypeStorage, Message: message, Err: err}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err is an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork:
		return true
	case ErrorTypePlatform, ErrorTypeMalformedResponse, ErrorTypeUpstreamUnavailable, ErrorTypeStorage:
		return false
	default:
		return false
	}
}

// IsRetryableError combines IsRetryable with the status code of
// ErrorTypeHTTPStatus errors.
func IsRetryableError(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	if e.Type == ErrorTypeHTTPStatus {
		return IsRetryableStatusCode(e.Code)
	}
	return IsRetryable(e.Type)
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
