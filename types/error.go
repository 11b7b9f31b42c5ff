package types

import "fmt"

// ErrorCode represents a unified error code across the pipeline.
type ErrorCode string

const (
	// ErrSourceUnavailable marks a retrieval adapter timeout or failure.
	// Recovered locally by the coordinator; never surfaced to callers.
	ErrSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"

	// Upstream LLM / embedding service failures.
	ErrUpstreamRateLimited ErrorCode = "UPSTREAM_RATE_LIMITED"
	ErrUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"

	// ErrDeadlineExceeded is the only error surfaced as a hard failure:
	// the end-to-end query deadline elapsed mid-pipeline.
	ErrDeadlineExceeded ErrorCode = "DEADLINE_EXCEEDED"

	// ErrCacheCorruption marks a malformed cache entry (for example a
	// wrong embedding dimensionality). Treated as not-found and evicted.
	ErrCacheCorruption ErrorCode = "CACHE_CORRUPTION"

	ErrInvalidQuery  ErrorCode = "INVALID_QUERY"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Source    string    `json:"source,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithSource records which component or adapter produced the error.
func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
