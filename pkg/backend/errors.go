package backend

import (
	"fmt"
	"time"
)

// UnreachableError indicates a backend endpoint failed to accept or
// complete a call at the transport level. It is the trigger for failover
// within a request's attempt loop.
type UnreachableError struct {
	// Endpoint is the backend that failed.
	Endpoint Endpoint

	// Op is the call that failed ("start", "poll", "reset", "health").
	Op string

	// Cause is the underlying network error.
	Cause error
}

// Error implements the error interface.
func (e *UnreachableError) Error() string {
	return fmt.Sprintf("backend %s unreachable during %s: %v", e.Endpoint, e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates a single backend call exceeded its own short
// timeout. It is treated like a transient connection failure: the same
// failover path applies for that call.
type TimeoutError struct {
	// Endpoint is the backend that timed out.
	Endpoint Endpoint

	// Op is the call that timed out.
	Op string

	// Timeout is the configured per-call timeout.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("backend %s %s call timed out after %s", e.Endpoint, e.Op, e.Timeout)
}

// StatusError indicates the backend answered with a non-2xx status.
type StatusError struct {
	// Endpoint is the backend that returned the error.
	Endpoint Endpoint

	// Op is the call that failed.
	Op string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the response body, truncated for logging.
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s call returned status %d: %s",
		e.Endpoint, e.Op, e.StatusCode, e.Body)
}
