// Package util holds the error conventions shared by the gateway packages.
//
// # Error Conventions
//
//   - Sentinel errors (errors.New) for stable conditions that callers
//     check with errors.Is(). Example: ErrInvalidInput.
//   - Structured error types for context-rich errors that carry
//     additional fields (ConfigError, UpstreamError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping.
package util

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTimeout         = errors.New("timeout")
	ErrCircuitOpen     = errors.New("circuit breaker open")
	ErrUpstreamUnavail = errors.New("upstream unavailable")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrUnprocessable   = errors.New("unprocessable payload")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// UpstreamError is a failure talking to a remote document source, such as
// a schema registry or a sample payload URL.
type UpstreamError struct {
	URL        string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("upstream %s: %v", e.URL, e.Cause)
	default:
		return fmt.Sprintf("upstream %s failed", e.URL)
	}
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *UpstreamError) Is(target error) bool {
	if target == ErrUpstreamUnavail {
		return true
	}
	_, ok := target.(*UpstreamError)
	return ok || errors.Is(e.Cause, target)
}

// NewUpstreamStatusError creates an UpstreamError for a non-success status.
func NewUpstreamStatusError(url string, status int) *UpstreamError {
	return &UpstreamError{URL: url, StatusCode: status}
}

// NewUpstreamError creates an UpstreamError wrapping a transport failure.
func NewUpstreamError(url string, cause error) *UpstreamError {
	return &UpstreamError{URL: url, Cause: cause}
}

// CircuitOpenError represents a circuit breaker open error.
type CircuitOpenError struct {
	Name  string
	State string
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %s is %s", e.Name, e.State)
}

// Is checks if the error matches the target.
func (e *CircuitOpenError) Is(target error) bool {
	if target == ErrCircuitOpen || target == ErrUpstreamUnavail {
		return true
	}
	_, ok := target.(*CircuitOpenError)
	return ok
}

// NewCircuitOpenError creates a new CircuitOpenError.
func NewCircuitOpenError(name, state string) *CircuitOpenError {
	return &CircuitOpenError{Name: name, State: state}
}

// IsClientError returns true if the error should map to a 4xx response.
func IsClientError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnprocessable)
}

// IsServerError returns true if the error should map to a 5xx response.
func IsServerError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavail) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrTimeout)
}
