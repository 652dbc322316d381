package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vyrodovalexey/avaxform/internal/util"
	"github.com/vyrodovalexey/avaxform/internal/validation"
)

var (
	// ErrMissingRule is returned when no rule is given.
	ErrMissingRule = errors.New("missing transformation rule")

	// ErrValidationFailed matches every rejected validation run.
	ErrValidationFailed = errors.New("validation failed")

	// ErrSourceFetch matches every remote source failure.
	ErrSourceFetch = errors.New("source fetch failed")
)

// ValidationFailedError is returned under the reject policy when at least
// one record fails validation. No output is produced.
type ValidationFailedError struct {
	Report *validation.Report
}

// Error lists every failure as "record N - message", N counting from 1.
func (e *ValidationFailedError) Error() string {
	var b strings.Builder
	b.WriteString(ErrValidationFailed.Error())
	b.WriteString(":")
	if e.Report != nil {
		for _, fe := range e.Report.Errors {
			fmt.Fprintf(&b, "\nrecord %d - %s", fe.RecordIndex+1, fe.Message)
		}
	}
	return b.String()
}

// Is matches ErrValidationFailed and util.ErrUnprocessable.
func (e *ValidationFailedError) Is(target error) bool {
	return target == ErrValidationFailed || target == util.ErrUnprocessable
}

// SourceFetchError is returned when a remote source payload cannot be
// retrieved.
type SourceFetchError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetch source %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// Is matches ErrSourceFetch and util.ErrUpstreamUnavail.
func (e *SourceFetchError) Is(target error) bool {
	return target == ErrSourceFetch || target == util.ErrUpstreamUnavail
}
