package transform

import (
	"errors"
	"fmt"
)

// Common transformation errors.
var (
	// ErrPipelineAbort indicates that a stop-on-fail filter rejected a record.
	ErrPipelineAbort = errors.New("pipeline aborted")

	// ErrTemplateRender indicates a template could not be parsed or executed.
	ErrTemplateRender = errors.New("template render failed")

	// ErrExpression indicates an expression could not be compiled or evaluated.
	ErrExpression = errors.New("expression evaluation failed")
)

// FilterAbortError is returned when a filter marked stop_on_fail does not
// pass for a record.
type FilterAbortError struct {
	Label       string
	RecordIndex int
}

// Error implements the error interface.
func (e *FilterAbortError) Error() string {
	label := e.Label
	if label == "" {
		label = "unnamed"
	}
	return fmt.Sprintf("filter %q blocked the record", label)
}

// Is matches ErrPipelineAbort.
func (e *FilterAbortError) Is(target error) bool {
	return target == ErrPipelineAbort
}

// FilterEvaluationError describes a filter whose expression failed. It is
// logged and counted, and the record is treated as not passing.
type FilterEvaluationError struct {
	Label      string
	Mode       string
	Expression string
	Err        error
}

// Error implements the error interface.
func (e *FilterEvaluationError) Error() string {
	return fmt.Sprintf("filter %q (%s) evaluation failed: %v", e.Label, e.Mode, e.Err)
}

// Unwrap returns the underlying error.
func (e *FilterEvaluationError) Unwrap() error {
	return e.Err
}

// TemplateError wraps a template parse or execution failure.
type TemplateError struct {
	Template string
	Err      error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("%v: %v", ErrTemplateRender, e.Err)
}

// Unwrap returns the underlying error.
func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Is matches ErrTemplateRender.
func (e *TemplateError) Is(target error) bool {
	return target == ErrTemplateRender
}
