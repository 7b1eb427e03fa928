package errors

import (
	"fmt"
	"io"
	"strings"

	"objmodel/pkg/source"
)

// HarnessError is the interface implemented by all positioned harness errors.
type HarnessError interface {
	error
	Pos() Position
	Kind() string // "Load" or "Assertion"
	// Message returns the error message without position info.
	Message() string
	Unwrap() error
}

// LoadError reports a scenario file that could not be decoded into steps.
type LoadError struct {
	Position
	Msg   string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Load Error at %s: %s", e.Position, e.Msg)
}
func (e *LoadError) Pos() Position   { return e.Position }
func (e *LoadError) Kind() string    { return "Load" }
func (e *LoadError) Message() string { return e.Msg }
func (e *LoadError) Unwrap() error   { return e.Cause }
func (e *LoadError) CausedBy(cause error) *LoadError {
	e.Cause = cause
	return e
}

// AssertionError reports a step whose observed result differs from the
// expected one.
type AssertionError struct {
	Position
	Msg      string
	Expected string
	Actual   string
	Cause    error
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion Error at %s: %s", e.Position, e.Message())
}
func (e *AssertionError) Pos() Position { return e.Position }
func (e *AssertionError) Kind() string  { return "Assertion" }
func (e *AssertionError) Message() string {
	if e.Expected == "" && e.Actual == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (expected %s, got %s)", e.Msg, e.Expected, e.Actual)
}
func (e *AssertionError) Unwrap() error { return e.Cause }
func (e *AssertionError) CausedBy(cause error) *AssertionError {
	e.Cause = cause
	return e
}

// NewLoadError builds a LoadError with a formatted message.
func NewLoadError(pos Position, format string, args ...interface{}) *LoadError {
	return &LoadError{Position: pos, Msg: fmt.Sprintf(format, args...)}
}

// --- Error Reporting ---

// DisplayErrors writes errs to w in a user-friendly format, including the
// offending source line and a position marker.
func DisplayErrors(w io.Writer, src *source.SourceFile, errs []HarnessError) {
	if len(errs) == 0 {
		return
	}

	for _, err := range errs {
		pos := err.Pos()
		kind := err.Kind()
		msg := err.Message()

		line, ok := src.Line(pos.Line)
		if !ok {
			fmt.Fprintf(w, "%s Error: %s\n", kind, msg)
			continue
		}

		fmt.Fprintf(w, "%s Error at %s: %s\n", kind, pos, msg)
		fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\t "))

		col := pos.Column - 1
		if col < 0 {
			col = 0
		}
		fmt.Fprintf(w, "  %s^\n", strings.Repeat(" ", col))
		fmt.Fprintln(w)
	}
}
