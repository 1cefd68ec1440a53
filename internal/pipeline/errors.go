package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind tags every failure the pipeline can hand back to a caller.
type ErrorKind string

const (
	KindMalformedResponse   ErrorKind = "MalformedResponse"
	KindSchemaViolation     ErrorKind = "SchemaViolation"
	KindProviderUnavailable ErrorKind = "ProviderUnavailable"
	KindPastDateRequested   ErrorKind = "PastDateRequested"
	KindInvalidInput        ErrorKind = "InvalidInput"
)

// Error is the typed failure of a pipeline stage.
// Raw holds the provider text for diagnostics only and is never copied into an Outcome.
type Error struct {
	Kind   ErrorKind
	Detail string
	Raw    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// InvalidInput builds an InvalidInput error. Exported for entry points outside the
// dispatcher (HTTP binding, reconciler callers).
func InvalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, fmt.Sprintf(format, args...))
}

// PastDateRequested builds the error returned when a requested day is before today.
func PastDateRequested(date string) *Error {
	return newError(KindPastDateRequested, fmt.Sprintf("requested date %s is in the past", date))
}

func schemaViolation(format string, args ...any) *Error {
	return newError(KindSchemaViolation, fmt.Sprintf(format, args...))
}

// KindOf reports the pipeline kind carried by err, or "" when err is not a pipeline error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given pipeline kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
