package reports

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("report not found")
	ErrUploadInFlight = errors.New("an upload is already being processed for this session")
)

// PreconditionError is returned before any network call when an input is missing.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s: %s", e.Field, e.Reason)
}

// ResponseParseError means the model output was not JSON once fences were removed.
type ResponseParseError struct {
	Raw string
	Err error
}

func (e *ResponseParseError) Error() string {
	return "model response is not valid JSON: " + e.Err.Error()
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// SchemaValidationError means the JSON parsed but did not match the summary shape.
// Field is a JSON pointer to the offending location.
type SchemaValidationError struct {
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("summary failed validation at %s: %s", e.Field, e.Reason)
}
