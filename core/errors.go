package core

import "github.com/pkg/errors"

// FieldError ties a validation failure to the offending input field,
// keyed by the field's JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a business-rule rejection: malformed input, a
// duplicate grade or attendance mark, a timetable conflict. Transports
// render it as a client error, never a server fault. Err carries the
// overall rejection, Fields the per-field breakdown; either may be
// empty.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks a fault the process cannot work through, such as a
// database integrity failure. The API server drains and exits when one
// surfaces from a handler.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
