package core

import "github.com/pkg/errors"

// FieldError names the request field that failed a check, with the message shown to the client.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a client error (400): Err describes it, Fields tells which inputs to fix.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// Error falls back to the first field error when Err is not set.
func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	if len(err.Fields) == 0 {
		return ""
	}
	return err.Fields[0].Field + ": " + err.Fields[0].Error
}

// shutdown reports a broken dependency the server cannot keep serving without (eg. closed session storage).
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err, or its cause, asks the server to shut down.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
