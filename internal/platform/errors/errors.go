// Package errors carries the structured error type the services classify
// failures with. Import it as perr to keep the stdlib errors name free.
package errors

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode is the machine facing failure class. Values are stable, append
// only
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodePanic is for panics recovered at worker boundaries
	ErrorCodePanic

	// ErrorCodeUnavailable is for transient errors where retry may succeed
	ErrorCodeUnavailable

	// ErrorCodeTooManyRequests is for upstream rate limiting
	ErrorCodeTooManyRequests

	// ErrorCodeConflict is for editing conflicts beyond duplicate key
	ErrorCodeConflict

	// ErrorCodeInvalidArgument is for bad input parameters
	ErrorCodeInvalidArgument

	// ErrorCodeValidation is for input data that fails validation
	ErrorCodeValidation

	// ErrorCodeNotFound is for missing resources
	ErrorCodeNotFound

	// ErrorCodeDuplicateKey is for unique constraint violations
	ErrorCodeDuplicateKey

	// ErrorCodeDB is for general database errors
	ErrorCodeDB

	// ErrorCodeConfig is for settings that cannot be loaded or fail validation
	ErrorCodeConfig

	// ErrorCodeCollect is for failures acquiring an archive payload upstream
	ErrorCodeCollect

	// ErrorCodeStore is for failures persisting a payload to the lake
	ErrorCodeStore
)

// ErrNotFound is the shared not found sentinel
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error pairs a developer facing message with a machine facing code. field
// names the offending input when there is one, and orig is the wrapped cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped cause, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Constructors

// New returns an *Error with code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns an *Error with code and a formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns an *Error around orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns an *Error around orig with code and a formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// Inspection

// As returns (*Error, true) when err has one of ours anywhere in its chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf reads the outermost *Error's code, Unknown for foreign errors
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err's outermost code is code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// CodeInChain walks every wrapped *Error looking for code, unlike CodeOf it
// does not stop at the outermost one
func CodeInChain(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !stderrs.As(err, &e) {
			return false
		}
		if e.code == code {
			return true
		}
		err = e.Unwrap()
	}
	return false
}

// WithField attaches a field name, copy on write. Foreign errors pass through
// unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// Sugar for the failure classes services actually raise

// PanicErrf marks a recovered panic
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Unavailablef marks a transient upstream failure
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// TooManyRequestsf marks an upstream rate limit
func TooManyRequestsf(format string, a ...any) error {
	return Newf(ErrorCodeTooManyRequests, format, a...)
}

// Configf marks a configuration failure
func Configf(format string, a ...any) error { return Newf(ErrorCodeConfig, format, a...) }

// Collectf marks a collection failure
func Collectf(format string, a ...any) error { return Newf(ErrorCodeCollect, format, a...) }

// Storef marks a storage failure
func Storef(format string, a ...any) error { return Newf(ErrorCodeStore, format, a...) }

// Class predicates

// IsConfig reports whether err is classified as a configuration failure
func IsConfig(err error) bool { return IsCode(err, ErrorCodeConfig) }

// IsCollect reports whether err is classified as a collection failure
func IsCollect(err error) bool { return IsCode(err, ErrorCodeCollect) }

// IsStore reports whether err is classified as a storage failure
func IsStore(err error) bool { return IsCode(err, ErrorCodeStore) }

// Retry semantics

// Retryable reports whether the error is worth retrying. Transient upstream
// conditions count even when buried under a class code, and Postgres
// contention is delegated to IsRetryable in pg.go
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if CodeInChain(err, ErrorCodeUnavailable) || CodeInChain(err, ErrorCodeTooManyRequests) {
		return true
	}
	return IsRetryable(err)
}
