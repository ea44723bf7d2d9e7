// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode classifies failures so the command surface can pick an exit status
// and the pipeline can decide whether a retry is worthwhile
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodeUnavailable is for transport failures where re-invocation may succeed
	ErrorCodeUnavailable

	// ErrorCodeTooManyRequests is for publisher rate limiting
	ErrorCodeTooManyRequests

	// ErrorCodeTimeout is for a fetch that exceeded its time budget
	ErrorCodeTimeout

	// ErrorCodeInvalidArgument is for bad operator input (flags, ids, dates)
	ErrorCodeInvalidArgument

	// ErrorCodeValidation is for reference data or config failing validation
	ErrorCodeValidation

	// ErrorCodeNotFound is for missing files, archives or datasets
	ErrorCodeNotFound

	// ErrorCodeExtraction is for source documents that cannot be turned into records
	ErrorCodeExtraction

	// ErrorCodeConflict is for merge conflicts and history that breaks a ledger invariant
	ErrorCodeConflict

	// ErrorCodePersistence is for failures writing the ledger, run state or archive
	ErrorCodePersistence

	// ErrorCodeLocked is for a second run against a ledger that is already being ingested
	ErrorCodeLocked
)

// Process exit statuses. ExitNoUpdate is not an error; it is listed here so every
// caller-visible status lives in one place
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitNoUpdate    = 2
	ExitTransport   = 3
	ExitExtraction  = 4
	ExitConflict    = 5
	ExitPersistence = 6
	ExitLocked      = 7
	ExitUsage       = 64
)

// ExitStatusCode turns an ErrorCode into a process exit status
func ExitStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeUnavailable, ErrorCodeTooManyRequests, ErrorCodeTimeout:
		return ExitTransport
	case ErrorCodeExtraction:
		return ExitExtraction
	case ErrorCodeConflict:
		return ExitConflict
	case ErrorCodePersistence:
		return ExitPersistence
	case ErrorCodeLocked:
		return ExitLocked
	case ErrorCodeInvalidArgument:
		return ExitUsage
	default:
		return ExitFailure
	}
}

// ExitStatus returns the exit status for any error; nil maps to ExitOK
func ExitStatus(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitStatusCode(CodeOf(err))
}

// String renders the code for logs
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeUnavailable:
		return "unavailable"
	case ErrorCodeTooManyRequests:
		return "too_many_requests"
	case ErrorCodeTimeout:
		return "timeout"
	case ErrorCodeInvalidArgument:
		return "invalid_argument"
	case ErrorCodeValidation:
		return "validation"
	case ErrorCodeNotFound:
		return "not_found"
	case ErrorCodeExtraction:
		return "extraction"
	case ErrorCodeConflict:
		return "conflict"
	case ErrorCodePersistence:
		return "persistence"
	case ErrorCodeLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// ErrNotFound is a sentinel not found error for convenience
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error is the structured error type with wrapping and metadata
// msg is operator facing; code is machine facing
// field is optional (for validation); orig is the wrapped cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Message returns the message without the wrapped cause
func (e *Error) Message() string { return e.msg }

// Coder is implemented by domain error types that carry their own classification
type Coder interface {
	error
	Code() ErrorCode
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown.
// The outermost classified error in the chain wins
func CodeOf(err error) ErrorCode {
	var c Coder
	if stderrs.As(err, &c) {
		return c.Code()
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithField attaches a field to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only when err != nil (helper for 1-liners)
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// InvalidArgf returns an invalid argument error
func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }

// Validationf returns a validation error
func Validationf(format string, a ...any) error { return Newf(ErrorCodeValidation, format, a...) }

// Extractionf returns an extraction error
func Extractionf(format string, a ...any) error { return Newf(ErrorCodeExtraction, format, a...) }

// Unavailablef returns an unavailable error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// Persistencef returns a persistence error
func Persistencef(format string, a ...any) error { return Newf(ErrorCodePersistence, format, a...) }
