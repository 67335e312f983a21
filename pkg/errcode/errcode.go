// Package errcode defines the structured error codes returned by collsnap.
//
// Every error kind is a sentinel *Error. Call sites attach context with
// WithDetails and WithCause, and callers compare with errors.Is, which
// matches on the code alone.
package errcode

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a domain error with a stable code.
type Error struct {
	Code    string // e.g. "CS-SNAP-5001"
	Message string
	Details string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details string) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithDetailf is WithDetails with fmt.Sprintf formatting.
func (e *Error) WithDetailf(format string, args ...any) *Error {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// IsCode reports whether err is an *Error with the given code.
// An empty code matches any *Error.
func IsCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return code == "" || e.Code == code
}

// Code extracts the code of the outermost *Error in err's chain.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Snapshot lifecycle errors.
var (
	// ErrSlugCollision indicates the generated slug is already taken.
	ErrSlugCollision = New("CS-SLUG-4090", "slug collision")

	// ErrBuildFailure indicates the build callback failed; nothing was committed.
	ErrBuildFailure = New("CS-SNAP-5001", "snapshot build failed")

	// ErrRetentionSweep indicates the post-commit sweep could not evict
	// every excess snapshot. The new snapshot is committed regardless.
	ErrRetentionSweep = New("CS-SNAP-5002", "retention sweep failed")

	// ErrDestroyFailure indicates one or more collection drops failed.
	ErrDestroyFailure = New("CS-SNAP-5003", "snapshot destroy failed")
)

// Schema binding errors.
var (
	// ErrBindingRedefinition indicates a sub-key schema changed after a
	// binding for it was created.
	ErrBindingRedefinition = New("CS-BIND-4091", "binding redefinition")

	// ErrSchemaValidation indicates a document does not match its schema.
	ErrSchemaValidation = New("CS-BIND-4001", "schema validation failed")
)

// System errors.
var (
	// ErrNotFound indicates the requested record or document does not exist.
	ErrNotFound = New("CS-SYS-4040", "not found")

	// ErrStorage indicates a document store failure.
	ErrStorage = New("CS-SYS-5001", "storage error")

	// ErrDuplicateKey indicates a document id already exists in its collection.
	ErrDuplicateKey = New("CS-SYS-4090", "duplicate document id")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = New("CS-ARG-1001", "invalid argument")
)
