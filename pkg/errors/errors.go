// Package errors provides structured error types for the moxie resolver.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the solver, repository client and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes mirror the resolver's failure taxonomy:
//   - ARTIFACT_NOT_FOUND: a repository lacks the artifact (recoverable, try the next one)
//   - CHECKSUM_MISMATCH: downloaded bytes do not match the published SHA-1 (fatal)
//   - MALFORMED_DESCRIPTOR: a POM or metadata document failed to parse
//   - CIRCULAR_DEPENDENCY: a self or cyclic dependency was dropped
//   - NETWORK_ERROR: transport failure for one repository attempt
//   - UNRESOLVED_DEPENDENCY: no repository satisfied a required dependency
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidCoordinate, "invalid coordinate: %s", s)
//	if errors.Is(err, errors.ErrCodeInvalidCoordinate) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidCoordinate Code = "INVALID_COORDINATE"
	ErrCodeInvalidScope      Code = "INVALID_SCOPE"

	// Resolution errors
	ErrCodeArtifactNotFound     Code = "ARTIFACT_NOT_FOUND"
	ErrCodeChecksumMismatch     Code = "CHECKSUM_MISMATCH"
	ErrCodeMalformedDescriptor  Code = "MALFORMED_DESCRIPTOR"
	ErrCodeCircularDependency   Code = "CIRCULAR_DEPENDENCY"
	ErrCodeUnresolvedDependency Code = "UNRESOLVED_DEPENDENCY"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeOffline     Code = "OFFLINE"
	ErrCodeCircuitOpen Code = "CIRCUIT_OPEN"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It walks the whole error chain, so a NETWORK_ERROR wrapping an
// ARTIFACT_NOT_FOUND matches both codes.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsNotFound reports whether err means "this repository does not have it".
// Not-found is a signal rather than a failure: callers move on to the next
// configured repository.
func IsNotFound(err error) bool {
	return Is(err, ErrCodeArtifactNotFound)
}

// IsFatal reports whether err must abort the current fetch regardless of
// remaining repositories.
func IsFatal(err error) bool {
	return Is(err, ErrCodeChecksumMismatch)
}
