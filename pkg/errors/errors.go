// Package errors provides structured error types for metricgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the session
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The two edge-creation rejections are the only hard stops in the core:
//   - RULE_VIOLATION: a requested connection matches no connection rule
//   - CYCLE_VIOLATION: a requested data-flow edge would close a cycle
//
// Everything else is either an input problem (INVALID_*, NOT_FOUND,
// DUPLICATE_ID) or a recovered condition that is only reported
// (LAYOUT_FAILED, BULK_ITEM_FAILED, INVALID_EDGE).
//
// # Usage
//
//	err := errors.New(errors.ErrCodeRuleViolation, "connection from %q to %q is not allowed", src, tgt)
//	if errors.Is(err, errors.ErrCodeRuleViolation) {
//	    // Reject the drag
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInternal, origErr, "load project %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Edge-creation rejections
	ErrCodeRuleViolation  Code = "RULE_VIOLATION"
	ErrCodeCycleViolation Code = "CYCLE_VIOLATION"

	// Recovered conditions
	ErrCodeLayoutFailed   Code = "LAYOUT_FAILED"
	ErrCodeBulkItemFailed Code = "BULK_ITEM_FAILED"
	ErrCodeInvalidEdge    Code = "INVALID_EDGE"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeDuplicateID   Code = "DUPLICATE_ID"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeProjectNotFound Code = "PROJECT_NOT_FOUND"

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
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
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

// IsRejection reports whether err is one of the two edge-creation hard stops.
func IsRejection(err error) bool {
	return Is(err, ErrCodeRuleViolation) || Is(err, ErrCodeCycleViolation)
}
