// Package domainerrors provides coded domain errors. Stores return sentinel
// errors for infrastructure facts; services translate them into coded errors
// here so transport layers can map them to HTTP without inspecting strings.
// Conventionally imported as dErrors.
package domainerrors

import "errors"

// Code identifies a class of domain error.
type Code string

const (
	CodeValidation       Code = "validation_error"
	CodeBadRequest       Code = "bad_request"
	CodeNotFound         Code = "not_found"
	CodeForbidden        Code = "forbidden"
	CodeInvalidState     Code = "invalid_state"
	CodeUnavailable      Code = "unavailable"
	CodeUnknownReference Code = "unknown_reference"
	CodeAmountMismatch   Code = "amount_mismatch"
	CodeTimeout          Code = "timeout"
	CodeInternal         Code = "internal_error"
)

// Error carries a code, a safe human-readable message, optional per-field
// detail for validation failures, and the wrapped cause.
type Error struct {
	code    Code
	message string
	fields  map[string]string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

// NewValidation builds a CodeValidation error with field-level detail.
func NewValidation(message string, fields map[string]string) *Error {
	return &Error{code: CodeValidation, message: message, fields: fields}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Code() Code { return e.code }

// Message returns the safe message without the wrapped cause.
func (e *Error) Message() string { return e.message }

// Fields returns field-level validation detail, or nil.
func (e *Error) Fields() map[string]string { return e.fields }

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.code == code
	}
	return false
}

// Is is a readable alias for HasCode at call sites.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
