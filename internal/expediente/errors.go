package expediente

import (
	"fmt"
)

// Error represents a structured error from the expediente package.
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeInput indicates malformed input: unreadable archive, missing or
	// unparsable index, invalid record structure.
	ErrCodeInput ErrorCode = "BINP" // bad input

	// ErrCodeSignature indicates a missing or structurally unusable step
	// signature (distinct from a cryptographically invalid one, which is a
	// verdict, not an error).
	ErrCodeSignature ErrorCode = "BSIG" // bad signature

	// ErrCodeOracle indicates the validation oracle could not produce a
	// report for an item (connectivity or unexpected status).
	ErrCodeOracle ErrorCode = "ORCL"

	// ErrCodeInternal indicates internal processing failures.
	ErrCodeInternal ErrorCode = "INT"
)

// ValidationError represents a structured error from the expediente package.
type ValidationError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *ValidationError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *ValidationError) Code() ErrorCode { return e.code }
func (e *ValidationError) Unwrap() error   { return e.wrapped }

// Message returns the human-readable part of the error, without the code
// prefix. Caller-facing report messages embed this.
func (e *ValidationError) Message() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

// NewInputError creates an input error for malformed archives or records.
func NewInputError(msg string) error {
	return &ValidationError{code: ErrCodeInput, message: msg}
}

// WrapInputError wraps an existing error as an input error.
func WrapInputError(err error, msg string) error {
	return &ValidationError{code: ErrCodeInput, message: msg, wrapped: err}
}

// NewSignatureError creates an error for missing/unusable step signatures.
func NewSignatureError(msg string) error {
	return &ValidationError{code: ErrCodeSignature, message: msg}
}

// WrapSignatureError wraps an existing error as a signature error.
func WrapSignatureError(err error, msg string) error {
	return &ValidationError{code: ErrCodeSignature, message: msg, wrapped: err}
}

// NewOracleError creates an error for failed oracle calls.
func NewOracleError(msg string) error {
	return &ValidationError{code: ErrCodeOracle, message: msg}
}

// WrapOracleError wraps an existing error as an oracle error.
func WrapOracleError(err error, msg string) error {
	return &ValidationError{code: ErrCodeOracle, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
func NewInternalError(msg string) error {
	return &ValidationError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &ValidationError{code: ErrCodeInternal, message: msg, wrapped: err}
}
