package dss

import "fmt"

// Error represents a structured error from the dss package.
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeConnection indicates the DSS service could not be reached.
	ErrCodeConnection ErrorCode = "connection"

	// ErrCodeStatus indicates the DSS service answered with a non-200 status.
	ErrCodeStatus ErrorCode = "status"

	// ErrCodeDecode indicates the DSS response body could not be decoded.
	ErrCodeDecode ErrorCode = "decode"

	// ErrCodeRequest indicates the request could not be built or is invalid.
	ErrCodeRequest ErrorCode = "request"

	// ErrCodeSigning indicates a signing operation failed on the DSS side.
	ErrCodeSigning ErrorCode = "signing"
)

// DSSError represents a structured error from the dss package.
type DSSError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *DSSError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *DSSError) Code() ErrorCode { return e.code }
func (e *DSSError) Unwrap() error   { return e.wrapped }

// NewConnectionError creates an error for DSS connectivity failures.
// Callers treat these as soft per-item failures, not process aborts.
func NewConnectionError(msg string) error {
	return &DSSError{code: ErrCodeConnection, message: msg}
}

// WrapConnectionError wraps an existing error as a connectivity failure.
func WrapConnectionError(err error, msg string) error {
	return &DSSError{code: ErrCodeConnection, message: msg, wrapped: err}
}

// NewStatusError creates an error for unexpected DSS response statuses.
func NewStatusError(msg string) error {
	return &DSSError{code: ErrCodeStatus, message: msg}
}

// NewDecodeError creates an error for undecodable DSS responses.
func NewDecodeError(msg string) error {
	return &DSSError{code: ErrCodeDecode, message: msg}
}

// WrapDecodeError wraps an existing error as a decode failure.
func WrapDecodeError(err error, msg string) error {
	return &DSSError{code: ErrCodeDecode, message: msg, wrapped: err}
}

// NewRequestError creates an error for invalid request input.
func NewRequestError(msg string) error {
	return &DSSError{code: ErrCodeRequest, message: msg}
}

// NewSigningError creates an error for failed DSS signing operations.
func NewSigningError(msg string) error {
	return &DSSError{code: ErrCodeSigning, message: msg}
}

// WrapSigningError wraps an existing error as a signing failure.
func WrapSigningError(err error, msg string) error {
	return &DSSError{code: ErrCodeSigning, message: msg, wrapped: err}
}
