package firma

import (
	"fmt"
)

// Error represents a structured error from the firma package.
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeInput indicates a malformed signing request.
	ErrCodeInput ErrorCode = "FINP"

	// ErrCodeChain indicates the prior signature chain failed validation
	// and the signing operation was refused.
	ErrCodeChain ErrorCode = "FCHN"

	// ErrCodeSigning indicates a DSS signing call failed.
	ErrCodeSigning ErrorCode = "FSGN"
)

// SigningError represents a structured error from the firma package.
type SigningError struct {
	code       ErrorCode
	expediente string
	message    string
	wrapped    error
}

func (e *SigningError) Error() string {
	msg := e.message
	if e.expediente != "" {
		msg = fmt.Sprintf("expediente %s: %s", e.expediente, e.message)
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, msg, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.code, msg)
}

func (e *SigningError) Code() ErrorCode { return e.code }
func (e *SigningError) Unwrap() error   { return e.wrapped }

// Expediente returns the case identifier the error relates to, if known.
func (e *SigningError) Expediente() string { return e.expediente }

// NewInputError creates an error for malformed signing requests.
func NewInputError(msg string) error {
	return &SigningError{code: ErrCodeInput, message: msg}
}

// WrapInputError wraps an existing error as an input error.
func WrapInputError(err error, msg string) error {
	return &SigningError{code: ErrCodeInput, message: msg, wrapped: err}
}

// NewChainError creates an error for a refused signing operation.
func NewChainError(expediente, detail string) error {
	return &SigningError{
		code:       ErrCodeChain,
		expediente: expediente,
		message:    "prior signature chain failed validation: " + detail,
	}
}

// WrapSigningError wraps a DSS failure during either signing phase.
func WrapSigningError(err error, expediente, msg string) error {
	return &SigningError{code: ErrCodeSigning, expediente: expediente, message: msg, wrapped: err}
}
