package expediente

import (
	"errors"
	"fmt"
	"testing"
)

// check to ensure error code handling has not been broken
func TestValidationError_Code(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{"input", NewInputError("test"), ErrCodeInput},
		{"signature", NewSignatureError("test"), ErrCodeSignature},
		{"oracle", NewOracleError("test"), ErrCodeOracle},
		{"internal", NewInternalError("test"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			if !errors.As(tt.err, &verr) {
				t.Fatal("error is not a ValidationError")
			}
			if verr.Code() != tt.wantCode {
				t.Errorf("Code() = %q, want %q", verr.Code(), tt.wantCode)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	plain := NewInputError("hubo un error al leer el archivo ZIP")
	wrapped := WrapInputError(fmt.Errorf("zip: not a valid zip file"), "hubo un error al leer el archivo ZIP")

	var verr *ValidationError

	errors.As(plain, &verr)
	if verr.Message() != "hubo un error al leer el archivo ZIP" {
		t.Errorf("got %q", verr.Message())
	}
	// Message carries the wrapped detail but never the code prefix
	errors.As(wrapped, &verr)
	if verr.Message() != "hubo un error al leer el archivo ZIP: zip: not a valid zip file" {
		t.Errorf("got %q", verr.Message())
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := WrapOracleError(cause, "oracle unreachable")

	if !errors.Is(err, cause) {
		t.Error("wrapped cause must survive errors.Is")
	}
}
