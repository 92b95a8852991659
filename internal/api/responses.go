// Package api defines the HTTP response envelope shared by the firmador
// endpoints and maps internal errors to client-facing error responses.
//
// Validation endpoints have a special contract: they answer HTTP 200 with a
// structured report even when validation finds problems or cannot run, so
// "validation ran and failed" and "validation could not run" are both
// inspectable results. Error responses are reserved for malformed requests,
// refused signing operations and infrastructure failures.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/gobdigital/firmador/internal/dss"
	"github.com/gobdigital/firmador/internal/firma"
	"github.com/gobdigital/firmador/internal/logger"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Status bool `json:"status"`

	// StatusCode is the HTTP status returned with the response.
	StatusCode int `json:"statusCode"`

	// Code is the internal error code (e.g. FCHN, ORCL).
	Code string `json:"code"`

	// Message is the sanitized error description.
	Message string `json:"message"`

	// CorrelationReference is the request id for support lookups.
	CorrelationReference string `json:"correlationReference,omitempty"`

	// ErrorDateTime is the moment the error response was produced.
	ErrorDateTime string `json:"errorDateTime"`
}

// RespondWithJSONPayload sends a JSON response with the given status code.
func RespondWithJSONPayload(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// headers are already written, only log
			slog.Error("Failed to encode JSON response",
				slog.String("error", err.Error()))
		}
	}
}

// RespondWithErrorResponse maps an internal error to the error envelope and
// sends it. Full error details are logged server-side; the client receives
// the sanitized message.
func RespondWithErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	resp := mapErrorToResponse(err, r)

	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Warn("Request failed",
		slog.String("error", err.Error()),
		slog.Int("status_code", resp.StatusCode),
		slog.String("code", resp.Code),
		slog.String("request_id", resp.CorrelationReference),
	)

	RespondWithJSONPayload(w, resp.StatusCode, resp)
}

// apiError is used for transport-level failures raised by the middleware.
type apiError struct {
	statusCode int
	code       string
	message    string
}

func (e *apiError) Error() string { return e.message }

// NewRateLimitError creates a 429 error.
func NewRateLimitError(msg string) error {
	return &apiError{statusCode: http.StatusTooManyRequests, code: "RATE", message: msg}
}

// NewRequestTooLargeError creates a 413 error.
func NewRequestTooLargeError(msg string) error {
	return &apiError{statusCode: http.StatusRequestEntityTooLarge, code: "SIZE", message: msg}
}

// NewMalformedRequestError creates a 400 error.
func NewMalformedRequestError(msg string) error {
	return &apiError{statusCode: http.StatusBadRequest, code: "MALF", message: msg}
}

// NewInternalError creates a 500 error with a sanitized message.
func NewInternalError(msg string) error {
	return &apiError{statusCode: http.StatusInternalServerError, code: "INT", message: msg}
}

func mapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	base := func(statusCode int, code, message string) *ErrorResponse {
		return &ErrorResponse{
			Status:               false,
			StatusCode:           statusCode,
			Code:                 code,
			Message:              message,
			CorrelationReference: requestID,
			ErrorDateTime:        time.Now().UTC().Format(time.RFC3339),
		}
	}

	var transportErr *apiError
	if errors.As(err, &transportErr) {
		return base(transportErr.statusCode, transportErr.code, transportErr.message)
	}

	var signErr *firma.SigningError
	if errors.As(err, &signErr) {
		switch signErr.Code() {
		case firma.ErrCodeInput:
			return base(http.StatusBadRequest, string(signErr.Code()), signErr.Error())
		case firma.ErrCodeChain:
			// a broken prior chain is a refused operation, not a malformed request
			return base(http.StatusConflict, string(signErr.Code()), signErr.Error())
		default:
			return base(http.StatusBadGateway, string(signErr.Code()), "signing service unavailable")
		}
	}

	var dssErr *dss.DSSError
	if errors.As(err, &dssErr) {
		switch dssErr.Code() {
		case dss.ErrCodeRequest:
			return base(http.StatusBadRequest, string(dssErr.Code()), dssErr.Error())
		default:
			return base(http.StatusBadGateway, string(dssErr.Code()), "validation service unavailable")
		}
	}

	// unmapped error types indicate a bug; respond with a generic 500
	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Error("BUG: unmapped error type in mapErrorToResponse",
		slog.String("error", err.Error()),
		slog.String("request_id", requestID),
	)
	return base(http.StatusInternalServerError, "INT", "An internal error occurred")
}
