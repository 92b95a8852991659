package server

// Validation endpoint handlers.
//
// These endpoints answer HTTP 200 with a structured validation report even
// when validation finds problems or cannot run; only transport-level
// failures (oversized body, rate limit, unreadable request) produce error
// status codes.

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gobdigital/firmador/internal/api"
	"github.com/gobdigital/firmador/internal/expediente"
	"github.com/gobdigital/firmador/internal/logger"
	"github.com/gobdigital/firmador/internal/metrics"
	"github.com/gobdigital/firmador/internal/store"
)

// validationResponse is the envelope every validation endpoint returns.
type validationResponse struct {
	Status     bool                         `json:"status"`
	Validation *expediente.ValidationReport `json:"validation"`
}

// handleValidateExpediente validates a filed case bundle (archive mode).
//
// The ZIP is submitted either as a multipart upload in the "file" field or
// as the raw request body.
func (s *Server) handleValidateExpediente(w http.ResponseWriter, r *http.Request) {
	zipData, err := readArchiveUpload(r)
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("could not read archive upload: "+err.Error()))
		return
	}

	start := time.Now()
	report := s.engine.ValidateArchive(r.Context(), zipData)
	metrics.RecordValidation(store.ModeArchive, report.Conclusion, time.Since(start))

	s.recordAudit(r, store.ModeArchive, report)

	logger.ContextWithLogAttrs(r.Context(),
		slog.String("expediente", report.ExpedienteID),
		slog.Bool("conclusion", report.Conclusion),
	)

	api.RespondWithJSONPayload(w, http.StatusOK, validationResponse{Status: true, Validation: report})
}

// validateJadesRequest is the body of POST /validation/jades.
type validateJadesRequest struct {

	// IndexB64 is the base64-encoded record log.
	IndexB64 string `json:"index"`

	// Signature is the current step's detached signature. When empty the
	// last step's own firma is used.
	Signature string `json:"signature"`
}

// handleValidateJades validates a record's signature chain in sequential
// fail-fast mode.
func (s *Server) handleValidateJades(w http.ResponseWriter, r *http.Request) {
	var req validateJadesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("invalid JSON body"))
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.IndexB64)
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("index is not valid base64"))
		return
	}

	record, err := expediente.ParseRecord(raw)
	if err != nil {
		report := expediente.FailureReport("La validación fue procesada correctamente pero el índice no es un expediente válido")
		api.RespondWithJSONPayload(w, http.StatusOK, validationResponse{Status: true, Validation: report})
		return
	}

	signature := req.Signature
	if signature == "" {
		signature = record.Tramites[len(record.Tramites)-1].Firma
	}

	start := time.Now()
	report := s.engine.ValidateRecordChain(r.Context(), record, signature)
	metrics.RecordValidation(store.ModeSequential, report.Conclusion, time.Since(start))

	s.recordAudit(r, store.ModeSequential, report)

	logger.ContextWithLogAttrs(r.Context(),
		slog.String("expediente", report.ExpedienteID),
		slog.Bool("conclusion", report.Conclusion),
	)

	api.RespondWithJSONPayload(w, http.StatusOK, validationResponse{Status: true, Validation: report})
}

// validatePDFsRequest is the body of POST /validation/pdfs.
type validatePDFsRequest struct {
	PDFs []pdfUpload `json:"pdfs"`
}

type pdfUpload struct {
	PDFB64      string `json:"pdf"`
	IDDocumento string `json:"id_documento"`
}

// pdfValidationResult is the per-document outcome of /validation/pdfs.
type pdfValidationResult struct {
	IDDocumento string                        `json:"id_documento"`
	Signatures  []expediente.SignatureVerdict `json:"signatures"`
	Error       string                        `json:"error,omitempty"`
}

// handleValidatePDFs checks the embedded signatures of standalone PDFs.
func (s *Server) handleValidatePDFs(w http.ResponseWriter, r *http.Request) {
	var req validatePDFsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("invalid JSON body"))
		return
	}
	if len(req.PDFs) == 0 {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("pdfs list is empty"))
		return
	}

	results := make([]pdfValidationResult, 0, len(req.PDFs))
	for _, upload := range req.PDFs {
		result := pdfValidationResult{IDDocumento: upload.IDDocumento, Signatures: []expediente.SignatureVerdict{}}

		pdf, err := base64.StdEncoding.DecodeString(upload.PDFB64)
		if err != nil {
			result.Error = "el PDF no es base64 válido"
			results = append(results, result)
			continue
		}

		verdicts, err := s.engine.ValidatePDF(r.Context(), pdf)
		if err != nil {
			result.Error = "no se pudo validar el PDF"
			results = append(results, result)
			continue
		}
		result.Signatures = verdicts
		results = append(results, result)
	}

	api.RespondWithJSONPayload(w, http.StatusOK, map[string]any{
		"status":  true,
		"results": results,
	})
}

// recordAudit persists the validation outcome when a database is configured.
// Audit failures are logged, never surfaced to the caller.
func (s *Server) recordAudit(r *http.Request, mode string, report *expediente.ValidationReport) {
	if s.audit == nil {
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		s.logger.Error("failed to serialize validation report for audit",
			slog.String("error", err.Error()))
		return
	}

	id, err := s.audit.RecordValidationRun(r.Context(), store.ValidationRun{
		ExpedienteID: report.ExpedienteID,
		Mode:         mode,
		Conclusion:   report.Conclusion,
		Message:      report.Message,
		Report:       payload,
	})
	if err != nil {
		s.logger.Error("failed to record validation run",
			slog.String("error", err.Error()))
		return
	}

	logger.ContextWithLogAttrs(r.Context(), slog.String("validation_run_id", id.String()))
}

// readArchiveUpload extracts the ZIP bytes from a multipart upload ("file"
// field) or the raw request body.
func readArchiveUpload(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}

// parseLimitParam reads a positive "limit" query parameter, 0 when absent.
func parseLimitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
