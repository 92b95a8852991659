package server

// Common infrastructure handlers: health, version and audit lookups.

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gobdigital/firmador/internal/api"
	"github.com/gobdigital/firmador/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	api.RespondWithJSONPayload(w, http.StatusOK, version.Get())
}

// handleListValidationRuns returns the recorded runs for one expediente,
// newest first. Requires the audit store.
func (s *Server) handleListValidationRuns(w http.ResponseWriter, r *http.Request) {
	expedienteID := r.URL.Query().Get("expediente")
	if expedienteID == "" {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("expediente query parameter is required"))
		return
	}

	runs, err := s.audit.ListValidationRuns(r.Context(), expedienteID, parseLimitParam(r))
	if err != nil {
		s.logger.Error("failed to list validation runs", slog.String("error", err.Error()))
		api.RespondWithErrorResponse(w, r, api.NewInternalError("failed to list validation runs"))
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, map[string]any{
		"status": true,
		"runs":   runs,
	})
}

// handleGetValidationRun returns one recorded run by id.
func (s *Server) handleGetValidationRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("id must be a UUID"))
		return
	}

	run, err := s.audit.GetValidationRun(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get validation run", slog.String("error", err.Error()))
		api.RespondWithErrorResponse(w, r, api.NewInternalError("validation run not found"))
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, map[string]any{
		"status": true,
		"run":    run,
	})
}
