package server

// Signing endpoint handlers for the two-phase remote-token JAdES flow.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gobdigital/firmador/internal/api"
	"github.com/gobdigital/firmador/internal/firma"
	"github.com/gobdigital/firmador/internal/logger"
	"github.com/gobdigital/firmador/internal/metrics"
)

// handleSignJadesInit starts a signing operation: the prior chain is
// revalidated and DSS computes the digest the client token must sign.
func (s *Server) handleSignJadesInit(w http.ResponseWriter, r *http.Request) {
	var req firma.InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("invalid JSON body"))
		return
	}

	resp, err := s.signing.Init(r.Context(), req)
	metrics.RecordSigningOperation("init", err)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	logger.ContextWithLogAttrs(r.Context(),
		slog.String("expediente", resp.ExpedienteID))

	api.RespondWithJSONPayload(w, http.StatusOK, resp)
}

// handleSignJadesEnd completes a signing operation with the token-produced
// signature value and returns the signed record.
func (s *Server) handleSignJadesEnd(w http.ResponseWriter, r *http.Request) {
	var req firma.EndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("invalid JSON body"))
		return
	}

	resp, err := s.signing.End(r.Context(), req)
	metrics.RecordSigningOperation("end", err)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	logger.ContextWithLogAttrs(r.Context(),
		slog.String("expediente", resp.ExpedienteID))

	api.RespondWithJSONPayload(w, http.StatusOK, resp)
}
