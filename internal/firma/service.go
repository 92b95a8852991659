// Package firma orchestrates the two-phase remote-token signing of a case
// file's newest step.
//
// The client holds the signing key (a hardware token in the browser); this
// service prepares the DSS signing parameters, gates the operation on a full
// validation of the prior signature chain, and assembles the final record.
// Signing-time state travels with the request between the two phases instead
// of living in service state, so concurrent signings never interfere.
package firma

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/gobdigital/firmador/internal/dss"
	"github.com/gobdigital/firmador/internal/expediente"
)

// Signer is the remote DSS signing contract. Implemented by dss.Client.
type Signer interface {
	GetDataToSignJAdES(ctx context.Context, req dss.JAdESSignRequest) (*dss.SignOneDocumentResponse, error)
	SignDocumentJAdES(ctx context.Context, req dss.JAdESSignRequest) (*dss.SignOneDocumentResponse, error)
}

// ChainValidator gates signing on the integrity of the already-signed steps.
// Implemented by expediente.Engine.
type ChainValidator interface {
	ValidatePriorChain(ctx context.Context, record *expediente.Record) *expediente.ValidationReport
}

// Service runs the init and end phases of a step signing operation.
type Service struct {
	signer Signer
	chain  ChainValidator
	logger *slog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewService creates a signing service.
func NewService(signer Signer, chain ChainValidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{signer: signer, chain: chain, logger: logger, now: time.Now}
}

// InitRequest starts a signing operation for the record's last step.
type InitRequest struct {

	// IndexB64 is the base64-encoded record whose last step is unsigned.
	IndexB64 string `json:"index"`

	// Certificates are the signer's token certificates.
	Certificates dss.SigningCertificates `json:"certificates"`

	// Name, Stamp and Area compose the claimed signer role.
	Name  string `json:"name"`
	Stamp string `json:"stamp"`
	Area  string `json:"area"`
}

// InitResponse carries the digest the client token must sign, plus the
// signing time the end phase must echo so both phases build identical
// signature parameters.
type InitResponse struct {
	ExpedienteID  string `json:"id_expediente"`
	DataToSignB64 string `json:"data_to_sign"`
	SigningTime   int64  `json:"signing_time"`
}

// EndRequest completes a signing operation with the token-produced value.
type EndRequest struct {
	IndexB64          string                  `json:"index"`
	Certificates      dss.SigningCertificates `json:"certificates"`
	Name              string                  `json:"name"`
	Stamp             string                  `json:"stamp"`
	Area              string                  `json:"area"`
	SignatureValueB64 string                  `json:"signature_value"`
	SigningTime       int64                   `json:"signing_time"`
}

// EndResponse carries the signed record.
type EndResponse struct {
	ExpedienteID string             `json:"id_expediente"`
	Index        *expediente.Record `json:"index"`
}

// Init validates the prior chain and asks DSS for the data to sign.
//
// A broken prior chain aborts the operation: appending a new signature to a
// record whose earlier steps no longer verify would certify a corrupt log.
func (s *Service) Init(ctx context.Context, req InitRequest) (*InitResponse, error) {
	record, canonical, err := s.prepareRecord(req.IndexB64)
	if err != nil {
		return nil, err
	}

	if report := s.chain.ValidatePriorChain(ctx, record); !report.Conclusion {
		s.logger.Warn("prior chain validation failed, refusing to sign",
			slog.String("expediente", record.CaseID()),
			slog.String("message", report.Message))
		return nil, NewChainError(record.CaseID(), report.Message)
	}

	signingTime := s.now()
	resp, err := s.signer.GetDataToSignJAdES(ctx, dss.JAdESSignRequest{
		DocumentB64:  base64.StdEncoding.EncodeToString(canonical),
		Certificates: req.Certificates,
		SigningTime:  signingTime,
		SignerRole:   signerRole(req.Name, req.Stamp, req.Area),
	})
	if err != nil {
		return nil, WrapSigningError(err, record.CaseID(), "failed to obtain data to sign")
	}

	s.logger.Info("signing operation initialized",
		slog.String("expediente", record.CaseID()),
		slog.Int("tramites", len(record.Tramites)))

	return &InitResponse{
		ExpedienteID:  record.CaseID(),
		DataToSignB64: resp.Bytes,
		SigningTime:   signingTime.UnixMilli(),
	}, nil
}

// End assembles the detached JAdES token from the token-produced signature
// value and attaches it to the record's last step.
func (s *Service) End(ctx context.Context, req EndRequest) (*EndResponse, error) {
	record, canonical, err := s.prepareRecord(req.IndexB64)
	if err != nil {
		return nil, err
	}
	if req.SignatureValueB64 == "" {
		return nil, NewInputError("signature value is required")
	}

	resp, err := s.signer.SignDocumentJAdES(ctx, dss.JAdESSignRequest{
		DocumentB64:       base64.StdEncoding.EncodeToString(canonical),
		Certificates:      req.Certificates,
		SigningTime:       time.UnixMilli(req.SigningTime),
		SignerRole:        signerRole(req.Name, req.Stamp, req.Area),
		SignatureValueB64: req.SignatureValueB64,
	})
	if err != nil {
		return nil, WrapSigningError(err, record.CaseID(), "failed to assemble signature")
	}

	record.Tramites[len(record.Tramites)-1].Firma = resp.Bytes

	s.logger.Info("signing operation completed",
		slog.String("expediente", record.CaseID()),
		slog.Int("secuencia", record.Tramites[len(record.Tramites)-1].Secuencia))

	return &EndResponse{ExpedienteID: record.CaseID(), Index: record}, nil
}

// prepareRecord decodes the submitted index and produces the canonical bytes
// the signature will cover. The last step must be unsigned: the signature
// being produced covers the record without it.
func (s *Service) prepareRecord(indexB64 string) (*expediente.Record, []byte, error) {
	if indexB64 == "" {
		return nil, nil, NewInputError("index is required")
	}

	raw, err := base64.StdEncoding.DecodeString(indexB64)
	if err != nil {
		return nil, nil, WrapInputError(err, "index is not valid base64")
	}

	record, err := expediente.ParseRecord(raw)
	if err != nil {
		return nil, nil, WrapInputError(err, "index is not a valid record")
	}

	last := &record.Tramites[len(record.Tramites)-1]
	if last.Signed() {
		return nil, nil, NewInputError(fmt.Sprintf("tramite %d is already signed", last.Secuencia))
	}

	canonical, err := expediente.CanonicalRecordBytes(record)
	if err != nil {
		return nil, nil, err
	}
	return record, canonical, nil
}

func signerRole(name, stamp, area string) string {
	return name + ", " + stamp + ", " + area
}
