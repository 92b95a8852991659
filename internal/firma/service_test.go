package firma

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/gobdigital/firmador/internal/dss"
	"github.com/gobdigital/firmador/internal/expediente"
)

// stubSigner scripts the two DSS signing phases and records the requests.
type stubSigner struct {
	dataToSignReq   *dss.JAdESSignRequest
	signDocumentReq *dss.JAdESSignRequest

	dataToSignErr   error
	signDocumentErr error
}

func (s *stubSigner) GetDataToSignJAdES(ctx context.Context, req dss.JAdESSignRequest) (*dss.SignOneDocumentResponse, error) {
	s.dataToSignReq = &req
	if s.dataToSignErr != nil {
		return nil, s.dataToSignErr
	}
	return &dss.SignOneDocumentResponse{Bytes: "ZGlnZXN0", Name: "toBeSigned"}, nil
}

func (s *stubSigner) SignDocumentJAdES(ctx context.Context, req dss.JAdESSignRequest) (*dss.SignOneDocumentResponse, error) {
	s.signDocumentReq = &req
	if s.signDocumentErr != nil {
		return nil, s.signDocumentErr
	}
	return &dss.SignOneDocumentResponse{Bytes: "dG9rZW4=", Name: "document.json"}, nil
}

// stubChain answers prior-chain validation with a fixed report.
type stubChain struct {
	conclusion bool
	message    string
	calls      int
}

func (c *stubChain) ValidatePriorChain(ctx context.Context, record *expediente.Record) *expediente.ValidationReport {
	c.calls++
	return &expediente.ValidationReport{Conclusion: c.conclusion, Message: c.message}
}

func newTestService(signer *stubSigner, chain *stubChain) *Service {
	svc := NewService(signer, chain, slog.Default())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

// unsignedIndex builds a base64 record whose last step carries no signature.
func unsignedIndex(t *testing.T, lastSigned bool) string {
	t.Helper()

	record := &expediente.Record{
		Numero: 123, Anio: 2024, Codigo: "EXP", Letra: "A",
		Tramites: []expediente.Tramite{
			{Secuencia: 1, Documentos: []expediente.DocumentoRef{}, Firma: "Zmlyc3Q="},
			{Secuencia: 2, Documentos: []expediente.DocumentoRef{}},
		},
	}
	if lastSigned {
		record.Tramites[1].Firma = "c2Vjb25k"
	}

	raw, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("failed to marshal record: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestInitHappyPath(t *testing.T) {
	signer := &stubSigner{}
	chain := &stubChain{conclusion: true}
	svc := newTestService(signer, chain)

	resp, err := svc.Init(context.Background(), InitRequest{
		IndexB64:     unsignedIndex(t, false),
		Certificates: dss.SigningCertificates{Certificate: "CERT"},
		Name:         "Perez",
		Stamp:        "Director",
		Area:         "Mesa de Entradas",
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if resp.ExpedienteID != "123/2024/EXP/A" {
		t.Errorf("got expediente id %q", resp.ExpedienteID)
	}
	if resp.DataToSignB64 != "ZGlnZXN0" {
		t.Errorf("got data to sign %q", resp.DataToSignB64)
	}
	if resp.SigningTime != svc.now().UnixMilli() {
		t.Errorf("got signing time %d", resp.SigningTime)
	}
	if chain.calls != 1 {
		t.Errorf("prior chain validated %d times, want 1", chain.calls)
	}
	if signer.dataToSignReq.SignerRole != "Perez, Director, Mesa de Entradas" {
		t.Errorf("got signer role %q", signer.dataToSignReq.SignerRole)
	}
	if signer.dataToSignReq.SigningTime.UnixMilli() != resp.SigningTime {
		t.Error("signing time sent to DSS must match the response")
	}
}

func TestInitRefusedOnBrokenChain(t *testing.T) {
	signer := &stubSigner{}
	chain := &stubChain{conclusion: false, message: "Trámite 1: la firma digital es inválida."}
	svc := newTestService(signer, chain)

	_, err := svc.Init(context.Background(), InitRequest{IndexB64: unsignedIndex(t, false)})

	var serr *SigningError
	if !errors.As(err, &serr) {
		t.Fatalf("got %T, want *SigningError", err)
	}
	if serr.Code() != ErrCodeChain {
		t.Errorf("got code %q, want %q", serr.Code(), ErrCodeChain)
	}
	if serr.Expediente() != "123/2024/EXP/A" {
		t.Errorf("got expediente %q", serr.Expediente())
	}
	if signer.dataToSignReq != nil {
		t.Error("DSS must not be asked for data to sign when signing is refused")
	}
}

func TestInitRejectsSignedLastStep(t *testing.T) {
	chain := &stubChain{conclusion: true}
	svc := newTestService(&stubSigner{}, chain)

	_, err := svc.Init(context.Background(), InitRequest{IndexB64: unsignedIndex(t, true)})

	var serr *SigningError
	if !errors.As(err, &serr) {
		t.Fatalf("got %T, want *SigningError", err)
	}
	if serr.Code() != ErrCodeInput {
		t.Errorf("got code %q, want %q", serr.Code(), ErrCodeInput)
	}
	if chain.calls != 0 {
		t.Error("input validation must precede chain validation")
	}
}

func TestInitInputErrors(t *testing.T) {
	svc := newTestService(&stubSigner{}, &stubChain{conclusion: true})

	tests := []struct {
		name  string
		index string
	}{
		{"missing index", ""},
		{"not base64", "!!not-base64!!"},
		{"not a record", base64.StdEncoding.EncodeToString([]byte(`{"tramites":[]}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Init(context.Background(), InitRequest{IndexB64: tt.index})

			var serr *SigningError
			if !errors.As(err, &serr) {
				t.Fatalf("got %T, want *SigningError", err)
			}
			if serr.Code() != ErrCodeInput {
				t.Errorf("got code %q, want %q", serr.Code(), ErrCodeInput)
			}
		})
	}
}

func TestInitDSSFailure(t *testing.T) {
	signer := &stubSigner{dataToSignErr: dss.NewConnectionError("connection refused")}
	svc := newTestService(signer, &stubChain{conclusion: true})

	_, err := svc.Init(context.Background(), InitRequest{IndexB64: unsignedIndex(t, false)})

	var serr *SigningError
	if !errors.As(err, &serr) {
		t.Fatalf("got %T, want *SigningError", err)
	}
	if serr.Code() != ErrCodeSigning {
		t.Errorf("got code %q, want %q", serr.Code(), ErrCodeSigning)
	}
}

func TestEndHappyPath(t *testing.T) {
	signer := &stubSigner{}
	svc := newTestService(signer, &stubChain{conclusion: true})

	signingTime := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	resp, err := svc.End(context.Background(), EndRequest{
		IndexB64:          unsignedIndex(t, false),
		Name:              "Perez",
		Stamp:             "Director",
		Area:              "Mesa de Entradas",
		SignatureValueB64: "c2lnbmVk",
		SigningTime:       signingTime,
	})
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}

	last := resp.Index.Tramites[len(resp.Index.Tramites)-1]
	if last.Firma != "dG9rZW4=" {
		t.Errorf("got firma %q, signature token not attached", last.Firma)
	}
	if resp.Index.Tramites[0].Firma != "Zmlyc3Q=" {
		t.Error("earlier step signature must stay untouched")
	}
	// the end phase rebuilds the same signature parameters as init
	if signer.signDocumentReq.SigningTime.UnixMilli() != signingTime {
		t.Error("echoed signing time not carried to DSS")
	}
	if signer.signDocumentReq.SignatureValueB64 != "c2lnbmVk" {
		t.Error("signature value not carried to DSS")
	}
}

func TestEndMissingSignatureValue(t *testing.T) {
	svc := newTestService(&stubSigner{}, &stubChain{conclusion: true})

	_, err := svc.End(context.Background(), EndRequest{IndexB64: unsignedIndex(t, false)})

	var serr *SigningError
	if !errors.As(err, &serr) {
		t.Fatalf("got %T, want *SigningError", err)
	}
	if serr.Code() != ErrCodeInput {
		t.Errorf("got code %q, want %q", serr.Code(), ErrCodeInput)
	}
}

func TestEndRejectsSignedLastStep(t *testing.T) {
	svc := newTestService(&stubSigner{}, &stubChain{conclusion: true})

	_, err := svc.End(context.Background(), EndRequest{
		IndexB64:          unsignedIndex(t, true),
		SignatureValueB64: "c2lnbmVk",
	})

	var serr *SigningError
	if !errors.As(err, &serr) {
		t.Fatalf("got %T, want *SigningError", err)
	}
	if serr.Code() != ErrCodeInput {
		t.Errorf("got code %q, want %q", serr.Code(), ErrCodeInput)
	}
}

func TestEndDSSFailure(t *testing.T) {
	signer := &stubSigner{signDocumentErr: dss.NewSigningError("key mismatch")}
	svc := newTestService(signer, &stubChain{conclusion: true})

	_, err := svc.End(context.Background(), EndRequest{
		IndexB64:          unsignedIndex(t, false),
		SignatureValueB64: "c2lnbmVk",
	})

	var serr *SigningError
	if !errors.As(err, &serr) {
		t.Fatalf("got %T, want *SigningError", err)
	}
	if serr.Code() != ErrCodeSigning {
		t.Errorf("got code %q, want %q", serr.Code(), ErrCodeSigning)
	}
}
