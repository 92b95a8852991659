package expediente

// Shared fixtures for the engine tests: records, parsable JWS tokens and a
// stub oracle with call counting.

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	"github.com/gobdigital/firmador/internal/dss"
)

// testFirma returns a base64-encoded compact JWS token that passes the
// structural pre-check. It is not cryptographically valid; the stub oracle
// decides the verdict.
func testFirma(t *testing.T) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","kid":"test-key"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{}`))
	signature := base64.RawURLEncoding.EncodeToString([]byte("signature-bytes"))

	token := header + "." + payload + "." + signature
	return base64.StdEncoding.EncodeToString([]byte(token))
}

// testRecord builds a record with n signed steps. Pass withDocs to attach
// one declared document per step.
func testRecord(t *testing.T, n int, withDocs bool) *Record {
	t.Helper()

	record := &Record{Numero: 123, Anio: 2024, Codigo: "EXP", Letra: "A"}
	for i := 1; i <= n; i++ {
		tramite := Tramite{Secuencia: i, Documentos: []DocumentoRef{}, Firma: testFirma(t)}
		if withDocs {
			hash := ""
			tramite.Documentos = []DocumentoRef{
				{Orden: i, IDDocumento: fmt.Sprintf("DOC-%d", i), Hash: &hash},
			}
		}
		record.Tramites = append(record.Tramites, tramite)
	}
	return record
}

// validSignatureReport builds a diagnostic report with one fully valid
// signature whose chain cites the given certificate id.
func validSignatureReport(certID string) *dss.DiagnosticReport {
	return &dss.DiagnosticReport{
		DiagnosticData: dss.DiagnosticData{
			Signature: []dss.SignatureDiagnostic{
				{
					StructuralValidation: dss.StructuralValidationSet{{Valid: true}},
					BasicSignature:       dss.BasicSignature{SignatureIntact: true, SignatureValid: true},
					ClaimedSigningTime:   "2020-01-05T12:00:00Z",
					ChainItem:            []dss.ChainItem{{Certificate: certID}},
					SignerRole:           []dss.SignerRole{{Role: "Perez, Director, Mesa de Entradas"}},
				},
			},
			Certificate: []dss.CertificateDiagnostic{
				{ID: certID, CommonName: "Juan Perez", OrganizationName: "Gobierno"},
			},
		},
	}
}

// invalidSignatureReport builds a report whose signature fails the
// cryptographic check.
func invalidSignatureReport() *dss.DiagnosticReport {
	report := validSignatureReport("C-AAAA")
	report.DiagnosticData.Signature[0].BasicSignature.SignatureValid = false
	return report
}

// stubOracle is an OracleClient with scripted responses and call counters.
type stubOracle struct {
	mu sync.Mutex

	detachedCalls int
	pdfCalls      int

	// detachedFn decides the response per detached-signature call; nil
	// means "always valid".
	detachedFn func(call int) (*dss.DiagnosticReport, error)

	// pdfFn decides the response per PDF call; nil means "no signatures".
	pdfFn func(call int) (*dss.DiagnosticReport, error)
}

func (o *stubOracle) ValidateDetachedSignature(ctx context.Context, original []byte, signatureB64 string) (*dss.DiagnosticReport, error) {
	o.mu.Lock()
	o.detachedCalls++
	call := o.detachedCalls
	o.mu.Unlock()

	if o.detachedFn != nil {
		return o.detachedFn(call)
	}
	return validSignatureReport("C-AAAA"), nil
}

func (o *stubOracle) ValidatePdfSignature(ctx context.Context, pdf []byte) (*dss.DiagnosticReport, error) {
	o.mu.Lock()
	o.pdfCalls++
	call := o.pdfCalls
	o.mu.Unlock()

	if o.pdfFn != nil {
		return o.pdfFn(call)
	}
	return &dss.DiagnosticReport{}, nil
}

func (o *stubOracle) detachedCallCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.detachedCalls
}

// stubTrust is a TrustChecker with a fixed answer.
type stubTrust bool

func (s stubTrust) ValidateChain(chain []dss.ChainItem) bool { return bool(s) }
