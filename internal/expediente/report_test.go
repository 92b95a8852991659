package expediente

import (
	"strings"
	"testing"
	"time"

	"github.com/gobdigital/firmador/internal/dss"
)

// fixedNow pins the interpreter clock for deterministic time comparisons.
var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestInterpreter(trusted bool) *Interpreter {
	it := NewInterpreter(stubTrust(trusted))
	it.now = func() time.Time { return fixedNow }
	return it
}

func TestInterpretValidSignature(t *testing.T) {
	verdicts := newTestInterpreter(true).Interpret(validSignatureReport("C-AAAA"))

	if len(verdicts) != 1 {
		t.Fatalf("got %d verdicts, want 1", len(verdicts))
	}
	v := verdicts[0]

	if !v.Valid {
		t.Error("signature should be valid")
	}
	if !v.CertsValid {
		t.Error("chain should be trusted")
	}
	// 2020-01-05T12:00:00Z shifted -3h
	if v.SigningTime != "2020-01-05 09:00:00" {
		t.Errorf("got signing time %q", v.SigningTime)
	}
	if v.SignerRole != "Perez, Director, Mesa de Entradas" {
		t.Errorf("got signer role %q", v.SignerRole)
	}
	if v.CertData.CommonName != "Juan Perez" {
		t.Errorf("cert data not matched, got CN %q", v.CertData.CommonName)
	}
}

func TestInterpretValidityMatrix(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dss.SignatureDiagnostic)
		want   bool
	}{
		{"all checks pass", func(s *dss.SignatureDiagnostic) {}, true},
		{"structurally invalid", func(s *dss.SignatureDiagnostic) {
			s.StructuralValidation = dss.StructuralValidationSet{{Valid: false}}
		}, false},
		{"not intact", func(s *dss.SignatureDiagnostic) {
			s.BasicSignature.SignatureIntact = false
		}, false},
		{"not valid", func(s *dss.SignatureDiagnostic) {
			s.BasicSignature.SignatureValid = false
		}, false},
		{"future signing time", func(s *dss.SignatureDiagnostic) {
			s.ClaimedSigningTime = "2030-01-01T00:00:00Z"
		}, false},
		{"any structural element valid suffices", func(s *dss.SignatureDiagnostic) {
			s.StructuralValidation = dss.StructuralValidationSet{{Valid: false}, {Valid: true}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := validSignatureReport("C-AAAA")
			tt.mutate(&report.DiagnosticData.Signature[0])

			verdicts := newTestInterpreter(true).Interpret(report)
			if got := verdicts[0].Valid; got != tt.want {
				t.Errorf("got valid=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestInterpretUnparsableTime(t *testing.T) {
	report := validSignatureReport("C-AAAA")
	report.DiagnosticData.Signature[0].ClaimedSigningTime = "no-fecha"

	verdicts := newTestInterpreter(true).Interpret(report)
	v := verdicts[0]

	// an unparsable claim counts as infinitely in the future
	if v.Valid {
		t.Error("signature with unparsable time must not validate")
	}
	if !strings.HasSuffix(v.SigningTime, " INVALIDA") {
		t.Errorf("got signing time %q, want INVALIDA suffix", v.SigningTime)
	}
	if !strings.HasPrefix(v.SigningTime, "no-fecha") {
		t.Errorf("raw value should pass through, got %q", v.SigningTime)
	}
	// other fields are still populated best-effort
	if v.SignerRole == "" {
		t.Error("signer role should still be populated")
	}
}

func TestInterpretFutureTimeFlagged(t *testing.T) {
	report := validSignatureReport("C-AAAA")
	report.DiagnosticData.Signature[0].ClaimedSigningTime = "2030-01-01T00:00:00Z"

	verdicts := newTestInterpreter(true).Interpret(report)

	if !strings.HasSuffix(verdicts[0].SigningTime, " INVALIDA") {
		t.Errorf("got %q, want INVALIDA suffix", verdicts[0].SigningTime)
	}
}

func TestInterpretCertDataNoMatch(t *testing.T) {
	report := validSignatureReport("C-AAAA")
	report.DiagnosticData.Certificate[0].ID = "C-OTHER"

	verdicts := newTestInterpreter(true).Interpret(report)

	if verdicts[0].CertData.CommonName != "" {
		t.Error("no certificate should have matched")
	}
	if !verdicts[0].Valid {
		t.Error("an unmatched certificate must not fail the signature")
	}
}

func TestInterpretUntrustedChain(t *testing.T) {
	verdicts := newTestInterpreter(false).Interpret(validSignatureReport("C-AAAA"))

	if verdicts[0].CertsValid {
		t.Error("chain should be untrusted")
	}
	if !verdicts[0].Valid {
		t.Error("trust is reported separately from signature validity")
	}
}

func TestInterpretEmptyReport(t *testing.T) {
	verdicts := newTestInterpreter(true).Interpret(&dss.DiagnosticReport{})

	if len(verdicts) != 0 {
		t.Errorf("got %d verdicts for an empty report, want 0", len(verdicts))
	}
}
