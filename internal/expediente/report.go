package expediente

// report.go turns raw DSS diagnostic reports into normalized per-signature
// verdicts. All of the report's loosely-shaped fields are resolved here, in
// one place: structural validation (object-or-list) is normalized by the dss
// package at decode time, signing times are shifted to local time and
// compared against "now", and certificate metadata is cross-matched from the
// report's certificate set.

import (
	"time"

	"github.com/gobdigital/firmador/internal/dss"
)

// claimedTimeLayout is the timestamp format DSS uses for signing times.
const claimedTimeLayout = "2006-01-02T15:04:05Z"

// localTimeOffset shifts claimed UTC signing times to the local timezone
// before comparing against the current time (UTC-3).
const localTimeOffset = -3 * time.Hour

// TrustChecker decides whether a signature's certificate chain anchors in
// the configured trust store. Implemented by TrustValidator.
type TrustChecker interface {
	ValidateChain(chain []dss.ChainItem) bool
}

// CertData is the subject metadata of the signer certificate matched to a
// signature. Zero value when no certificate in the report matched.
type CertData struct {
	ID           string `json:"ID,omitempty"`
	SerialNumber string `json:"SN,omitempty"`
	CommonName   string `json:"CN,omitempty"`
	Organization string `json:"ON,omitempty"`
	OrgUnit      string `json:"OU,omitempty"`
	IssuerDN     string `json:"IssuerDN,omitempty"`
	Country      string `json:"Country,omitempty"`
	NotAfter     string `json:"NotAfter,omitempty"`
	NotBefore    string `json:"NotBefore,omitempty"`
	Email        string `json:"Email,omitempty"`
}

// SignatureVerdict is the normalized result of one signature check.
type SignatureVerdict struct {

	// Valid is the combined verdict: structurally valid AND intact AND
	// cryptographically valid AND claimed signing time not in the future.
	Valid bool `json:"valid"`

	// CertsValid reports whether the chain matched a trust anchor.
	CertsValid bool `json:"certs_valid"`

	// SigningTime is the claimed signing time shifted to local time, with
	// an "INVALIDA" suffix when the claim lies in the future.
	SigningTime string `json:"signingTime"`

	// SignerRole is the first claimed signer role, if any.
	SignerRole string `json:"signer_role,omitempty"`

	// Chain lists the certificate references of the signature's chain.
	Chain []dss.ChainItem `json:"certs"`

	// CertData is the matched signer certificate metadata, possibly empty.
	CertData CertData `json:"cert_data"`
}

// Interpreter converts diagnostic reports into signature verdicts.
type Interpreter struct {
	trust TrustChecker

	// now is injectable for tests.
	now func() time.Time
}

// NewInterpreter creates a report interpreter using the given trust checker.
func NewInterpreter(trust TrustChecker) *Interpreter {
	return &Interpreter{trust: trust, now: time.Now}
}

// Interpret produces one verdict per signature in the report. An empty
// report yields an empty slice - "no signatures found" is a normal outcome.
func (it *Interpreter) Interpret(report *dss.DiagnosticReport) []SignatureVerdict {
	signatures := report.Signatures()
	verdicts := make([]SignatureVerdict, 0, len(signatures))

	for _, sig := range signatures {
		certsValid := it.trust.ValidateChain(sig.ChainItem)
		verdicts = append(verdicts, it.interpretSignature(sig, certsValid))
	}

	it.matchCertData(report, verdicts)
	return verdicts
}

// interpretSignature builds the verdict for one signature entry.
func (it *Interpreter) interpretSignature(sig dss.SignatureDiagnostic, certsValid bool) SignatureVerdict {
	now := it.now()

	// An unparsable or absent claimed time counts as infinitely far in the
	// future: the signature can never validate as time-acceptable, but the
	// remaining fields are still populated best-effort.
	claimed, timeOK := parseClaimedTime(sig.ClaimedSigningTime)
	timeAcceptable := timeOK && claimed.Before(now)

	valid := sig.StructuralValidation.Valid() &&
		sig.BasicSignature.SignatureIntact &&
		sig.BasicSignature.SignatureValid &&
		timeAcceptable

	signingTime := displayTime(sig.ClaimedSigningTime)
	if !timeAcceptable {
		signingTime += " INVALIDA"
	}

	verdict := SignatureVerdict{
		Valid:       valid,
		CertsValid:  certsValid,
		SigningTime: signingTime,
		Chain:       sig.ChainItem,
	}

	// Only the first claimed role is considered.
	if len(sig.SignerRole) > 0 {
		verdict.SignerRole = sig.SignerRole[0].Role
	}
	return verdict
}

// matchCertData attaches subject metadata to each verdict whose first chain
// item identifier matches a certificate in the report's certificate set.
// No match leaves CertData empty rather than failing.
func (it *Interpreter) matchCertData(report *dss.DiagnosticReport, verdicts []SignatureVerdict) {
	for i := range verdicts {
		if len(verdicts[i].Chain) == 0 {
			continue
		}
		wanted := verdicts[i].Chain[0].Certificate

		for _, cert := range report.DiagnosticData.Certificate {
			if cert.ID != wanted {
				continue
			}
			verdicts[i].CertData = CertData{
				ID:           cert.ID,
				SerialNumber: cert.SubjectSerialNumber,
				CommonName:   cert.CommonName,
				Organization: cert.OrganizationName,
				OrgUnit:      cert.OrganizationalUnit,
				IssuerDN:     cert.IssuerDN(),
				Country:      cert.CountryName,
				NotAfter:     displayTime(cert.NotAfter),
				NotBefore:    displayTime(cert.NotBefore),
				Email:        cert.EmailAddress(),
			}
			break
		}
	}
}

// parseClaimedTime parses a claimed signing time and shifts it to local
// time. ok is false when the value does not parse.
func parseClaimedTime(value string) (time.Time, bool) {
	t, err := time.Parse(claimedTimeLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t.Add(localTimeOffset), true
}

// displayTime renders a DSS timestamp in local display form
// ("2006-01-02 15:04:05"). Unparsable values pass through untouched.
func displayTime(value string) string {
	t, err := time.Parse(claimedTimeLayout, value)
	if err != nil {
		return value
	}
	return t.Add(localTimeOffset).Format("2006-01-02 15:04:05")
}
