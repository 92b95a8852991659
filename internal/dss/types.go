package dss

// types.go models the subset of the DSS REST validation contract this service
// consumes. The diagnostic report produced by DSS is large; only the fields
// the report interpreter reads are decoded, unknown fields are ignored.

import (
	"bytes"
	"encoding/json"
)

// RemoteDocument is a document carried in a DSS request (base64 bytes).
// Bytes is a pointer because the contract distinguishes null from "".
type RemoteDocument struct {
	Bytes           *string `json:"bytes"`
	DigestAlgorithm *string `json:"digestAlgorithm"`
	Name            *string `json:"name"`
}

// ValidateSignatureRequest is the body of POST /validation/validateSignature.
type ValidateSignatureRequest struct {
	SignedDocument          RemoteDocument   `json:"signedDocument"`
	OriginalDocuments       []RemoteDocument `json:"originalDocuments"`
	Policy                  *string          `json:"policy"`
	EvidenceRecords         *string          `json:"evidenceRecords"`
	TokenExtractionStrategy string           `json:"tokenExtractionStrategy"`
	SignatureID             *string          `json:"signatureId"`
}

// DiagnosticReport is the DSS validation response.
//
// An empty or missing DiagnosticData means the submitted document carries no
// signatures; that is a normal outcome, not an error.
type DiagnosticReport struct {
	DiagnosticData DiagnosticData `json:"DiagnosticData"`
}

// Signatures returns the signature diagnostics, never nil.
func (r *DiagnosticReport) Signatures() []SignatureDiagnostic {
	if r == nil {
		return nil
	}
	return r.DiagnosticData.Signature
}

// DiagnosticData holds the per-signature and per-certificate diagnostics.
type DiagnosticData struct {
	Signature   []SignatureDiagnostic   `json:"Signature"`
	Certificate []CertificateDiagnostic `json:"Certificate"`
}

// SignatureDiagnostic is one signature entry in the diagnostic report.
type SignatureDiagnostic struct {
	StructuralValidation StructuralValidationSet `json:"StructuralValidation"`
	BasicSignature       BasicSignature          `json:"BasicSignature"`
	ClaimedSigningTime   string                  `json:"ClaimedSigningTime"`
	ChainItem            []ChainItem             `json:"ChainItem"`
	SignerRole           []SignerRole            `json:"SignerRole"`
}

// BasicSignature carries the cryptographic verdicts from DSS.
type BasicSignature struct {
	SignatureIntact bool `json:"SignatureIntact"`
	SignatureValid  bool `json:"SignatureValid"`
}

// ChainItem references a certificate in the report's certificate set.
// The identifier commonly carries a "C-" prefix before the hex fingerprint.
type ChainItem struct {
	Certificate string `json:"Certificate"`
}

// SignerRole is a claimed signer role entry.
type SignerRole struct {
	Role string `json:"Role"`
}

// StructuralValidation is one structural validation verdict.
type StructuralValidation struct {
	Valid    bool     `json:"valid"`
	Messages []string `json:"message"`
}

// StructuralValidationSet normalizes the DSS StructuralValidation field,
// which is serialized either as a single object or as a list depending on
// the signature format. The ambiguity is resolved here, once, at the client
// boundary; consumers only ever see the normalized list form.
type StructuralValidationSet []StructuralValidation

// UnmarshalJSON accepts both the object and the list encoding.
func (s *StructuralValidationSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}

	if trimmed[0] == '[' {
		var list []StructuralValidation
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}

	var single StructuralValidation
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return err
	}
	*s = StructuralValidationSet{single}
	return nil
}

// Valid reports whether any element of the set is structurally valid.
// An empty set is not valid.
func (s StructuralValidationSet) Valid() bool {
	for _, v := range s {
		if v.Valid {
			return true
		}
	}
	return false
}

// CertificateDiagnostic is one certificate entry in the diagnostic report.
type CertificateDiagnostic struct {
	ID                      string                 `json:"Id"`
	SubjectSerialNumber     string                 `json:"SubjectSerialNumber"`
	CommonName              string                 `json:"CommonName"`
	OrganizationName        string                 `json:"OrganizationName"`
	OrganizationalUnit      string                 `json:"OrganizationalUnit"`
	IssuerDistinguishedName []DistinguishedName    `json:"IssuerDistinguishedName"`
	CountryName             string                 `json:"CountryName"`
	NotAfter                string                 `json:"NotAfter"`
	NotBefore               string                 `json:"NotBefore"`
	Email                   string                 `json:"Email"`
	CertificateExtensions   []CertificateExtension `json:"certificateExtensions"`
}

// DistinguishedName is one encoding of an issuer DN. DSS reports the DN in
// several formats; the human-readable one is usually the second entry.
type DistinguishedName struct {
	Format string `json:"Format"`
	Value  string `json:"value"`
}

// IssuerDN returns the preferred human-readable issuer DN encoding.
func (c *CertificateDiagnostic) IssuerDN() string {
	if len(c.IssuerDistinguishedName) > 1 {
		return c.IssuerDistinguishedName[1].Value
	}
	if len(c.IssuerDistinguishedName) == 1 {
		return c.IssuerDistinguishedName[0].Value
	}
	return ""
}

// CertificateExtension carries the subject alternative names extension when
// present. Other extensions are decoded but unused.
type CertificateExtension struct {
	SubjectAlternativeNames *SubjectAlternativeNames `json:"SubjectAlternativeNames"`
}

// SubjectAlternativeNames lists the SAN entries of a certificate.
type SubjectAlternativeNames struct {
	SubjectAlternativeName []SubjectAlternativeName `json:"subjectAlternativeName"`
}

// SubjectAlternativeName is one SAN entry (typically an rfc822 email).
type SubjectAlternativeName struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// EmailAddress returns the signer email: the first SAN value when present,
// otherwise the top-level Email field.
func (c *CertificateDiagnostic) EmailAddress() string {
	for _, ext := range c.CertificateExtensions {
		if ext.SubjectAlternativeNames == nil {
			continue
		}
		if sans := ext.SubjectAlternativeNames.SubjectAlternativeName; len(sans) > 0 {
			return sans[0].Value
		}
	}
	return c.Email
}
