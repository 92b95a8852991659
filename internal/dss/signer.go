package dss

// signer.go implements the two-phase remote-token JAdES signing flow:
//
//  1. GetDataToSignJAdES - DSS computes the digest the client-side token
//     must sign (the "data to sign").
//  2. the caller signs that digest with the hardware token, outside this
//     service.
//  3. SignDocumentJAdES - DSS assembles the final detached JAdES token from
//     the document and the raw signature value.
//
// The signature covers the record serialization supplied by the caller; the
// chain validator is expected to have confirmed the prior chain before a new
// step signature is produced.

import (
	"context"
	"encoding/json"
	"time"
)

// SigningCertificates holds the signer's base64-encoded certificate and chain
// as extracted from the client token.
type SigningCertificates struct {
	Certificate      string   `json:"certificate"`
	CertificateChain []string `json:"certificateChain"`
}

// encodedCertificate is the DSS wire form of one certificate.
type encodedCertificate struct {
	EncodedCertificate string `json:"encodedCertificate"`
}

// timestampParameters is repeated verbatim for the content, signature and
// archive timestamp slots of the request.
type timestampParameters struct {
	DigestAlgorithm        string  `json:"digestAlgorithm"`
	CanonicalizationMethod string  `json:"canonicalizationMethod"`
	TimestampContainerForm *string `json:"timestampContainerForm"`
}

func defaultTimestampParameters() timestampParameters {
	return timestampParameters{
		DigestAlgorithm:        "SHA256",
		CanonicalizationMethod: "http://www.w3.org/2001/10/xml-exc-c14n#",
	}
}

// blevelParameters carries the claimed signing time and signer role.
type blevelParameters struct {
	SigningDate        int64    `json:"signingDate"`
	ClaimedSignerRoles []string `json:"claimedSignerRoles"`
}

// jadesParameters is the parameter block for a JAdES detached signature.
type jadesParameters struct {
	SigningCertificate            encodedCertificate   `json:"signingCertificate"`
	CertificateChain              []encodedCertificate `json:"certificateChain"`
	DetachedContents              *string              `json:"detachedContents"`
	ASiCContainerType             *string              `json:"asicContainerType"`
	SignatureLevel                string               `json:"signatureLevel"`
	SignaturePackaging            string               `json:"signaturePackaging"`
	EmbedXML                      bool                 `json:"embedXML"`
	ManifestSignature             bool                 `json:"manifestSignature"`
	JWSSerializationType          *string              `json:"jwsSerializationType"`
	SigDMechanism                 string               `json:"sigDMechanism"`
	SignatureAlgorithm            *string              `json:"signatureAlgorithm"`
	DigestAlgorithm               string               `json:"digestAlgorithm"`
	EncryptionAlgorithm           *string              `json:"encryptionAlgorithm"`
	ReferenceDigestAlgorithm      *string              `json:"referenceDigestAlgorithm"`
	ContentTimestamps             *string              `json:"contentTimestamps"`
	ContentTimestampParameters    timestampParameters  `json:"contentTimestampParameters"`
	SignatureTimestampParameters  timestampParameters  `json:"signatureTimestampParameters"`
	ArchiveTimestampParameters    timestampParameters  `json:"archiveTimestampParameters"`
	SignWithExpiredCertificate    bool                 `json:"signWithExpiredCertificate"`
	GenerateTBSWithoutCertificate bool                 `json:"generateTBSWithoutCertificate"`
	BLevelParams                  blevelParameters     `json:"blevelParams"`
}

// signatureValue is the raw signature produced by the client token.
type signatureValue struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// signOneDocumentRequest is the body for getDataToSign and signDocument.
type signOneDocumentRequest struct {
	Parameters     jadesParameters `json:"parameters"`
	ToSignDocument RemoteDocument  `json:"toSignDocument"`
	SignatureValue *signatureValue `json:"signatureValue,omitempty"`
}

// SignOneDocumentResponse is the DSS response for both signing phases:
// base64 bytes of either the data to sign or the finished signature token.
type SignOneDocumentResponse struct {
	Bytes string `json:"bytes"`
	Name  string `json:"name"`
}

// JAdESSignRequest describes one JAdES signing operation.
type JAdESSignRequest struct {
	// DocumentB64 is the base64-encoded serialized record to sign.
	DocumentB64 string

	// Certificates are the signer's token certificates.
	Certificates SigningCertificates

	// SigningTime is the claimed signing time embedded in the signature.
	SigningTime time.Time

	// SignerRole is the claimed role string (name, stamp, area).
	SignerRole string

	// SignatureValueB64 is the token-produced signature (second phase only).
	SignatureValueB64 string
}

func buildJAdESParameters(req JAdESSignRequest) jadesParameters {
	chain := make([]encodedCertificate, 0, len(req.Certificates.CertificateChain))
	for _, cert := range req.Certificates.CertificateChain {
		chain = append(chain, encodedCertificate{EncodedCertificate: cert})
	}

	return jadesParameters{
		SigningCertificate:           encodedCertificate{EncodedCertificate: req.Certificates.Certificate},
		CertificateChain:             chain,
		SignatureLevel:               "JAdES_BASELINE_B",
		SignaturePackaging:           "DETACHED",
		SigDMechanism:                "OBJECT_ID_BY_URI",
		DigestAlgorithm:              "SHA256",
		ContentTimestampParameters:   defaultTimestampParameters(),
		SignatureTimestampParameters: defaultTimestampParameters(),
		ArchiveTimestampParameters:   defaultTimestampParameters(),
		BLevelParams: blevelParameters{
			SigningDate:        req.SigningTime.UnixMilli(),
			ClaimedSignerRoles: []string{req.SignerRole},
		},
	}
}

func buildSignOneDocumentRequest(req JAdESSignRequest) signOneDocumentRequest {
	body := signOneDocumentRequest{
		Parameters: buildJAdESParameters(req),
		ToSignDocument: RemoteDocument{
			Bytes: ptr(req.DocumentB64),
			Name:  ptr("document.json"),
		},
	}

	if req.SignatureValueB64 != "" {
		body.SignatureValue = &signatureValue{
			Algorithm: "RSA_SHA256",
			Value:     req.SignatureValueB64,
		}
	}
	return body
}

// GetDataToSignJAdES asks DSS for the digest the client token must sign.
func (c *Client) GetDataToSignJAdES(ctx context.Context, req JAdESSignRequest) (*SignOneDocumentResponse, error) {
	if req.DocumentB64 == "" {
		return nil, NewRequestError("document to sign is required")
	}

	raw, err := c.post(ctx, getDataToSignPath, buildSignOneDocumentRequest(req))
	if err != nil {
		return nil, err
	}
	return decodeSignResponse(raw)
}

// SignDocumentJAdES submits the token-produced signature value and returns
// the assembled detached JAdES token.
func (c *Client) SignDocumentJAdES(ctx context.Context, req JAdESSignRequest) (*SignOneDocumentResponse, error) {
	if req.DocumentB64 == "" {
		return nil, NewRequestError("document to sign is required")
	}
	if req.SignatureValueB64 == "" {
		return nil, NewRequestError("signature value is required")
	}

	raw, err := c.post(ctx, signDocumentPath, buildSignOneDocumentRequest(req))
	if err != nil {
		return nil, err
	}
	return decodeSignResponse(raw)
}

func decodeSignResponse(raw []byte) (*SignOneDocumentResponse, error) {
	resp := &SignOneDocumentResponse{}
	if err := json.Unmarshal(raw, resp); err != nil {
		return nil, WrapDecodeError(err, "failed to decode signing response")
	}
	if resp.Bytes == "" {
		return nil, NewSigningError("DSS signing response missing 'bytes' field")
	}
	return resp, nil
}
