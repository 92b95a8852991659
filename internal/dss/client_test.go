package dss

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// captureServer records the last request body and answers with a fixed
// status and payload.
type captureServer struct {
	*httptest.Server

	lastPath string
	lastBody []byte
}

func newCaptureServer(t *testing.T, status int, response string) *captureServer {
	t.Helper()

	cs := &captureServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read request body: %v", err)
		}
		cs.lastPath = r.URL.Path
		cs.lastBody = body

		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, slog.Default())
}

func TestValidateDetachedSignatureRequestShape(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, `{}`)
	client := newTestClient(srv.URL)

	original := []byte(`{"tramites":[]}`)
	_, err := client.ValidateDetachedSignature(context.Background(), original, "c2lnbg==")
	if err != nil {
		t.Fatalf("ValidateDetachedSignature failed: %v", err)
	}

	if srv.lastPath != "/validation/validateSignature" {
		t.Errorf("got path %q", srv.lastPath)
	}

	var req ValidateSignatureRequest
	if err := json.Unmarshal(srv.lastBody, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}

	if req.SignedDocument.Name == nil || *req.SignedDocument.Name != "sign.json" {
		t.Error("signed document must be named sign.json")
	}
	if req.SignedDocument.Bytes == nil || *req.SignedDocument.Bytes != "c2lnbg==" {
		t.Error("signature token must travel as-is")
	}
	if len(req.OriginalDocuments) != 1 {
		t.Fatalf("got %d original documents, want 1", len(req.OriginalDocuments))
	}
	od := req.OriginalDocuments[0]
	if od.Name == nil || *od.Name != "signed.json" {
		t.Error("original document must be named signed.json")
	}
	if od.Bytes == nil || *od.Bytes != base64.StdEncoding.EncodeToString(original) {
		t.Error("original content must be base64 encoded")
	}
	if req.TokenExtractionStrategy != "NONE" {
		t.Errorf("got token extraction strategy %q", req.TokenExtractionStrategy)
	}
}

func TestValidatePdfSignatureRequestShape(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, `{}`)
	client := newTestClient(srv.URL)

	pdf := []byte("%PDF-1.4")
	if _, err := client.ValidatePdfSignature(context.Background(), pdf); err != nil {
		t.Fatalf("ValidatePdfSignature failed: %v", err)
	}

	var req ValidateSignatureRequest
	if err := json.Unmarshal(srv.lastBody, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}

	if req.SignedDocument.Name == nil || *req.SignedDocument.Name != "sign.pdf" {
		t.Error("signed document must be named sign.pdf")
	}
	// the contract requires exactly one empty original document entry
	if len(req.OriginalDocuments) != 1 {
		t.Fatalf("got %d original documents, want 1", len(req.OriginalDocuments))
	}
	if req.OriginalDocuments[0].Bytes != nil {
		t.Error("the original document entry must be empty")
	}
}

func TestValidateRequestInputErrors(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	if _, err := client.ValidateDetachedSignature(context.Background(), []byte("x"), ""); err == nil {
		t.Error("empty signature must be rejected before any request")
	}
	if _, err := client.ValidatePdfSignature(context.Background(), nil); err == nil {
		t.Error("empty PDF must be rejected before any request")
	}
}

func TestPostValidationResponses(t *testing.T) {
	t.Run("empty body means no signatures", func(t *testing.T) {
		srv := newCaptureServer(t, http.StatusOK, "")
		client := newTestClient(srv.URL)

		report, err := client.ValidatePdfSignature(context.Background(), []byte("%PDF"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Signatures()) != 0 {
			t.Error("an empty body must decode as an empty report")
		}
	})

	t.Run("diagnostic data is decoded", func(t *testing.T) {
		body := `{"DiagnosticData":{"Signature":[{"BasicSignature":{"SignatureIntact":true,"SignatureValid":true}}]}}`
		srv := newCaptureServer(t, http.StatusOK, body)
		client := newTestClient(srv.URL)

		report, err := client.ValidatePdfSignature(context.Background(), []byte("%PDF"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Signatures()) != 1 {
			t.Fatalf("got %d signatures, want 1", len(report.Signatures()))
		}
		if !report.Signatures()[0].BasicSignature.SignatureIntact {
			t.Error("signature diagnostics not decoded")
		}
	})

	t.Run("non-200 status is a typed error", func(t *testing.T) {
		srv := newCaptureServer(t, http.StatusInternalServerError, "boom")
		client := newTestClient(srv.URL)

		_, err := client.ValidatePdfSignature(context.Background(), []byte("%PDF"))
		var derr *DSSError
		if !errors.As(err, &derr) {
			t.Fatalf("got %T, want *DSSError", err)
		}
		if derr.Code() != ErrCodeStatus {
			t.Errorf("got code %q, want %q", derr.Code(), ErrCodeStatus)
		}
	})

	t.Run("connection failure is a typed error", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:1")

		_, err := client.ValidatePdfSignature(context.Background(), []byte("%PDF"))
		var derr *DSSError
		if !errors.As(err, &derr) {
			t.Fatalf("got %T, want *DSSError", err)
		}
		if derr.Code() != ErrCodeConnection {
			t.Errorf("got code %q, want %q", derr.Code(), ErrCodeConnection)
		}
	})

	t.Run("undecodable 200 body is a decode error", func(t *testing.T) {
		srv := newCaptureServer(t, http.StatusOK, "{broken")
		client := newTestClient(srv.URL)

		_, err := client.ValidatePdfSignature(context.Background(), []byte("%PDF"))
		var derr *DSSError
		if !errors.As(err, &derr) {
			t.Fatalf("got %T, want *DSSError", err)
		}
		if derr.Code() != ErrCodeDecode {
			t.Errorf("got code %q, want %q", derr.Code(), ErrCodeDecode)
		}
	})
}

func TestGetDataToSignJAdES(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, `{"bytes":"ZGlnZXN0","name":"toBeSigned"}`)
	client := newTestClient(srv.URL)

	signingTime := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	req := JAdESSignRequest{
		DocumentB64:  base64.StdEncoding.EncodeToString([]byte(`{"tramites":[]}`)),
		Certificates: SigningCertificates{Certificate: "CERT", CertificateChain: []string{"CA1", "CA2"}},
		SigningTime:  signingTime,
		SignerRole:   "Perez, Director, Mesa de Entradas",
	}

	resp, err := client.GetDataToSignJAdES(context.Background(), req)
	if err != nil {
		t.Fatalf("GetDataToSignJAdES failed: %v", err)
	}
	if resp.Bytes != "ZGlnZXN0" {
		t.Errorf("got bytes %q", resp.Bytes)
	}
	if srv.lastPath != "/signature/one-document/getDataToSign" {
		t.Errorf("got path %q", srv.lastPath)
	}

	var sent signOneDocumentRequest
	if err := json.Unmarshal(srv.lastBody, &sent); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	p := sent.Parameters
	if p.SignatureLevel != "JAdES_BASELINE_B" || p.SignaturePackaging != "DETACHED" {
		t.Errorf("got level %q packaging %q", p.SignatureLevel, p.SignaturePackaging)
	}
	if p.SigningCertificate.EncodedCertificate != "CERT" || len(p.CertificateChain) != 2 {
		t.Error("certificates not carried through")
	}
	if p.BLevelParams.SigningDate != signingTime.UnixMilli() {
		t.Errorf("got signing date %d", p.BLevelParams.SigningDate)
	}
	if len(p.BLevelParams.ClaimedSignerRoles) != 1 || p.BLevelParams.ClaimedSignerRoles[0] != req.SignerRole {
		t.Error("signer role not carried through")
	}
	if sent.SignatureValue != nil {
		t.Error("first phase must not carry a signature value")
	}
}

func TestSignDocumentJAdES(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, `{"bytes":"dG9rZW4=","name":"document.json"}`)
	client := newTestClient(srv.URL)

	req := JAdESSignRequest{
		DocumentB64:       base64.StdEncoding.EncodeToString([]byte(`{}`)),
		SigningTime:       time.Now(),
		SignatureValueB64: "c2lnbmVk",
	}

	resp, err := client.SignDocumentJAdES(context.Background(), req)
	if err != nil {
		t.Fatalf("SignDocumentJAdES failed: %v", err)
	}
	if resp.Bytes != "dG9rZW4=" {
		t.Errorf("got bytes %q", resp.Bytes)
	}
	if srv.lastPath != "/signature/one-document/signDocument" {
		t.Errorf("got path %q", srv.lastPath)
	}

	var sent signOneDocumentRequest
	if err := json.Unmarshal(srv.lastBody, &sent); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if sent.SignatureValue == nil || sent.SignatureValue.Value != "c2lnbmVk" {
		t.Error("signature value not carried through")
	}
	if sent.SignatureValue.Algorithm != "RSA_SHA256" {
		t.Errorf("got algorithm %q", sent.SignatureValue.Algorithm)
	}
}

func TestSigningInputErrors(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	if _, err := client.GetDataToSignJAdES(context.Background(), JAdESSignRequest{}); err == nil {
		t.Error("missing document must be rejected")
	}
	if _, err := client.SignDocumentJAdES(context.Background(), JAdESSignRequest{DocumentB64: "e30="}); err == nil {
		t.Error("missing signature value must be rejected")
	}
}

func TestSignResponseMissingBytes(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK, `{"name":"toBeSigned"}`)
	client := newTestClient(srv.URL)

	_, err := client.GetDataToSignJAdES(context.Background(), JAdESSignRequest{DocumentB64: "e30="})
	var derr *DSSError
	if !errors.As(err, &derr) {
		t.Fatalf("got %T, want *DSSError", err)
	}
	if derr.Code() != ErrCodeSigning {
		t.Errorf("got code %q, want %q", derr.Code(), ErrCodeSigning)
	}
}
