// Package dss is the client for the remote DSS signing and validation
// service (the "validation oracle"). It performs no cryptography itself:
// documents are submitted to DSS and its diagnostic reports are returned
// for interpretation by the expediente engine.
package dss

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gobdigital/firmador/internal/metrics"
)

const (
	validateSignaturePath = "/validation/validateSignature"
	getDataToSignPath     = "/signature/one-document/getDataToSign"
	signDocumentPath      = "/signature/one-document/signDocument"
)

// Client talks to a DSS REST endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a DSS client. The timeout bounds every call to the
// oracle - there is no other timeout at the orchestration layer, so a
// missing/zero value falls back to 10s rather than "no timeout".
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ValidateDetachedSignature submits a detached JAdES signature together with
// the original document content it covers and returns the diagnostic report.
//
// original is the exact serialized content that was signed (the caller is
// responsible for reconstructing it byte-for-byte); signatureB64 is the
// base64-encoded signature token.
func (c *Client) ValidateDetachedSignature(ctx context.Context, original []byte, signatureB64 string) (*DiagnosticReport, error) {
	if signatureB64 == "" {
		return nil, NewRequestError("signature data is required")
	}

	originalB64 := base64.StdEncoding.EncodeToString(original)
	body := ValidateSignatureRequest{
		SignedDocument: RemoteDocument{
			Bytes: &signatureB64,
			Name:  ptr("sign.json"),
		},
		OriginalDocuments: []RemoteDocument{
			{
				Bytes: &originalB64,
				Name:  ptr("signed.json"),
			},
		},
		TokenExtractionStrategy: "NONE",
	}

	return c.postValidation(ctx, body)
}

// ValidatePdfSignature submits a signed PDF for validation of its embedded
// (PAdES) signatures and returns the diagnostic report.
func (c *Client) ValidatePdfSignature(ctx context.Context, pdf []byte) (*DiagnosticReport, error) {
	if len(pdf) == 0 {
		return nil, NewRequestError("PDF data is required")
	}

	pdfB64 := base64.StdEncoding.EncodeToString(pdf)
	body := ValidateSignatureRequest{
		SignedDocument: RemoteDocument{
			Bytes: &pdfB64,
			Name:  ptr("sign.pdf"),
		},
		OriginalDocuments: []RemoteDocument{
			{},
		},
		TokenExtractionStrategy: "NONE",
	}

	return c.postValidation(ctx, body)
}

func (c *Client) postValidation(ctx context.Context, body ValidateSignatureRequest) (*DiagnosticReport, error) {
	raw, err := c.post(ctx, validateSignaturePath, body)
	if err != nil {
		return nil, err
	}

	// DSS returns an empty report for documents without signatures; decode
	// failures on a 200 response are treated as "no usable report".
	report := &DiagnosticReport{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, report); err != nil {
			return nil, WrapDecodeError(err, "failed to decode diagnostic report")
		}
	}
	return report, nil
}

// post sends a JSON request to the DSS service and returns the raw response
// body. Connectivity problems and non-200 statuses are returned as typed
// errors so callers can degrade them to per-item failures.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, WrapDecodeError(err, "failed to encode request body")
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, WrapConnectionError(err, "failed to build DSS request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordOracleRequest(path, err, time.Since(start))
	if err != nil {
		c.logger.Warn("DSS request failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return nil, WrapConnectionError(err, "failed to connect to DSS service")
	}
	defer resp.Body.Close()

	c.logger.Debug("DSS request completed",
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, NewStatusError(fmt.Sprintf("DSS service returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapConnectionError(err, "failed to read DSS response")
	}
	return raw, nil
}

func ptr[T any](v T) *T { return &v }
