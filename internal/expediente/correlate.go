package expediente

// correlate.go checks one declared document against the archive: correlation
// by order token, embedded PDF signature validation through the oracle, and
// content hash comparison. Every failure is captured on the result object;
// nothing here aborts the parent step.

import (
	"context"
	"fmt"
	"log/slog"
)

// validateDocument produces the DocumentValidation for one DocumentoRef.
func (e *Engine) validateDocument(ctx context.Context, bundle *ArchiveBundle, doc DocumentoRef) DocumentValidation {
	result := DocumentValidation{
		Orden:       doc.Orden,
		IDDocumento: doc.IDDocumento,
	}

	filename, content, ok := bundle.LookupDocument(doc.Orden)
	if !ok {
		result.NotFound = true
		return result
	}
	result.DocFilename = filename

	// Hash check first: it needs only the bytes and must be reported even
	// when the oracle is unavailable.
	result.ValidHash = HashMatches(SHA256Hex(content), doc.DeclaredHash())

	report, err := e.oracle.ValidatePdfSignature(ctx, content)
	if err != nil {
		e.logger.Warn("pdf signature validation unavailable",
			slog.String("id_documento", doc.IDDocumento),
			slog.String("error", err.Error()))
		result.Signatures = []SignatureVerdict{}
		result.Error = fmt.Sprintf("Error de validación de firma en documento %s", doc.IDDocumento)
		return result
	}

	result.Signatures = e.interp.Interpret(report)
	return result
}
