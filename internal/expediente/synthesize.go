package expediente

// synthesize.go reduces per-step verdicts and per-document checks into the
// caller-facing report. Messages are in Spanish: the consumers are
// case-management staff, and the wording is part of the external contract.

import (
	"fmt"
	"strings"
)

// SynthesizeStep builds the aggregate result for one step from its signature
// verdicts and (archive mode) its per-document results.
//
// Message precedence, most specific case governing the step outcome:
//  1. no signature in the diagnostic result: the step passes trivially but
//     still reports hash mismatches;
//  2. signature invalid (chain trusted or not, named explicitly);
//  3. signature valid but chain untrusted;
//  4. signature and chain valid but documents with hash mismatches;
//  5. everything valid.
func SynthesizeStep(secuencia int, verdicts []SignatureVerdict, docs []DocumentValidation) TramiteValidationResult {
	result := TramiteValidationResult{
		Secuencia:      secuencia,
		Signature:      verdicts,
		DocsValidation: docs,
		DocsNotFound:   notFoundRefs(docs),
	}

	invalidHashes := invalidHashRefs(docs)

	if len(verdicts) == 0 {
		result.Subindication = fmt.Sprintf("Trámite %d: La validación fue procesada correctamente pero el resultado no contiene firmas.%s",
			secuencia, hashSuffix(invalidHashes))
		result.ResultIndication = true
		result.Message = result.Subindication
		return result
	}

	result.IsValid = verdicts[0].Valid
	result.CertsValid = verdicts[0].CertsValid

	switch {
	case !result.IsValid && result.CertsValid:
		result.Subindication = fmt.Sprintf("Trámite %d: La validación fue procesada correctamente pero la firma digital es inválida.%s",
			secuencia, hashSuffix(invalidHashes))

	case !result.IsValid:
		result.Subindication = fmt.Sprintf("Trámite %d: La validación fue procesada correctamente pero la firma digital y los certificados son inválidos.%s",
			secuencia, hashSuffix(invalidHashes))

	case !result.CertsValid:
		result.Subindication = fmt.Sprintf("Trámite %d: La validación fue procesada correctamente pero los certificados son inválidos.%s",
			secuencia, hashSuffix(invalidHashes))

	case len(invalidHashes) > 0:
		result.Subindication = fmt.Sprintf("Trámite %d: La validación fue procesada correctamente pero hay documentos con hash inválido: %s.",
			secuencia, joinRefs(invalidHashes))

	default:
		result.Subindication = fmt.Sprintf("Trámite %d: La validación fue procesada correctamente y todos los elementos son válidos.", secuencia)
		result.ResultIndication = true
	}

	result.Message = result.Subindication
	return result
}

// FailedStep builds a failed step result carrying only a message, for steps
// whose signature could not be checked at all (missing signature, malformed
// token, oracle unavailable).
func FailedStep(secuencia int, message string) TramiteValidationResult {
	return TramiteValidationResult{
		Secuencia:     secuencia,
		Signature:     []SignatureVerdict{},
		Subindication: message,
		Message:       message,
	}
}

// SynthesizeReport reduces ordered step results into the final report.
//
// declaredDocs and actualPDFs carry the archive-level document count check:
// any mismatch forces Conclusion=false and prepends a discrepancy message,
// independent of per-step outcomes. Pass equal values (e.g. both zero) when
// no archive is involved.
func SynthesizeReport(steps []TramiteValidationResult, declaredDocs, actualPDFs int) *ValidationReport {
	conclusion := true
	messages := make([]string, 0, len(steps))
	for _, step := range steps {
		conclusion = conclusion && step.ResultIndication
		messages = append(messages, step.Message)
	}

	report := &ValidationReport{
		Subresults: steps,
		Conclusion: conclusion,
		Message:    strings.Join(messages, " "),
	}

	if countMessage := countMismatchMessage(declaredDocs, actualPDFs); countMessage != "" {
		report.Conclusion = false
		report.Message = strings.TrimSpace(countMessage + " " + report.Message)
	}
	return report
}

// countMismatchMessage describes a declared/actual PDF count discrepancy,
// or returns "" when the counts agree.
func countMismatchMessage(declared, actual int) string {
	switch {
	case actual < declared:
		return fmt.Sprintf("La validación fue procesada correctamente pero faltan documentos. El índice declara %d documentos, pero el ZIP contiene %d PDFs", declared, actual)
	case actual > declared:
		return fmt.Sprintf("La validación fue procesada correctamente pero hay documentos adicionales. El índice declara %d documentos, pero el ZIP contiene %d PDFs", declared, actual)
	default:
		return ""
	}
}

func notFoundRefs(docs []DocumentValidation) []DocRefSummary {
	var refs []DocRefSummary
	for _, doc := range docs {
		if doc.NotFound {
			refs = append(refs, DocRefSummary{IDDocumento: doc.IDDocumento, Orden: doc.Orden})
		}
	}
	return refs
}

func invalidHashRefs(docs []DocumentValidation) []DocRefSummary {
	var refs []DocRefSummary
	for _, doc := range docs {
		if !doc.ValidHash {
			refs = append(refs, DocRefSummary{IDDocumento: doc.IDDocumento, Orden: doc.Orden})
		}
	}
	return refs
}

func joinRefs(refs []DocRefSummary) string {
	parts := make([]string, len(refs))
	for i, ref := range refs {
		parts[i] = fmt.Sprintf("%s (orden %d)", ref.IDDocumento, ref.Orden)
	}
	return strings.Join(parts, ", ")
}

// hashSuffix renders the trailing hash mismatch enumeration appended to the
// non-happy-path step messages.
func hashSuffix(refs []DocRefSummary) string {
	if len(refs) == 0 {
		return ""
	}
	return " Documentos con hash inválido: " + joinRefs(refs) + "."
}
