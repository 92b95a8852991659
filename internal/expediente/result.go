package expediente

// Result types returned to callers. Field names follow the external JSON
// contract consumed by the case-management frontend, so they stay in Spanish
// where the contract says so.

// DocRefSummary identifies a declared document by id and order number.
type DocRefSummary struct {
	IDDocumento string `json:"id_documento"`
	Orden       int    `json:"orden"`
}

// DocumentValidation is the outcome of correlating and checking one declared
// document against the archive contents.
type DocumentValidation struct {

	// Orden is the declared order number from the record.
	Orden int `json:"orden"`

	// IDDocumento is the declared document identifier.
	IDDocumento string `json:"id_documento"`

	// ValidHash reports whether the entry's SHA-256 digest matched the
	// declared hash. Always false when the declared hash is empty.
	ValidHash bool `json:"valid_hash"`

	// DocFilename is the archive entry the order number correlated to.
	// Empty when no entry matched.
	DocFilename string `json:"doc_filename,omitempty"`

	// Signatures holds the verdicts for the document's own embedded PDF
	// signatures. Nil when the document was not found; empty when the
	// oracle found no signatures or could not be reached.
	Signatures []SignatureVerdict `json:"signatures"`

	// NotFound is set when no archive entry correlated to Orden. No hash
	// or signature check is attempted in that case.
	NotFound bool `json:"not_found"`

	// Error carries a per-document failure description. It never aborts
	// the parent step.
	Error string `json:"error,omitempty"`
}

// TramiteValidationResult is the aggregate outcome for one procedural step.
type TramiteValidationResult struct {
	Secuencia int `json:"secuencia"`

	// IsValid is the step signature's combined verdict.
	IsValid bool `json:"is_valid"`

	// CertsValid reports whether the step signature's chain is trusted.
	CertsValid bool `json:"certs_valid"`

	// Signature holds the verdicts the oracle produced for the step's
	// detached signature. Empty when the oracle call failed.
	Signature []SignatureVerdict `json:"signature"`

	// DocsValidation lists per-document results (archive mode only).
	DocsValidation []DocumentValidation `json:"docs_validation,omitempty"`

	// DocsNotFound lists the declared documents with no archive match.
	DocsNotFound []DocRefSummary `json:"docs_not_found,omitempty"`

	// Subindication is the human-readable step outcome.
	Subindication string `json:"subindication"`

	// ResultIndication is the step's pass/fail.
	ResultIndication bool `json:"result_indication"`

	// Message mirrors Subindication in the caller-facing contract.
	Message string `json:"message"`
}

// ValidationReport is the final answer of a validation run. Every outcome,
// including "validation could not run", is expressed in this shape with
// Conclusion=false and an explanatory Message rather than as an error.
type ValidationReport struct {

	// ExpedienteID is the case display identifier, when the record could
	// be read at all.
	ExpedienteID string `json:"id_expediente,omitempty"`

	// Subresults lists per-step results in original log order.
	Subresults []TramiteValidationResult `json:"subresults,omitempty"`

	// Conclusion is the AND of every step's ResultIndication, forced
	// false on an archive-level document count mismatch.
	Conclusion bool `json:"conclusion"`

	// Message summarizes the outcome for human consumers.
	Message string `json:"message,omitempty"`
}

// FailureReport builds a request-level failure in the standard report shape.
func FailureReport(message string) *ValidationReport {
	return &ValidationReport{Conclusion: false, Message: message}
}
