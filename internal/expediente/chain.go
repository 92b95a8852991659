package expediente

// chain.go orchestrates validation of a whole case file in two modes.
//
// Sequential fail-fast gates an in-progress signing operation: every prior
// step's chain must reconfirm before a new signature is appended, so the
// first break stops the run. Parallel aggregate-all answers "is this filed
// case intact": every step and document is checked regardless of sibling
// failures, and partial failures are data, not early termination.
//
// Prefix reconstruction always happens in log order even when validation of
// the reconstructed states runs concurrently.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gobdigital/firmador/internal/dss"
)

// OracleClient is the remote validation service the engine depends on.
// Implemented by dss.Client.
type OracleClient interface {
	ValidateDetachedSignature(ctx context.Context, original []byte, signatureB64 string) (*dss.DiagnosticReport, error)
	ValidatePdfSignature(ctx context.Context, pdf []byte) (*dss.DiagnosticReport, error)
}

// Engine validates procedural-record signature chains.
type Engine struct {
	oracle OracleClient
	interp *Interpreter
	logger *slog.Logger

	stepWorkers int
	docWorkers  int
}

// NewEngine creates a chain validation engine.
//
// stepWorkers and docWorkers bound the two pool levels in archive mode;
// zero means automatic sizing (two-thirds of available CPUs, minimum one).
func NewEngine(oracle OracleClient, trust TrustChecker, stepWorkers, docWorkers int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if stepWorkers <= 0 {
		stepWorkers = autoWorkers()
	}
	if docWorkers <= 0 {
		docWorkers = autoWorkers()
	}
	return &Engine{
		oracle:      oracle,
		interp:      NewInterpreter(trust),
		logger:      logger,
		stepWorkers: stepWorkers,
		docWorkers:  docWorkers,
	}
}

// autoWorkers sizes a pool at two-thirds of the available CPUs.
func autoWorkers() int {
	n := runtime.GOMAXPROCS(0) * 2 / 3
	if n < 1 {
		n = 1
	}
	return n
}

// ValidateRecordChain verifies a record's whole signature chain in
// sequential fail-fast mode.
//
// Steps before the last must carry their own firma; the last step's
// signature is supplied by the caller (it has not been attached to the
// record yet). The run stops at the first step that is missing a signature,
// fails to validate, or cannot reach the oracle, and returns that single
// failure. The returned report always has the standard shape; this method
// never returns an error to the caller.
func (e *Engine) ValidateRecordChain(ctx context.Context, record *Record, currentSignature string) *ValidationReport {
	if record == nil || len(record.Tramites) == 0 {
		return FailureReport("La validación fue procesada correctamente pero el expediente no contiene trámites")
	}

	last := len(record.Tramites) - 1
	steps := make([]TramiteValidationResult, 0, len(record.Tramites))

	for i := range record.Tramites {
		prefix, err := ReconstructPrefix(record, i)
		if err != nil {
			return FailureReport(fmt.Sprintf("La validación fue procesada correctamente pero hubo un error inesperado: %v", err))
		}

		firma := prefix.Firma
		if i == last {
			firma = currentSignature
		}

		step, ok := e.validateStep(ctx, prefix, firma, nil)
		steps = append(steps, step)
		if !ok {
			report := SynthesizeReport(steps, 0, 0)
			report.ExpedienteID = record.CaseID()
			report.Message = step.Message
			return report
		}
	}

	report := SynthesizeReport(steps, 0, 0)
	report.ExpedienteID = record.CaseID()
	return report
}

// ValidateArchive verifies a filed case bundle in parallel aggregate-all
// mode. Input is the raw ZIP content; the returned report always has the
// standard shape, with request-level failures expressed as Conclusion=false.
func (e *Engine) ValidateArchive(ctx context.Context, zipData []byte) *ValidationReport {
	bundle, err := OpenArchive(zipData)
	if err != nil {
		return FailureReport("La validación fue procesada correctamente pero " + failureDetail(err))
	}
	return e.validateBundle(ctx, bundle)
}

func (e *Engine) validateBundle(ctx context.Context, bundle *ArchiveBundle) *ValidationReport {
	record := bundle.Record
	e.logger.Info("validating expediente archive",
		slog.String("expediente", record.CaseID()),
		slog.Int("tramites", len(record.Tramites)),
		slog.Int("pdfs", bundle.PDFCount))

	// Prefixes are reconstructed in log order before any task runs; only
	// the oracle round-trips are parallelized.
	prefixes := make([]*PrefixState, len(record.Tramites))
	for i := range record.Tramites {
		prefix, err := ReconstructPrefix(record, i)
		if err != nil {
			return FailureReport(fmt.Sprintf("La validación fue procesada correctamente pero hubo un error inesperado: %v", err))
		}
		prefixes[i] = prefix
	}

	steps := make([]TramiteValidationResult, len(prefixes))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.stepWorkers)

	for i, prefix := range prefixes {
		group.Go(func() error {
			docs := e.validateDocuments(groupCtx, bundle, record.Tramites[i].Documentos)
			steps[i], _ = e.validateStep(groupCtx, prefix, prefix.Firma, docs)
			return nil
		})
	}
	// Tasks report failures as data, never as errors.
	_ = group.Wait()

	report := SynthesizeReport(steps, bundle.DeclaredDocumentCount(), bundle.PDFCount)
	report.ExpedienteID = record.CaseID()
	return report
}

// validateDocuments fans out per-document checks inside one step's task.
// Results keep the declared document order.
func (e *Engine) validateDocuments(ctx context.Context, bundle *ArchiveBundle, docs []DocumentoRef) []DocumentValidation {
	if len(docs) == 0 {
		return nil
	}

	results := make([]DocumentValidation, len(docs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.docWorkers)

	for i, doc := range docs {
		group.Go(func() error {
			results[i] = e.validateDocument(groupCtx, bundle, doc)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

// validateStep checks one step's detached signature over its reconstructed
// prefix and synthesizes the step result. ok reports whether the step passed
// (drives the sequential mode's short-circuit).
func (e *Engine) validateStep(ctx context.Context, prefix *PrefixState, firma string, docs []DocumentValidation) (TramiteValidationResult, bool) {
	fail := func(message string) (TramiteValidationResult, bool) {
		step := FailedStep(prefix.Secuencia, message)
		step.DocsValidation = docs
		step.DocsNotFound = notFoundRefs(docs)
		return step, false
	}

	if firma == "" {
		return fail(fmt.Sprintf("Trámite %d: La validación fue procesada correctamente pero el trámite no contiene firma digital.", prefix.Secuencia))
	}

	info, err := InspectSignature(firma)
	if err != nil {
		e.logger.Warn("step signature failed structural pre-check",
			slog.Int("secuencia", prefix.Secuencia),
			slog.String("error", err.Error()))
		return fail(fmt.Sprintf("Trámite %d: La validación fue procesada correctamente pero la firma del trámite no es un token de firma legible.", prefix.Secuencia))
	}

	original, err := prefix.CanonicalBytes()
	if err != nil {
		return fail(fmt.Sprintf("Trámite %d: La validación fue procesada correctamente pero hubo un error inesperado: %v", prefix.Secuencia, err))
	}

	report, err := e.oracle.ValidateDetachedSignature(ctx, original, firma)
	if err != nil {
		e.logger.Warn("oracle unavailable for step signature",
			slog.Int("secuencia", prefix.Secuencia),
			slog.String("key_id", info.KeyID),
			slog.String("error", err.Error()))
		return fail(fmt.Sprintf("Trámite %d: La validación fue procesada correctamente pero no se pudo validar la firma del trámite.", prefix.Secuencia))
	}

	verdicts := e.interp.Interpret(report)
	step := SynthesizeStep(prefix.Secuencia, verdicts, docs)
	return step, step.ResultIndication
}

// ValidatePriorChain verifies every already-signed step of a record whose
// final step is about to be signed. The final step itself is excluded: it
// carries no signature yet. A record with a single step has no prior chain
// and passes trivially.
func (e *Engine) ValidatePriorChain(ctx context.Context, record *Record) *ValidationReport {
	if record == nil || len(record.Tramites) < 2 {
		return &ValidationReport{Conclusion: true}
	}
	prior := record.Clone()
	prior.Tramites = prior.Tramites[:len(prior.Tramites)-1]
	lastFirma := prior.Tramites[len(prior.Tramites)-1].Firma
	return e.ValidateRecordChain(ctx, prior, lastFirma)
}

// ValidatePDF checks a standalone PDF's embedded signatures. Oracle
// unavailability is an error here: there is no partial result to degrade to.
func (e *Engine) ValidatePDF(ctx context.Context, pdf []byte) ([]SignatureVerdict, error) {
	report, err := e.oracle.ValidatePdfSignature(ctx, pdf)
	if err != nil {
		return nil, err
	}
	return e.interp.Interpret(report), nil
}

// failureDetail extracts the human-readable part of an engine error for
// embedding in a caller-facing message.
func failureDetail(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message()
	}
	return err.Error()
}
