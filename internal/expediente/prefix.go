package expediente

// prefix.go reconstructs the exact logical document that was signed for a
// given step: the record truncated to steps [0..i], with step i's own
// signature field removed.
//
// Determinism matters more than anything else here: the bytes submitted to
// the validation oracle as the "original document" must match the bytes that
// were signed, or every downstream check fails closed. The serialized prefix
// is therefore canonicalized per RFC 8785 (JCS), and the signing path uses
// the same function, so sign-time and verify-time bytes always agree.

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// PrefixState is the reconstructed signed content for one step.
type PrefixState struct {

	// Index is the step's position in the record's tramite list.
	Index int

	// Secuencia is the step's declared sequence identifier.
	Secuencia int

	// Firma is the signature that was detached from the step during
	// reconstruction ("" when the step was unsigned).
	Firma string

	// Record is a deep copy truncated to steps [0..Index], with the
	// signature removed from the copy of step Index.
	Record *Record
}

// ReconstructPrefix builds the prefix state for step i of the record.
// Pure function: the input record is never modified.
func ReconstructPrefix(record *Record, i int) (*PrefixState, error) {
	if record == nil {
		return nil, NewInputError("record is nil")
	}
	if i < 0 || i >= len(record.Tramites) {
		return nil, NewInputError(fmt.Sprintf("step index %d out of range (record has %d tramites)", i, len(record.Tramites)))
	}

	clone := record.Clone()
	clone.Tramites = clone.Tramites[:i+1]

	firma := clone.Tramites[i].Firma
	clone.Tramites[i].Firma = ""

	return &PrefixState{
		Index:     i,
		Secuencia: record.Tramites[i].Secuencia,
		Firma:     firma,
		Record:    clone,
	}, nil
}

// CanonicalBytes serializes the prefix record in its canonical (RFC 8785)
// form. Reconstruction is deterministic: calling this twice for the same
// record and index yields byte-identical output.
func (p *PrefixState) CanonicalBytes() ([]byte, error) {
	raw, err := json.Marshal(p.Record)
	if err != nil {
		return nil, WrapInternalError(err, "failed to serialize prefix record")
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, WrapInternalError(err, "failed to canonicalize prefix record")
	}
	return canonical, nil
}

// CanonicalRecordBytes returns the canonical serialization of a full record.
// The signing path uses this to produce the bytes presented to the signer,
// guaranteeing they match what ReconstructPrefix later rebuilds.
func CanonicalRecordBytes(record *Record) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, WrapInternalError(err, "failed to serialize record")
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, WrapInternalError(err, "failed to canonicalize record")
	}
	return canonical, nil
}
