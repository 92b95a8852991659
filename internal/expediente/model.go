// Package expediente implements the signature chain validation engine for
// procedural case files.
//
// A case file ("expediente") is an append-only log of procedural steps
// ("trámites"). Each step carries a detached JAdES signature that covers the
// record truncated to that step, with the step's own signature field removed
// (the "prefix state"). Individual PDF documents referenced by a step carry
// their own embedded PAdES signatures and declared content hashes.
//
// The engine reconstructs prefix states, submits them to the remote DSS
// validation oracle, interprets the diagnostic reports, checks signer
// certificate chains against the locally configured trust anchors, and
// correlates and hash-verifies archived documents. It never performs
// cryptographic verification itself.
package expediente

import (
	"encoding/json"
	"fmt"
)

// Record is the append-only case-file log ("índice" of the expediente).
//
// Tramites is order-significant and only ever appended to; the case metadata
// fields are used solely to build human-readable identifiers.
type Record struct {
	Numero   int       `json:"numero"`
	Anio     int       `json:"anio"`
	Codigo   string    `json:"codigo"`
	Letra    string    `json:"letra"`
	Tramites []Tramite `json:"tramites"`
}

// CaseID returns the display identifier of the case, e.g. "123/2024/EXP/A".
func (r *Record) CaseID() string {
	return fmt.Sprintf("%d/%d/%s/%s", r.Numero, r.Anio, r.Codigo, r.Letra)
}

// Validate checks the structural invariants of the record.
func (r *Record) Validate() error {
	if len(r.Tramites) == 0 {
		return NewInputError("record contains no tramites")
	}
	for i, t := range r.Tramites {
		if len(t.Documentos) == 0 {
			continue
		}
		for j, d := range t.Documentos {
			if d.IDDocumento == "" {
				return NewInputError(fmt.Sprintf("tramite %d documento %d: id_documento is required", i, j))
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	clone := *r
	clone.Tramites = make([]Tramite, len(r.Tramites))
	for i, t := range r.Tramites {
		clone.Tramites[i] = t.clone()
	}
	return &clone
}

// ParseRecord decodes a serialized record and validates its structure.
func ParseRecord(data []byte) (*Record, error) {
	record := &Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, WrapInputError(err, "failed to parse record")
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// Tramite is one procedural step in the case file.
//
// Firma is the detached signature covering the prefix state at the time the
// step was signed. It is attached exactly once, at signing time; an empty
// value means the step has not been signed yet. The json tag omits the field
// when empty so the serialized form of an unsigned step matches the form
// that was presented for signing.
type Tramite struct {
	Secuencia  int            `json:"secuencia"`
	Documentos []DocumentoRef `json:"documentos"`
	Firma      string         `json:"firma,omitempty"`
}

// clone deep-copies the step. Nil Documentos stays nil: a nil and an empty
// slice serialize differently (null vs []), and the copy must reproduce the
// original's serialized form byte for byte.
func (t Tramite) clone() Tramite {
	c := t
	if t.Documentos == nil {
		return c
	}
	c.Documentos = make([]DocumentoRef, len(t.Documentos))
	copy(c.Documentos, t.Documentos)
	return c
}

// Signed reports whether the step carries a signature.
func (t *Tramite) Signed() bool {
	return t.Firma != ""
}

// DocumentoRef references a PDF inside the case. Immutable once created.
//
// Hash is the expected SHA-256 digest of the document content as lowercase
// hex; nil/empty means no hash was declared (which makes the hash check fail
// by definition, not error).
type DocumentoRef struct {
	Orden       int     `json:"orden"`
	IDDocumento string  `json:"id_documento"`
	Hash        *string `json:"hash_contenido"`
}

// DeclaredHash returns the declared content hash or "" when absent.
func (d *DocumentoRef) DeclaredHash() string {
	if d.Hash == nil {
		return ""
	}
	return *d.Hash
}
