package expediente

// archive.go opens an expediente bundle: a ZIP containing exactly one JSON
// index (the procedural record) and the PDF documents it references.
//
// Entry names may use non-ASCII characters; they are decomposed (NFKD) and
// filtered to ASCII before any matching, so "Nómina_3_Ene.pdf" and its
// ASCII-folded form correlate identically. PDF entries are indexed by an
// order token recovered from the filename convention
// "<anything>_<orden>_...": names that don't follow the convention are not
// indexed and simply look up as not-found later.
//
// Error messages here are Spanish fragments: they are embedded verbatim in
// the caller-facing report message.

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// orderTokenRe extracts the document order token from an extensionless
// base filename.
var orderTokenRe = regexp.MustCompile(`^[^_]+_([^_]+)_?`)

// ArchiveBundle is the extracted content of one expediente ZIP. Owned by a
// single validation request and discarded when it completes.
type ArchiveBundle struct {

	// Record is the procedural record parsed from the index entry.
	Record *Record

	// IndexFilename is the entry the record was parsed from.
	IndexFilename string

	// Entries maps ASCII-normalized base filenames to raw content.
	Entries map[string][]byte

	// jsonEntries lists the .json entry names in archive order; the first
	// one is the record index.
	jsonEntries []string

	// OrderToFilename maps document order tokens to entry filenames.
	OrderToFilename map[string]string

	// PDFCount is the number of PDF entries found in the archive.
	PDFCount int
}

// DeclaredDocumentCount returns the total number of documents the record
// declares across all steps.
func (b *ArchiveBundle) DeclaredDocumentCount() int {
	total := 0
	for _, tramite := range b.Record.Tramites {
		total += len(tramite.Documentos)
	}
	return total
}

// OpenArchive extracts a ZIP bundle and locates its record index.
//
// Only a structurally unreadable archive, a missing index, or an unparsable
// index is an error; everything else (unmatched PDFs, missing documents) is
// deferred to correlation.
func OpenArchive(data []byte) (*ArchiveBundle, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, WrapInputError(err, "hubo un error al leer el archivo ZIP")
	}

	bundle := &ArchiveBundle{
		Entries:         make(map[string][]byte),
		OrderToFilename: make(map[string]string),
	}

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		name := path.Base(normalizeASCII(entry.Name))
		content, err := readEntry(entry)
		if err != nil {
			return nil, WrapInputError(err, "hubo un error al leer el archivo ZIP")
		}
		bundle.Entries[name] = content

		if strings.HasSuffix(strings.ToLower(name), ".json") {
			bundle.jsonEntries = append(bundle.jsonEntries, name)
		}

		if strings.HasSuffix(strings.ToLower(name), ".pdf") {
			bundle.PDFCount++
			base := strings.TrimSuffix(name, path.Ext(name))
			if m := orderTokenRe.FindStringSubmatch(base); m != nil {
				bundle.OrderToFilename[m[1]] = name
			}
		}
	}

	if err := bundle.locateIndex(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// locateIndex parses the record from the first .json entry in archive order.
func (b *ArchiveBundle) locateIndex() error {
	if len(b.jsonEntries) == 0 {
		return NewInputError("no se encontró el archivo índice JSON en el ZIP")
	}

	name := b.jsonEntries[0]
	content := b.Entries[name]
	if !json.Valid(content) {
		return NewInputError(fmt.Sprintf("el archivo %s no es un JSON válido", name))
	}
	record, err := ParseRecord(content)
	if err != nil {
		return NewInputError(fmt.Sprintf("el archivo %s no contiene un expediente válido", name))
	}
	b.Record = record
	b.IndexFilename = name
	return nil
}

// LookupDocument correlates a declared order number to an archive entry.
func (b *ArchiveBundle) LookupDocument(orden int) (filename string, content []byte, ok bool) {
	filename, ok = b.OrderToFilename[fmt.Sprintf("%d", orden)]
	if !ok {
		return "", nil, false
	}
	return filename, b.Entries[filename], true
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// normalizeASCII decomposes a name (NFKD) and drops every non-ASCII rune,
// matching how filenames were normalized when the bundle was produced.
func normalizeASCII(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
