package expediente

// trust.go decides whether a signer's certificate chain anchors in the
// locally configured trusted-certificate store.
//
// The store is a directory of raw certificate files; each file's SHA-256
// fingerprint is a trust anchor. DSS identifies certificates in a chain by
// the same fingerprint, prefixed with "C-", so matching is a fingerprint
// set lookup - no chain building or path validation happens here.
//
// The store is re-read on every call. It is small, read-only and safe for
// concurrent access; a cached snapshot with refresh semantics is a possible
// optimization but would add invalidation concerns this service doesn't
// need yet.

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobdigital/firmador/internal/dss"
)

// TrustValidator checks certificate chains against the trust anchor store.
type TrustValidator struct {
	dir      string
	failOpen bool
	logger   *slog.Logger
}

// NewTrustValidator creates a trust validator over the given directory.
//
// failOpen controls behavior when the store is absent or empty: true treats
// every chain as trusted (historical dev behavior), false rejects every
// chain until anchors are provisioned.
func NewTrustValidator(dir string, failOpen bool, logger *slog.Logger) *TrustValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrustValidator{dir: dir, failOpen: failOpen, logger: logger}
}

// ValidateChain reports whether any chain item's certificate identifier
// matches a trust anchor fingerprint.
//
// Unreadable individual store files are skipped and logged, never fatal.
func (v *TrustValidator) ValidateChain(chain []dss.ChainItem) bool {
	anchors := v.loadAnchors()

	if len(anchors) == 0 {
		v.logger.Warn("trusted certificate store is empty",
			slog.String("dir", v.dir),
			slog.Bool("fail_open", v.failOpen))
		return v.failOpen
	}

	for _, item := range chain {
		fingerprint := strings.ToLower(strings.TrimPrefix(item.Certificate, "C-"))
		if anchors[fingerprint] {
			return true
		}
	}
	return false
}

// loadAnchors reads the store directory and returns the fingerprint set.
func (v *TrustValidator) loadAnchors() map[string]bool {
	entries, err := os.ReadDir(v.dir)
	if err != nil {
		v.logger.Warn("failed to read trusted certificate store",
			slog.String("dir", v.dir),
			slog.String("error", err.Error()))
		return nil
	}

	anchors := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".crt") {
			continue
		}

		path := filepath.Join(v.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			v.logger.Warn("skipping unreadable trusted certificate",
				slog.String("file", path),
				slog.String("error", err.Error()))
			continue
		}
		anchors[SHA256Hex(data)] = true
	}
	return anchors
}
