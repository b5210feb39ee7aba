package extractor

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/logx"
)

type Extractor struct {
	log domain.Logger
	tar *TARExtractor
	zip *ZIPExtractor
}

func New(log domain.Logger) *Extractor {
	if log == nil {
		log = logx.Nop()
	}
	return &Extractor{
		log: log,
		tar: NewTAR(log),
		zip: NewZIP(log),
	}
}

// Extract unpacks an in-memory archive into dst. The format is sniffed
// from the leading bytes; anything that is not a zip is treated as a
// (possibly compressed) tar stream.
func (e *Extractor) Extract(data []byte, dst string) error {
	e.log.Debug("extract: starting", "bytes", len(data), "destination", dst)

	if err := os.MkdirAll(dst, 0755); err != nil {
		return &domain.ExtractionError{Op: "create destination directory", Err: err}
	}

	root, err := os.OpenRoot(dst)
	if err != nil {
		return &domain.ExtractionError{Op: "open destination directory", Err: err}
	}
	defer root.Close()

	if isZip(data) {
		return e.zip.Extract(data, root)
	}
	return e.tar.Extract(data, root)
}

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04")) || bytes.HasPrefix(data, []byte("PK\x05\x06"))
}

// resolve maps an archive entry name to a clean path relative to the
// destination root. ok is false for entries that must be skipped: names
// that escape the root and names that resolve to the root itself.
func resolve(name string) (rel string, ok bool) {
	rel = filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", false
	}
	rel = filepath.Clean(rel)
	if rel == "." {
		return "", false
	}
	return rel, true
}

// mkdirParent creates the parent of rel inside root. Writes go through
// root so a parent reached via an extracted symlink cannot leave it.
func mkdirParent(root *os.Root, rel string) error {
	parent := filepath.Dir(rel)
	if parent == "." {
		return nil
	}
	return root.MkdirAll(parent, 0755)
}

func fileMode(mode os.FileMode) os.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0644
	}
	return perm | 0600
}
