package extractor

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/teamcutter/csharpls/internal/domain"
)

type ZIPExtractor struct {
	log domain.Logger
}

func NewZIP(log domain.Logger) *ZIPExtractor {
	return &ZIPExtractor{log: log}
}

func (ze *ZIPExtractor) Extract(data []byte, root *os.Root) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return &domain.ExtractionError{Op: "open zip archive", Err: err}
	}

	ze.log.Debug("extract: zip archive", "entries", len(r.File))

	for i, f := range r.File {
		if f.Name == "" {
			continue
		}

		rel, ok := resolve(f.Name)
		if !ok {
			ze.log.Warn("extract: skipping entry with invalid path", "index", i, "name", f.Name)
			continue
		}

		if f.FileInfo().IsDir() {
			if err := root.MkdirAll(rel, 0755); err != nil {
				return &domain.ExtractionError{Entry: f.Name, Op: "create directory", Err: err}
			}
			continue
		}

		if err := ze.extractFile(root, f, rel); err != nil {
			return err
		}

		ze.log.Debug("extract: wrote entry", "name", f.Name, "bytes", f.UncompressedSize64)
	}

	return nil
}

func (ze *ZIPExtractor) extractFile(root *os.Root, f *zip.File, rel string) error {
	if err := mkdirParent(root, rel); err != nil {
		return &domain.ExtractionError{Entry: f.Name, Op: "create parent directory for", Err: err}
	}

	rc, err := f.Open()
	if err != nil {
		return &domain.ExtractionError{Entry: f.Name, Op: "read zip entry", Err: err}
	}
	defer rc.Close()

	outFile, err := root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode(f.Mode()))
	if err != nil {
		return &domain.ExtractionError{Entry: f.Name, Op: "create file", Err: err}
	}

	n, err := io.Copy(outFile, rc)
	if err != nil {
		outFile.Close()
		return &domain.ExtractionError{Entry: f.Name, Op: "copy file", Err: err}
	}
	if uint64(n) != f.UncompressedSize64 {
		outFile.Close()
		return &domain.ExtractionError{
			Entry: f.Name,
			Op:    "copy file",
			Err:   fmt.Errorf("incomplete write: %d of %d bytes", n, f.UncompressedSize64),
		}
	}

	if err := outFile.Close(); err != nil {
		return &domain.ExtractionError{Entry: f.Name, Op: "close file", Err: err}
	}
	return nil
}
