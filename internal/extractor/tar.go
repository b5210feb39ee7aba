package extractor

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/ulikunitz/xz"
)

type TARExtractor struct {
	log domain.Logger
}

func NewTAR(log domain.Logger) *TARExtractor {
	return &TARExtractor{log: log}
}

func (te *TARExtractor) Extract(data []byte, root *os.Root) error {
	reader, cleanup, err := te.getDecompressor(data)
	if err != nil {
		return &domain.ExtractionError{Op: "open tar archive", Err: err}
	}
	if cleanup != nil {
		defer cleanup()
	}

	tr := tar.NewReader(reader)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return &domain.ExtractionError{Op: "read tar entry", Err: err}
		}

		if header.Name == "" {
			continue
		}

		rel, ok := resolve(header.Name)
		if !ok {
			te.log.Warn("extract: skipping entry with invalid path", "name", header.Name)
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := root.MkdirAll(rel, 0755); err != nil {
				return &domain.ExtractionError{Entry: header.Name, Op: "create directory", Err: err}
			}
		case tar.TypeReg:
			if err := te.extractFile(root, tr, header, rel); err != nil {
				return err
			}
			te.log.Debug("extract: wrote entry", "name", header.Name, "bytes", header.Size)
		case tar.TypeSymlink:
			if !linkStaysInside(root, rel, header.Linkname) {
				te.log.Warn("extract: skipping symlink leaving destination", "name", header.Name, "target", header.Linkname)
				continue
			}
			root.Remove(rel)
			if err := root.Symlink(header.Linkname, rel); err != nil {
				return &domain.ExtractionError{Entry: header.Name, Op: "create symlink", Err: err}
			}
		}
	}
	return nil
}

func (te *TARExtractor) extractFile(root *os.Root, tr *tar.Reader, header *tar.Header, rel string) error {
	if err := mkdirParent(root, rel); err != nil {
		return &domain.ExtractionError{Entry: header.Name, Op: "create parent directory for", Err: err}
	}

	outFile, err := root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode(header.FileInfo().Mode()))
	if err != nil {
		return &domain.ExtractionError{Entry: header.Name, Op: "create file", Err: err}
	}

	n, err := io.Copy(outFile, tr)
	if err != nil {
		outFile.Close()
		return &domain.ExtractionError{Entry: header.Name, Op: "copy file", Err: err}
	}
	if n != header.Size {
		outFile.Close()
		return &domain.ExtractionError{
			Entry: header.Name,
			Op:    "copy file",
			Err:   fmt.Errorf("incomplete write: %d of %d bytes", n, header.Size),
		}
	}

	if err := outFile.Close(); err != nil {
		return &domain.ExtractionError{Entry: header.Name, Op: "close file", Err: err}
	}
	return nil
}

// linkStaysInside reports whether a symlink at rel pointing to linkname
// resolves inside root. The parent is resolved on disk, since earlier
// entries may have turned one of its components into a symlink.
func linkStaysInside(root *os.Root, rel, linkname string) bool {
	if filepath.IsAbs(linkname) {
		return false
	}
	if err := mkdirParent(root, rel); err != nil {
		return false
	}
	base, err := filepath.EvalSymlinks(root.Name())
	if err != nil {
		return false
	}
	parent, err := filepath.EvalSymlinks(filepath.Join(root.Name(), filepath.Dir(rel)))
	if err != nil {
		return false
	}
	inside, err := filepath.Rel(base, filepath.Join(parent, linkname))
	if err != nil {
		return false
	}
	return filepath.IsLocal(inside)
}

// https://gist.github.com/leommoore/f9e57ba2aa4bf197ebc5
func (te *TARExtractor) getDecompressor(data []byte) (io.Reader, func(), error) {
	header := data[:min(len(data), 6)]
	n := len(header)
	src := bytes.NewReader(data)

	switch {
	case n >= 4 && header[0] == 0x28 && header[1] == 0xb5 && header[2] == 0x2f && header[3] == 0xfd:
		// zstd: 0x28B52FFD
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, func() { zr.Close() }, nil

	case n >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		// gzip: 0x1F8B
		gzr, err := gzip.NewReader(src)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return gzr, func() { gzr.Close() }, nil

	case n >= 6 && header[0] == 0xfd && header[1] == 0x37 && header[2] == 0x7a && header[3] == 0x58 && header[4] == 0x5a && header[5] == 0x00:
		// xz: 0xFD377A585A00
		xzr, err := xz.NewReader(src)
		if err != nil {
			return nil, nil, fmt.Errorf("xz: %w", err)
		}
		return xzr, nil, nil

	case n >= 3 && header[0] == 0x42 && header[1] == 0x5a && header[2] == 0x68:
		// bzip2: "BZh"
		return bzip2.NewReader(src), nil, nil

	default:
		return src, nil, nil
	}
}
