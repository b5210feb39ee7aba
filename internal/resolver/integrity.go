package resolver

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/teamcutter/csharpls/internal/domain"
)

// minPESize is the size below which a PE executable is suspicious.
const minPESize = 100_000

var peMagic = [2]byte{0x4d, 0x5a} // "MZ"

func verifyHeader(path, name string, log domain.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s binary: %w", name, err)
	}
	log.Debug("resolve: binary size", "binary", name, "bytes", info.Size())
	if info.Size() < minPESize {
		log.Error("resolve: binary appears too small", "binary", name, "bytes", info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		log.Warn("resolve: cannot open binary for header check", "binary", name, "error", err)
		return nil
	}
	defer f.Close()

	var header [2]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		log.Warn("resolve: binary too small for header check", "binary", name, "error", err)
		return nil
	}

	if header != peMagic {
		log.Error("resolve: binary has invalid header", "binary", name, "header", fmt.Sprintf("%02x%02x", header[0], header[1]))
		return fmt.Errorf("%s binary has invalid PE header signature: %w", name, domain.ErrBinaryIntegrity)
	}

	log.Debug("resolve: binary has valid PE header", "binary", name)
	return nil
}

func makeExecutable(path string, log domain.Logger) {
	if runtime.GOOS == "windows" {
		return
	}
	if err := os.Chmod(path, 0755); err != nil {
		log.Warn("resolve: failed to mark binary executable", "path", path, "error", err)
	}
}
