package tools

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/teamcutter/csharpls/internal/domain"
)

// Platform identifies the OS and architecture a tool is installed for.
// The zero value means the running process's platform.
type Platform struct {
	GOOS   string
	GOARCH string
}

func (p Platform) goos() string {
	if p.GOOS == "" {
		return runtime.GOOS
	}
	return p.GOOS
}

func (p Platform) goarch() string {
	if p.GOARCH == "" {
		return runtime.GOARCH
	}
	return p.GOARCH
}

func (p Platform) IsWindows() bool { return p.goos() == "windows" }

// Exe appends ".exe" on Windows.
func (p Platform) Exe(name string) string {
	if p.IsWindows() {
		return name + ".exe"
	}
	return name
}

func (p Platform) unsupported() error {
	return fmt.Errorf("%s/%s: %w", p.goos(), p.goarch(), domain.ErrPlatformUnsupported)
}

// join builds a path below versionDir from slash-separated parts.
func join(versionDir string, parts ...string) string {
	return filepath.Join(append([]string{versionDir}, parts...)...)
}
