package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/teamcutter/csharpls/internal/domain"
)

// Netcoredbg is the Samsung netcoredbg debug adapter. Download URLs come
// from the release's published assets.
type Netcoredbg struct {
	Catalog domain.Catalog
	Target  Platform
}

func (Netcoredbg) Name() string        { return "netcoredbg" }
func (Netcoredbg) Repo() string        { return "marcptrs/netcoredbg" }
func (Netcoredbg) DisplayName() string { return "netcoredbg" }

func (n Netcoredbg) Platform() (string, error) {
	p := n.Target

	var osName string
	switch p.goos() {
	case "linux":
		osName = "linux"
	case "darwin":
		osName = "osx"
	case "windows":
		osName = "win"
	default:
		return "", p.unsupported()
	}

	var arch string
	switch p.goarch() {
	case "arm64":
		arch = "arm64"
	case "386":
		arch = "x86"
	case "amd64":
		arch = "x64"
	default:
		return "", p.unsupported()
	}

	return osName + "-" + arch, nil
}

// AssetName is the release asset for platform: zip on Windows, tar.gz
// elsewhere.
func (n Netcoredbg) AssetName(platform string) string {
	ext := "tar.gz"
	if n.Target.IsWindows() {
		ext = "zip"
	}
	return fmt.Sprintf("netcoredbg-%s.%s", platform, ext)
}

func (n Netcoredbg) DownloadURL(ctx context.Context, _ string, platform string) (string, error) {
	if n.Catalog == nil {
		return "", fmt.Errorf("failed to fetch netcoredbg release: no release catalog configured")
	}

	release, err := n.Catalog.Latest(ctx, n.Repo(), domain.ReleaseOptions{RequireAssets: true})
	if err != nil {
		return "", fmt.Errorf("failed to fetch netcoredbg release: %w", err)
	}

	want := n.AssetName(platform)
	for _, asset := range release.Assets {
		if asset.Name == want {
			return asset.DownloadURL, nil
		}
	}

	return "", fmt.Errorf("no compatible netcoredbg asset found for platform '%s'. available: [%s]",
		platform, strings.Join(release.AssetNames(), ", "))
}

func (n Netcoredbg) BinaryPath(versionDir string) string {
	return join(versionDir, n.Target.Exe("netcoredbg"))
}
