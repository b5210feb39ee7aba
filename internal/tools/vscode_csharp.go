package tools

import (
	"context"
	"fmt"
	"net/url"
)

const galleryURL = "https://ms-dotnettools.gallery.vsassets.io/_apis/public/gallery/publisher/ms-dotnettools/extension/csharp/%s/assetbyname/Microsoft.VisualStudio.Services.VSIXPackage?redirect=true&targetPlatform=%s"

// VSCodeCSharp is the VS Code C# extension package. Its VSIX carries both
// the Roslyn and the Razor language servers. The release catalog is only
// used for the version; the archive comes from the VS Code gallery.
type VSCodeCSharp struct {
	Target Platform
}

func (VSCodeCSharp) Name() string        { return "vscode-csharp" }
func (VSCodeCSharp) Repo() string        { return "dotnet/vscode-csharp" }
func (VSCodeCSharp) DisplayName() string { return "Roslyn" }

func (v VSCodeCSharp) Platform() (string, error) {
	p := v.Target
	switch p.goos() + "/" + p.goarch() {
	case "darwin/arm64":
		return "darwin-arm64", nil
	case "darwin/amd64":
		return "darwin-x64", nil
	case "linux/arm64":
		return "linux-arm64", nil
	case "linux/amd64":
		return "linux-x64", nil
	case "windows/arm64":
		return "win32-arm64", nil
	case "windows/amd64":
		return "win32-x64", nil
	}
	return "", p.unsupported()
}

func (VSCodeCSharp) DownloadURL(_ context.Context, version, platform string) (string, error) {
	return fmt.Sprintf(galleryURL, url.PathEscape(version), url.QueryEscape(platform)), nil
}

func (v VSCodeCSharp) BinaryPath(versionDir string) string {
	return v.RoslynPath(versionDir)
}

func (v VSCodeCSharp) RoslynPath(versionDir string) string {
	return join(versionDir, "extension", ".roslyn", v.Target.Exe("Microsoft.CodeAnalysis.LanguageServer"))
}

func (v VSCodeCSharp) RazorPath(versionDir string) string {
	return join(versionDir, "extension", ".razor", v.Target.Exe("rzls"))
}
