package tools

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teamcutter/csharpls/internal/domain"
)

type staticCatalog struct {
	release *domain.Release
	err     error
	opts    domain.ReleaseOptions
}

func (s *staticCatalog) Latest(ctx context.Context, repo string, opts domain.ReleaseOptions) (*domain.Release, error) {
	s.opts = opts
	return s.release, s.err
}

func TestVSCodeCSharpPlatform(t *testing.T) {
	cases := map[Platform]string{
		{GOOS: "darwin", GOARCH: "arm64"}:  "darwin-arm64",
		{GOOS: "darwin", GOARCH: "amd64"}:  "darwin-x64",
		{GOOS: "linux", GOARCH: "arm64"}:   "linux-arm64",
		{GOOS: "linux", GOARCH: "amd64"}:   "linux-x64",
		{GOOS: "windows", GOARCH: "arm64"}: "win32-arm64",
		{GOOS: "windows", GOARCH: "amd64"}: "win32-x64",
	}
	for p, want := range cases {
		got, err := VSCodeCSharp{Target: p}.Platform()
		if err != nil || got != want {
			t.Errorf("%v: got %q, %v; want %q", p, got, err, want)
		}
	}

	_, err := VSCodeCSharp{Target: Platform{GOOS: "linux", GOARCH: "386"}}.Platform()
	if !errors.Is(err, domain.ErrPlatformUnsupported) {
		t.Fatalf("expected ErrPlatformUnsupported, got %v", err)
	}
}

func TestVSCodeCSharpPaths(t *testing.T) {
	dir := filepath.Join("root", "vscode-csharp-2.0")

	unix := VSCodeCSharp{Target: Platform{GOOS: "linux", GOARCH: "amd64"}}
	if got, want := unix.BinaryPath(dir), filepath.Join(dir, "extension", ".roslyn", "Microsoft.CodeAnalysis.LanguageServer"); got != want {
		t.Fatalf("BinaryPath = %s, want %s", got, want)
	}

	win := VSCodeCSharp{Target: Platform{GOOS: "windows", GOARCH: "amd64"}}
	if got := win.RazorPath(dir); !strings.HasSuffix(got, filepath.Join(".razor", "rzls.exe")) {
		t.Fatalf("RazorPath = %s", got)
	}

	u, err := unix.DownloadURL(context.Background(), "2.63.32", "linux-x64")
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if !strings.Contains(u, "/csharp/2.63.32/") || !strings.HasSuffix(u, "targetPlatform=linux-x64") {
		t.Fatalf("unexpected url %s", u)
	}
}

func TestNetcoredbgPlatform(t *testing.T) {
	cases := map[Platform]string{
		{GOOS: "linux", GOARCH: "arm64"}:   "linux-arm64",
		{GOOS: "linux", GOARCH: "386"}:     "linux-x86",
		{GOOS: "darwin", GOARCH: "amd64"}:  "osx-x64",
		{GOOS: "windows", GOARCH: "amd64"}: "win-x64",
	}
	for p, want := range cases {
		got, err := Netcoredbg{Target: p}.Platform()
		if err != nil || got != want {
			t.Errorf("%v: got %q, %v; want %q", p, got, err, want)
		}
	}

	if _, err := (Netcoredbg{Target: Platform{GOOS: "freebsd", GOARCH: "amd64"}}).Platform(); !errors.Is(err, domain.ErrPlatformUnsupported) {
		t.Fatalf("expected ErrPlatformUnsupported, got %v", err)
	}
}

func TestNetcoredbgDownloadURL(t *testing.T) {
	catalog := &staticCatalog{release: &domain.Release{
		Tag: "v3.1.2",
		Assets: []domain.Asset{
			{Name: "netcoredbg-linux-x64.tar.gz", DownloadURL: "https://dl/linux-x64.tar.gz"},
			{Name: "netcoredbg-win-x64.zip", DownloadURL: "https://dl/win-x64.zip"},
		},
	}}

	linux := Netcoredbg{Catalog: catalog, Target: Platform{GOOS: "linux", GOARCH: "amd64"}}
	u, err := linux.DownloadURL(context.Background(), "3.1.2", "linux-x64")
	if err != nil || u != "https://dl/linux-x64.tar.gz" {
		t.Fatalf("DownloadURL = %q, %v", u, err)
	}
	if !catalog.opts.RequireAssets {
		t.Fatal("expected assets to be required")
	}

	win := Netcoredbg{Catalog: catalog, Target: Platform{GOOS: "windows", GOARCH: "amd64"}}
	if u, err := win.DownloadURL(context.Background(), "3.1.2", "win-x64"); err != nil || u != "https://dl/win-x64.zip" {
		t.Fatalf("DownloadURL = %q, %v", u, err)
	}

	_, err = linux.DownloadURL(context.Background(), "3.1.2", "linux-arm64")
	if err == nil || !strings.Contains(err.Error(), "netcoredbg-linux-x64.tar.gz, netcoredbg-win-x64.zip") {
		t.Fatalf("expected available asset list, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	tool, err := Lookup("netcoredbg", nil, Platform{})
	if err != nil || tool.Repo() != "marcptrs/netcoredbg" {
		t.Fatalf("Lookup = %v, %v", tool, err)
	}
	if _, err := Lookup("omnisharp", nil, Platform{}); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}
