package domain

import (
	"context"
)

// Tool describes one installable tool. Implementations must be
// deterministic and must not mutate shared state.
type Tool interface {
	// Name is the directory prefix and version-sort key.
	Name() string
	// Repo is the release catalog project, e.g. "dotnet/vscode-csharp".
	Repo() string
	DisplayName() string
	Platform() (string, error)
	DownloadURL(ctx context.Context, version, platform string) (string, error)
	BinaryPath(versionDir string) string
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type StatusSink interface {
	SetStatus(s Status)
}

type Catalog interface {
	Latest(ctx context.Context, repo string, opts ReleaseOptions) (*Release, error)
}

type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

type Extractor interface {
	Extract(data []byte, dst string) error
}

type Installer interface {
	FetchAndExtract(ctx context.Context, url, dst string, maxAttempts int) error
}

type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, data []byte) error
	Size() (int64, error)
	Clear() error
}

// Ledger records installations. Begin marks one as in progress; a pending
// entry that never reaches Record is rolled back on the next open.
type Ledger interface {
	Begin(tool *InstalledTool) error
	Record(tool *InstalledTool) error
	ListInstalled() (map[string]*InstalledTool, error)
}
