package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/logx"
)

const (
	DefaultMaxAttempts = 3
	DefaultMaxPolls    = 50
	pollLogEvery       = 5
)

// Resolver finds, and if needed installs, the current version directory
// of a single tool. It is not safe for concurrent use.
type Resolver struct {
	tool      domain.Tool
	catalog   domain.Catalog
	installer domain.Installer
	ledger    domain.Ledger
	log       domain.Logger

	root        string
	maxAttempts int
	maxPolls    int
	backoff     Backoff
	checkHeader bool

	cached string
}

type Option func(*Resolver)

// WithRoot sets the directory holding version directories. Defaults to
// the working directory.
func WithRoot(dir string) Option {
	return func(r *Resolver) { r.root = dir }
}

func WithLogger(l domain.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

func WithLedger(l domain.Ledger) Option {
	return func(r *Resolver) { r.ledger = l }
}

func WithMaxAttempts(n int) Option {
	return func(r *Resolver) { r.maxAttempts = n }
}

func WithPolling(maxPolls int, b Backoff) Option {
	return func(r *Resolver) {
		r.maxPolls = maxPolls
		r.backoff = b
	}
}

// WithHeaderCheck toggles the PE header check. It is on by default only
// on Windows.
func WithHeaderCheck(enabled bool) Option {
	return func(r *Resolver) { r.checkHeader = enabled }
}

func New(tool domain.Tool, catalog domain.Catalog, installer domain.Installer, opts ...Option) *Resolver {
	r := &Resolver{
		tool:        tool,
		catalog:     catalog,
		installer:   installer,
		log:         logx.Nop(),
		root:        ".",
		maxAttempts: DefaultMaxAttempts,
		maxPolls:    DefaultMaxPolls,
		backoff:     NoDelay,
		checkHeader: runtime.GOOS == "windows",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Tool() domain.Tool { return r.tool }

// Resolve returns the absolute path of the version directory to use.
func (r *Resolver) Resolve(ctx context.Context, sink domain.StatusSink) (string, error) {
	if sink == nil {
		sink = domain.NopSink{}
	}

	dir, err := r.resolve(ctx, sink)
	if err != nil {
		sink.SetStatus(domain.Failed(err.Error()))
		return "", err
	}
	return dir, nil
}

func (r *Resolver) resolve(ctx context.Context, sink domain.StatusSink) (string, error) {
	prefix := r.tool.Name()
	log := r.log

	log.Debug("resolve: starting version check", "tool", prefix)

	if r.cached != "" && isDir(r.cached) {
		log.Debug("resolve: using cached version directory", "tool", prefix, "path", r.cached)
		return r.cached, nil
	}
	r.cached = ""

	local, err := r.latestLocal()
	if err != nil {
		return "", err
	}

	sink.SetStatus(domain.Status{Kind: domain.StatusCheckingForUpdate})

	remote := r.latestRemote(ctx)

	version, ok := SelectVersion(local, remote)
	if !ok {
		return "", fmt.Errorf("no %s version found locally and cannot check GitHub for updates: %w",
			prefix, domain.ErrNoVersionAvailable)
	}
	log.Debug("resolve: selected version", "tool", prefix, "local", local, "remote", remote, "version", version)

	versionDir := filepath.Join(r.root, domain.VersionDirName(prefix, version))

	if isDir(versionDir) {
		if isFile(r.tool.BinaryPath(versionDir)) {
			log.Debug("resolve: validated existing directory", "tool", prefix, "path", versionDir)
			sink.SetStatus(domain.Status{Kind: domain.StatusNone})
			return r.remember(versionDir)
		}
		log.Warn("resolve: found incomplete directory, removing", "tool", prefix, "path", versionDir)
		os.RemoveAll(versionDir)
	}

	url, err := r.install(ctx, sink, version, versionDir)
	if err != nil {
		return "", err
	}

	binary := r.tool.BinaryPath(versionDir)
	makeExecutable(binary, log)
	r.prune(versionDir)

	sink.SetStatus(domain.Status{Kind: domain.StatusNone})

	abs, err := r.remember(versionDir)
	if err != nil {
		return "", err
	}
	r.record(version, abs, url)
	return abs, nil
}

// install materializes versionDir and returns the URL it was fetched from.
func (r *Resolver) install(ctx context.Context, sink domain.StatusSink, version, versionDir string) (string, error) {
	prefix := r.tool.Name()

	platform, err := r.tool.Platform()
	if err != nil {
		return "", fmt.Errorf("%s: failed to determine platform: %w", prefix, err)
	}

	sink.SetStatus(domain.Status{Kind: domain.StatusDownloading})

	if err := os.MkdirAll(versionDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create version directory %s: %w", versionDir, err)
	}
	r.log.Debug("resolve: created directory", "tool", prefix, "path", versionDir)

	url, err := r.tool.DownloadURL(ctx, version, platform)
	if err != nil {
		return "", err
	}
	r.log.Debug("resolve: downloading", "tool", prefix, "url", url)
	r.begin(version, versionDir, url)

	if err := r.installer.FetchAndExtract(ctx, url, versionDir, r.maxAttempts); err != nil {
		return "", err
	}

	binary := r.tool.BinaryPath(versionDir)
	polls, found := r.poll(ctx, binary)
	if !found {
		r.log.Error("resolve: binary not found after polling",
			"tool", prefix, "binary", r.tool.DisplayName(), "path", binary, "polls", polls)
		os.RemoveAll(versionDir)
		return "", fmt.Errorf("failed to download %s: %w", prefix, domain.ErrBinaryNotFound)
	}

	if r.checkHeader {
		if err := verifyHeader(binary, r.tool.DisplayName(), r.log); err != nil {
			os.RemoveAll(versionDir)
			return "", err
		}
	}

	r.log.Debug("resolve: downloaded and extracted", "tool", prefix, "path", versionDir, "polls", polls)
	return url, nil
}

// poll waits for path to show up; extraction may finish before antivirus
// scanners or file lockers release new files.
func (r *Resolver) poll(ctx context.Context, path string) (int, bool) {
	if isFile(path) {
		return 0, true
	}

	for n := 1; n <= r.maxPolls; n++ {
		if d := r.backoff(n); d > 0 {
			select {
			case <-ctx.Done():
				return n, false
			case <-time.After(d):
			}
		}
		if isFile(path) {
			return n, true
		}
		if n%pollLogEvery == 0 {
			r.log.Debug("resolve: polling for binary",
				"binary", r.tool.DisplayName(), "poll", n, "max", r.maxPolls)
		}
	}
	return r.maxPolls, false
}

func (r *Resolver) latestLocal() (string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return "", fmt.Errorf("failed to list working directory: %w", err)
	}

	marker := r.tool.Name() + "-"
	var latest string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, marker) || !isDir(filepath.Join(r.root, name)) {
			continue
		}
		if v := strings.TrimPrefix(name, marker); v > latest {
			latest = v
		}
	}
	return latest, nil
}

func (r *Resolver) latestRemote(ctx context.Context) string {
	if r.catalog == nil {
		return ""
	}
	release, err := r.catalog.Latest(ctx, r.tool.Repo(), domain.ReleaseOptions{})
	if err != nil {
		r.log.Warn("resolve: release catalog unavailable", "tool", r.tool.Name(), "error", err)
		return ""
	}
	return domain.TrimTag(release.Tag)
}

// prune removes every other version directory of the tool. Failures are
// ignored.
func (r *Resolver) prune(keep string) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		r.log.Warn("resolve: failed to list directory for pruning", "error", err)
		return
	}

	marker := r.tool.Name() + "-"
	keepName := filepath.Base(keep)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, marker) || name == keepName || !e.IsDir() {
			continue
		}
		r.log.Debug("resolve: removing old version", "path", name)
		os.RemoveAll(filepath.Join(r.root, name))
	}
}

func (r *Resolver) remember(versionDir string) (string, error) {
	abs, err := filepath.Abs(versionDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path of %s: %w", versionDir, err)
	}
	r.cached = abs
	return abs, nil
}

func (r *Resolver) entry(version, dir, url string) *domain.InstalledTool {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &domain.InstalledTool{
		Name:        r.tool.Name(),
		Version:     version,
		Path:        dir,
		BinaryPath:  r.tool.BinaryPath(dir),
		URL:         url,
		InstalledAt: time.Now(),
	}
}

func (r *Resolver) begin(version, dir, url string) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.Begin(r.entry(version, dir, url)); err != nil {
		r.log.Warn("resolve: failed to mark install pending", "tool", r.tool.Name(), "error", err)
	}
}

func (r *Resolver) record(version, dir, url string) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.Record(r.entry(version, dir, url)); err != nil {
		r.log.Warn("resolve: failed to record install", "tool", r.tool.Name(), "error", err)
	}
}

// SelectVersion picks remote when it sorts after local, or when there is
// no local version. Comparison is plain string ordering, so "10.0" sorts
// before "9.0".
func SelectVersion(local, remote string) (string, bool) {
	switch {
	case remote != "" && (local == "" || remote > local):
		return remote, true
	case local != "":
		return local, true
	default:
		return "", false
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
