package resolver

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/extractor"
	"github.com/teamcutter/csharpls/internal/fetcher"
	"github.com/teamcutter/csharpls/internal/installer"
)

type fakeTool struct {
	platformErr error
	urlErr      error
	url         string
}

func (fakeTool) Name() string        { return "tool" }
func (fakeTool) Repo() string        { return "owner/tool" }
func (fakeTool) DisplayName() string { return "Tool" }

func (f fakeTool) Platform() (string, error) {
	if f.platformErr != nil {
		return "", f.platformErr
	}
	return "linux-x64", nil
}

func (f fakeTool) DownloadURL(ctx context.Context, version, platform string) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	if f.url != "" {
		return f.url, nil
	}
	return "https://example.invalid/tool-" + version + "-" + platform + ".zip", nil
}

func (fakeTool) BinaryPath(versionDir string) string {
	return filepath.Join(versionDir, "bin", "tool")
}

type fakeCatalog struct {
	tag   string
	err   error
	calls int
}

func (c *fakeCatalog) Latest(ctx context.Context, repo string, opts domain.ReleaseOptions) (*domain.Release, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &domain.Release{Tag: c.tag, Version: domain.TrimTag(c.tag)}, nil
}

// fakeInstaller writes content to the binary path unless content is nil.
type fakeInstaller struct {
	content []byte
	err     error
	calls   int
	urls    []string
}

func (f *fakeInstaller) FetchAndExtract(ctx context.Context, url, dst string, maxAttempts int) error {
	f.calls++
	f.urls = append(f.urls, url)
	if f.err != nil {
		return f.err
	}
	if f.content == nil {
		return nil
	}
	bin := fakeTool{}.BinaryPath(dst)
	if err := os.MkdirAll(filepath.Dir(bin), 0755); err != nil {
		return err
	}
	return os.WriteFile(bin, f.content, 0644)
}

type recordingSink struct{ got []domain.Status }

func (s *recordingSink) SetStatus(st domain.Status) { s.got = append(s.got, st) }

type memLedger struct {
	pending []*domain.InstalledTool
	tools   []*domain.InstalledTool
}

func (m *memLedger) Begin(t *domain.InstalledTool) error {
	m.pending = append(m.pending, t)
	return nil
}

func (m *memLedger) Record(t *domain.InstalledTool) error {
	m.tools = append(m.tools, t)
	return nil
}

func (m *memLedger) ListInstalled() (map[string]*domain.InstalledTool, error) {
	out := make(map[string]*domain.InstalledTool)
	for _, t := range m.tools {
		out[t.Name] = t
	}
	return out, nil
}

func installLocal(t *testing.T, root, version string) string {
	t.Helper()
	dir := filepath.Join(root, "tool-"+version)
	bin := fakeTool{}.BinaryPath(dir)
	if err := os.MkdirAll(filepath.Dir(bin), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bin, []byte("bin"), 0755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSelectVersion(t *testing.T) {
	cases := []struct {
		local, remote string
		want          string
		ok            bool
	}{
		{"2.0", "3.0", "3.0", true},
		{"3.0", "2.0", "3.0", true},
		{"3.0", "", "3.0", true},
		{"", "3.0", "3.0", true},
		// plain string ordering: "9.0" sorts after "10.0"
		{"10.0", "9.0", "9.0", true},
		{"9.0", "10.0", "9.0", true},
		{"", "", "", false},
	}

	for _, tc := range cases {
		got, ok := SelectVersion(tc.local, tc.remote)
		if got != tc.want || ok != tc.ok {
			t.Errorf("SelectVersion(%q, %q) = %q, %v; want %q, %v", tc.local, tc.remote, got, ok, tc.want, tc.ok)
		}
	}
}

// Versions compare as plain strings on purpose, so a remote "9.0" replaces a
// local "10.0". Do not switch this to semver ordering.
func TestResolveComparesVersionsAsStrings(t *testing.T) {
	root := t.TempDir()
	local := installLocal(t, root, "10.0")
	inst := &fakeInstaller{content: []byte("bin")}

	r := New(fakeTool{}, &fakeCatalog{tag: "9.0"}, inst, WithRoot(root))
	dir, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// "9.0" > "10.0" as strings, so the remote release is installed.
	want, _ := filepath.Abs(filepath.Join(root, "tool-9.0"))
	if dir != want {
		t.Fatalf("Resolve = %s, want %s", dir, want)
	}
	if exists(local) {
		t.Fatal("expected tool-10.0 to be pruned")
	}
}

func TestResolveIsIdempotentAndCached(t *testing.T) {
	root := t.TempDir()
	installLocal(t, root, "3.0")
	catalog := &fakeCatalog{tag: "v2.0"}
	inst := &fakeInstaller{}

	r := New(fakeTool{}, catalog, inst, WithRoot(root))
	first, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}

	if first != second {
		t.Fatalf("paths differ: %s vs %s", first, second)
	}
	if catalog.calls != 1 {
		t.Fatalf("expected one catalog call, got %d", catalog.calls)
	}
	if inst.calls != 0 {
		t.Fatalf("expected no install, got %d", inst.calls)
	}
	if filepath.Base(first) != "tool-3.0" {
		t.Fatalf("expected local 3.0, got %s", first)
	}
}

func TestResolvePrefersNewerRemote(t *testing.T) {
	root := t.TempDir()
	old := installLocal(t, root, "2.0")
	ledger := &memLedger{}
	sink := &recordingSink{}
	inst := &fakeInstaller{content: []byte("bin")}

	r := New(fakeTool{}, &fakeCatalog{tag: "v3.0"}, inst, WithRoot(root), WithLedger(ledger))
	dir, err := r.Resolve(context.Background(), sink)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if filepath.Base(dir) != "tool-3.0" {
		t.Fatalf("expected tool-3.0, got %s", dir)
	}
	if !filepath.IsAbs(dir) {
		t.Fatalf("expected absolute path, got %s", dir)
	}
	if exists(old) {
		t.Fatal("expected tool-2.0 to be pruned")
	}
	if inst.urls[0] != "https://example.invalid/tool-3.0-linux-x64.zip" {
		t.Fatalf("unexpected url %s", inst.urls[0])
	}

	wantKinds := []domain.StatusKind{domain.StatusCheckingForUpdate, domain.StatusDownloading, domain.StatusNone}
	if len(sink.got) != len(wantKinds) {
		t.Fatalf("status updates = %v", sink.got)
	}
	for i, k := range wantKinds {
		if sink.got[i].Kind != k {
			t.Fatalf("status[%d] = %v, want %v", i, sink.got[i].Kind, k)
		}
	}

	if len(ledger.tools) != 1 || ledger.tools[0].Version != "3.0" || ledger.tools[0].Path != dir {
		t.Fatalf("unexpected ledger: %+v", ledger.tools)
	}
	if len(ledger.pending) != 1 || ledger.pending[0].Path != dir {
		t.Fatalf("expected install to be marked pending first: %+v", ledger.pending)
	}

	info, err := os.Stat(fakeTool{}.BinaryPath(dir))
	if err != nil {
		t.Fatalf("stat binary: %v", err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Fatalf("binary not executable: %v", info.Mode())
	}
}

func TestResolveFallsBackToLocalWhenOffline(t *testing.T) {
	root := t.TempDir()
	installLocal(t, root, "3.0")

	r := New(fakeTool{}, &fakeCatalog{err: domain.ErrNetwork}, &fakeInstaller{}, WithRoot(root))
	dir, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(dir) != "tool-3.0" {
		t.Fatalf("expected tool-3.0, got %s", dir)
	}
}

func TestResolveNoVersionAvailable(t *testing.T) {
	sink := &recordingSink{}
	r := New(fakeTool{}, &fakeCatalog{err: domain.ErrNetwork}, &fakeInstaller{}, WithRoot(t.TempDir()))

	_, err := r.Resolve(context.Background(), sink)
	if !errors.Is(err, domain.ErrNoVersionAvailable) {
		t.Fatalf("expected ErrNoVersionAvailable, got %v", err)
	}
	if last := sink.got[len(sink.got)-1]; last.Kind != domain.StatusFailed {
		t.Fatalf("expected failed status, got %v", last)
	}
}

func TestResolveRecoversCorruptedDirectory(t *testing.T) {
	root := t.TempDir()
	corrupt := filepath.Join(root, "tool-3.0")
	if err := os.MkdirAll(filepath.Join(corrupt, "partial"), 0755); err != nil {
		t.Fatal(err)
	}
	inst := &fakeInstaller{content: []byte("bin")}

	r := New(fakeTool{}, &fakeCatalog{tag: "3.0"}, inst, WithRoot(root))
	dir, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if inst.calls != 1 {
		t.Fatalf("expected fresh install, got %d calls", inst.calls)
	}
	if exists(filepath.Join(dir, "partial")) {
		t.Fatal("expected corrupted contents removed")
	}
	if !exists(fakeTool{}.BinaryPath(dir)) {
		t.Fatal("expected binary after recovery")
	}
}

func TestResolvePollingTimeout(t *testing.T) {
	root := t.TempDir()
	inst := &fakeInstaller{}

	r := New(fakeTool{}, &fakeCatalog{tag: "1.0"}, inst, WithRoot(root))
	_, err := r.Resolve(context.Background(), nil)
	if !errors.Is(err, domain.ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}
	if err.Error() != "failed to download tool: binary not found after extraction" {
		t.Fatalf("unexpected message: %s", err)
	}
	if exists(filepath.Join(root, "tool-1.0")) {
		t.Fatal("expected partial install removed")
	}
}

func TestResolvePollingWithBackoff(t *testing.T) {
	var delays []int
	b := func(n int) time.Duration {
		delays = append(delays, n)
		return 0
	}

	r := New(fakeTool{}, &fakeCatalog{tag: "1.0"}, &fakeInstaller{}, WithRoot(t.TempDir()), WithPolling(7, b))
	if _, err := r.Resolve(context.Background(), nil); !errors.Is(err, domain.ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}
	if len(delays) != 7 {
		t.Fatalf("expected 7 polls, got %d", len(delays))
	}
}

func TestResolvePlatformUnsupportedLeavesDiskUntouched(t *testing.T) {
	root := t.TempDir()
	tool := fakeTool{platformErr: domain.ErrPlatformUnsupported}

	r := New(tool, &fakeCatalog{tag: "1.0"}, &fakeInstaller{}, WithRoot(root))
	_, err := r.Resolve(context.Background(), nil)
	if !errors.Is(err, domain.ErrPlatformUnsupported) {
		t.Fatalf("expected ErrPlatformUnsupported, got %v", err)
	}
	if exists(filepath.Join(root, "tool-1.0")) {
		t.Fatal("expected no version directory")
	}
}

func TestResolveURLFailureKeepsEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	tool := fakeTool{urlErr: errors.New("no compatible asset")}
	inst := &fakeInstaller{}

	r := New(tool, &fakeCatalog{tag: "1.0"}, inst, WithRoot(root))
	if _, err := r.Resolve(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
	if !exists(filepath.Join(root, "tool-1.0")) {
		t.Fatal("expected empty directory left for the next attempt")
	}
	if inst.calls != 0 {
		t.Fatalf("installer called %d times", inst.calls)
	}
}

func TestResolveHeaderCheck(t *testing.T) {
	cases := []struct {
		name    string
		content []byte
		wantErr bool
	}{
		{"valid", append([]byte("MZ"), make([]byte, 16)...), false},
		{"elf", []byte("\x7fELF...."), true},
		{"tiny", []byte("M"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			r := New(fakeTool{}, &fakeCatalog{tag: "1.0"}, &fakeInstaller{content: tc.content},
				WithRoot(root), WithHeaderCheck(true))

			_, err := r.Resolve(context.Background(), nil)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrBinaryIntegrity) {
					t.Fatalf("expected ErrBinaryIntegrity, got %v", err)
				}
				if exists(filepath.Join(root, "tool-1.0")) {
					t.Fatal("expected directory removed")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
		})
	}
}

func TestResolveDropsStaleCache(t *testing.T) {
	root := t.TempDir()
	installLocal(t, root, "3.0")
	catalog := &fakeCatalog{err: domain.ErrNetwork}

	r := New(fakeTool{}, catalog, &fakeInstaller{}, WithRoot(root))
	first, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	os.RemoveAll(first)
	installLocal(t, root, "3.1")

	second, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(second) != "tool-3.1" {
		t.Fatalf("expected rescan to find 3.1, got %s", second)
	}
	if catalog.calls != 2 {
		t.Fatalf("expected catalog queried again, got %d", catalog.calls)
	}
}

func TestResolveEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("bin/tool")
	w.Write([]byte("binary"))
	zw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	root := t.TempDir()
	inst := installer.New(fetcher.New(5*time.Second), extractor.New(nil), nil)

	r := New(fakeTool{url: server.URL}, &fakeCatalog{tag: "v1.2.3"}, inst, WithRoot(root))
	dir, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	data, err := os.ReadFile(fakeTool{}.BinaryPath(dir))
	if err != nil || string(data) != "binary" {
		t.Fatalf("binary = %q, %v", data, err)
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := Exponential(10*time.Millisecond, 50*time.Millisecond)
	want := []time.Duration{10, 20, 40, 50, 50}
	for i, w := range want {
		if got := b(i + 1); got != w*time.Millisecond {
			t.Errorf("poll %d: got %v, want %v", i+1, got, w*time.Millisecond)
		}
	}
}
