package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teamcutter/csharpls/internal/cache"
	"github.com/teamcutter/csharpls/internal/domain"
)

func TestLatestStripsTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/dotnet/vscode-csharp/releases/latest" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing token header")
		}
		w.Write([]byte(`{"tag_name":"v2.63.32","prerelease":false,"assets":[]}`))
	}))
	defer server.Close()

	g := New(server.Client(), WithBaseURL(server.URL), WithToken("secret"))
	rel, err := g.Latest(context.Background(), "dotnet/vscode-csharp", domain.ReleaseOptions{})
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rel.Version != "2.63.32" || rel.Tag != "v2.63.32" {
		t.Fatalf("unexpected release: %+v", rel)
	}
}

func TestLatestRequireAssets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name":"3.1.2","assets":[]}`))
	}))
	defer server.Close()

	g := New(server.Client(), WithBaseURL(server.URL))
	_, err := g.Latest(context.Background(), "marcptrs/netcoredbg", domain.ReleaseOptions{RequireAssets: true})
	if !errors.Is(err, ErrNoAssets) {
		t.Fatalf("expected ErrNoAssets, got %v", err)
	}
}

func TestLatestPrerelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/marcptrs/netcoredbg/releases" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"tag_name":"v4.0.0-rc1","prerelease":true,"assets":[{"name":"netcoredbg-linux-x64.tar.gz","browser_download_url":"https://dl/x"}]}]`))
	}))
	defer server.Close()

	g := New(server.Client(), WithBaseURL(server.URL))
	rel, err := g.Latest(context.Background(), "marcptrs/netcoredbg", domain.ReleaseOptions{Prerelease: true, RequireAssets: true})
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !rel.Prerelease || rel.Version != "4.0.0-rc1" || rel.Assets[0].DownloadURL != "https://dl/x" {
		t.Fatalf("unexpected release: %+v", rel)
	}
}

func TestLatestUsesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"tag_name":"v1.0"}`))
	}))
	defer server.Close()

	c, err := cache.New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	g := New(server.Client(), WithBaseURL(server.URL), WithCache(c))

	for range 3 {
		if _, err := g.Latest(context.Background(), "o/r", domain.ReleaseOptions{}); err != nil {
			t.Fatalf("Latest: %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected 1 request, got %d", got)
	}
}

func TestLatestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	g := New(server.Client(), WithBaseURL(server.URL))
	_, err := g.Latest(context.Background(), "o/r", domain.ReleaseOptions{})
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}
