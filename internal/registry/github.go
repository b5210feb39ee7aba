package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/logx"
)

const defaultBaseURL = "https://api.github.com"

// maxResponseSize caps catalog responses read into memory.
const maxResponseSize = 10 << 20

var ErrNoAssets = errors.New("release has no assets")

type GitHubCatalog struct {
	client  *http.Client
	baseURL string
	token   string
	cache   domain.Cache
	log     domain.Logger
}

type Option func(*GitHubCatalog)

func WithBaseURL(u string) Option {
	return func(g *GitHubCatalog) { g.baseURL = strings.TrimRight(u, "/") }
}

func WithToken(token string) Option {
	return func(g *GitHubCatalog) { g.token = token }
}

// WithCache stores raw responses so repeated lookups within the cache TTL
// stay off the network.
func WithCache(c domain.Cache) Option {
	return func(g *GitHubCatalog) { g.cache = c }
}

func WithLogger(l domain.Logger) Option {
	return func(g *GitHubCatalog) { g.log = l }
}

func New(client *http.Client, opts ...Option) *GitHubCatalog {
	if client == nil {
		client = &http.Client{}
	}
	g := &GitHubCatalog{
		client:  client,
		baseURL: defaultBaseURL,
		log:     logx.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Latest returns the newest release of repo. Without Prerelease the
// /releases/latest endpoint is used, which never reports drafts or
// pre-releases.
func (g *GitHubCatalog) Latest(ctx context.Context, repo string, opts domain.ReleaseOptions) (*domain.Release, error) {
	release, err := g.latest(ctx, repo, opts.Prerelease)
	if err != nil {
		return nil, err
	}

	release.Version = domain.TrimTag(release.Tag)

	if opts.RequireAssets && len(release.Assets) == 0 {
		return nil, fmt.Errorf("%s %s: %w", repo, release.Tag, ErrNoAssets)
	}

	return release, nil
}

func (g *GitHubCatalog) latest(ctx context.Context, repo string, prerelease bool) (*domain.Release, error) {
	if prerelease {
		var releases []domain.Release
		if err := g.getJSON(ctx, repo, "/repos/"+repo+"/releases?per_page=10", &releases); err != nil {
			return nil, err
		}
		for i := range releases {
			if releases[i].Tag != "" {
				return &releases[i], nil
			}
		}
		return nil, fmt.Errorf("no releases found for %s", repo)
	}

	var release domain.Release
	if err := g.getJSON(ctx, repo, "/repos/"+repo+"/releases/latest", &release); err != nil {
		return nil, err
	}
	if release.Tag == "" {
		return nil, fmt.Errorf("no releases found for %s", repo)
	}
	return &release, nil
}

func (g *GitHubCatalog) getJSON(ctx context.Context, repo, path string, v any) error {
	key := repo + path
	if g.cache != nil {
		if cached, ok := g.cache.Get(key); ok {
			if err := json.Unmarshal(cached, v); err == nil {
				g.log.Debug("catalog: cache hit", "key", key)
				return nil
			}
		}
	}

	data, err := g.fetch(ctx, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding release response: %w", err)
	}

	if g.cache != nil {
		if err := g.cache.Put(key, data); err != nil {
			g.log.Warn("catalog: failed to cache response", "key", key, "error", err)
		}
	}
	return nil
}

func (g *GitHubCatalog) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "csharpls")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching releases: %w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching releases: %w: unexpected status: %d", domain.ErrNetwork, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading release response: %w", err)
	}
	return data, nil
}
