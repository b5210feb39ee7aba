package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/logx"
)

var ErrEmptyBody = errors.New("downloaded file is empty")

type HTTPFetcher struct {
	client   *http.Client
	log      domain.Logger
	progress io.Writer
}

type Option func(*HTTPFetcher)

func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

func WithLogger(l domain.Logger) Option {
	return func(f *HTTPFetcher) { f.log = l }
}

// WithProgress renders a byte progress bar on w while downloading.
// A nil w disables it.
func WithProgress(w io.Writer) Option {
	return func(f *HTTPFetcher) { f.progress = w }
}

func New(timeout time.Duration, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		log:    logx.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	// follow every redirect the gallery and release hosts hand out
	f.client.CheckRedirect = func(*http.Request, []*http.Request) error { return nil }
	return f
}

// Download fetches url into memory. An empty body is an error even when
// the transport reported success.
func (f *HTTPFetcher) Download(ctx context.Context, url string) ([]byte, error) {
	f.log.Debug("download: starting", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTP fetch failed: %w", err)
	}
	req.Header.Set("User-Agent", "csharpls")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP fetch failed: %w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP fetch failed: %w: unexpected status: %d", domain.ErrNetwork, resp.StatusCode)
	}

	var buf bytes.Buffer
	var dst io.Writer = &buf
	if f.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(f.progress),
			progressbar.OptionSetDescription("Downloading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		dst = io.MultiWriter(&buf, bar)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return nil, fmt.Errorf("download interrupted: %w: %w", domain.ErrNetwork, err)
	}

	f.log.Debug("download: received", "bytes", buf.Len())

	if buf.Len() == 0 {
		return nil, ErrEmptyBody
	}

	return buf.Bytes(), nil
}
