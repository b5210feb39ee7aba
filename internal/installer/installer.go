package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/logx"
)

// Installer downloads an archive and unpacks it, retrying on transient
// failures.
type Installer struct {
	fetcher   domain.Downloader
	extractor domain.Extractor
	log       domain.Logger
}

func New(fetcher domain.Downloader, extractor domain.Extractor, log domain.Logger) *Installer {
	if log == nil {
		log = logx.Nop()
	}
	return &Installer{
		fetcher:   fetcher,
		extractor: extractor,
		log:       log,
	}
}

// FetchAndExtract makes up to maxAttempts download+extract passes into dst.
// On failure dst is left empty or absent.
func (i *Installer) FetchAndExtract(ctx context.Context, url, dst string, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		i.log.Debug("fetch: attempting download", "attempt", attempt, "max", maxAttempts, "url", url)

		data, err := i.fetcher.Download(ctx, url)
		if err != nil {
			i.log.Warn("fetch: download failed", "attempt", attempt, "error", err)
			if attempt < maxAttempts && ctx.Err() == nil {
				continue
			}
			return err
		}

		err = i.extractor.Extract(data, dst)
		if err == nil {
			i.log.Debug("fetch: download and extraction succeeded", "attempt", attempt)
			return nil
		}

		i.log.Warn("fetch: extraction failed", "attempt", attempt, "error", err)

		if err := reset(dst); err != nil {
			return err
		}

		if !IsRetryable(err) || attempt == maxAttempts {
			return err
		}

		i.log.Debug("fetch: cleaned corrupted directory, retrying", "next", attempt+1, "max", maxAttempts)
	}

	return errors.New("download retries exhausted")
}

// reset removes dst and recreates it empty.
func reset(dst string) error {
	os.RemoveAll(dst)
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dst, err)
	}
	return nil
}

var retryableMarkers = []string{
	"unexpected end of file",
	"unexpected EOF",
	"extraction",
	"download",
	"incomplete write",
	"failed",
}

// IsRetryable reports whether an extraction failure looks like a truncated
// or partially written archive.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, domain.ErrExtraction) {
		return true
	}
	msg := err.Error()
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
