package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/teamcutter/csharpls/internal/domain"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func withSpinner(ctx context.Context, w io.Writer, desc string) (spinner *progressbar.ProgressBar, stop func()) {
	spinner = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				spinner.Finish()
				return
			default:
				spinner.Add(1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()
	var once sync.Once
	return spinner, func() {
		once.Do(func() {
			close(done)
			spinner.Finish()
		})
	}
}

// spinnerSink renders install status on stderr as a spinner that follows
// the resolver's status updates.
type spinnerSink struct {
	ctx  context.Context
	name string

	mu      sync.Mutex
	spinner *progressbar.ProgressBar
	stop    func()
}

func newSpinnerSink(ctx context.Context, name string) *spinnerSink {
	return &spinnerSink{ctx: ctx, name: name}
}

func (s *spinnerSink) SetStatus(st domain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch st.Kind {
	case domain.StatusCheckingForUpdate:
		s.show(fmt.Sprintf("Checking %s for updates...", s.name))
	case domain.StatusDownloading:
		s.show(fmt.Sprintf("Downloading %s...", s.name))
	default:
		s.close()
	}
}

func (s *spinnerSink) show(desc string) {
	if s.spinner != nil {
		s.spinner.Describe(desc)
		return
	}
	s.spinner, s.stop = withSpinner(s.ctx, os.Stderr, desc)
}

func (s *spinnerSink) close() {
	if s.stop != nil {
		s.stop()
	}
	s.spinner, s.stop = nil, nil
}

// Close stops a spinner left running by an early return.
func (s *spinnerSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.close()
}

func formatSize(bytes int64) string {
	const (
		KB = 1 << 10
		MB = 1 << 20
		GB = 1 << 30
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
