package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/teamcutter/csharpls/internal/cache"
	"github.com/teamcutter/csharpls/internal/config"
	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/extractor"
	"github.com/teamcutter/csharpls/internal/fetcher"
	"github.com/teamcutter/csharpls/internal/installer"
	"github.com/teamcutter/csharpls/internal/logx"
	"github.com/teamcutter/csharpls/internal/manager"
	"github.com/teamcutter/csharpls/internal/registry"
	"github.com/teamcutter/csharpls/internal/resolver"
	"github.com/teamcutter/csharpls/internal/state"
	"github.com/teamcutter/csharpls/internal/tools"
)

type globalFlags struct {
	config   string
	logLevel string
}

func Execute() error {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "csharpls",
		Short:         "Locate, install and launch C# language tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.config, "config", "", "Config file (default $CSHARPLS_HOME/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override log_level")

	rootCmd.AddCommand(
		newResolveCmd(&flags),
		newInstallCmd(&flags),
		newLspCmd(&flags),
		newDapCmd(&flags),
		newWorkspaceConfigCmd(),
		newListCmd(&flags),
		newUninstallCmd(&flags),
		newClearCmd(&flags),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
		return err
	}
	return nil
}

// app wires the resolution stack from configuration.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	logFile   io.Closer
	state     *state.SQLiteState
	cache     *cache.DiskCache
	catalog   *registry.GitHubCatalog
	resolvers map[string]*resolver.Resolver
}

// newApp builds the stack. progress enables the download progress bar on
// stderr, for commands run by a person rather than an editor.
func newApp(flags *globalFlags, progress bool) (*app, error) {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	log, logFile, err := logx.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, logFile: logFile}

	if err := os.MkdirAll(cfg.ToolsDir, 0755); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create tools directory: %w", err)
	}

	a.cache, err = cache.New(cfg.CacheDir, cfg.CatalogTTL.Duration)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.state, err = state.NewSQLite(cfg.StateDB, cfg.ManifestFile, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.catalog = registry.New(&http.Client{Timeout: cfg.HTTPTimeout.Duration},
		registry.WithBaseURL(cfg.GitHubAPI),
		registry.WithToken(cfg.GitHubToken),
		registry.WithCache(a.cache),
		registry.WithLogger(log),
	)

	dl := fetcher.New(cfg.HTTPTimeout.Duration,
		fetcher.WithLogger(log),
		fetcher.WithProgress(progressWriter(progress)),
	)
	inst := installer.New(dl, extractor.New(log), log)

	var backoff resolver.Backoff = resolver.NoDelay
	if d := cfg.PollInterval.Duration; d > 0 {
		backoff = resolver.Fixed(d)
	}

	a.resolvers = make(map[string]*resolver.Resolver)
	for name, tool := range tools.All(a.catalog, tools.Platform{}) {
		a.resolvers[name] = resolver.New(tool, a.catalog, inst,
			resolver.WithRoot(cfg.ToolsDir),
			resolver.WithLogger(log),
			resolver.WithLedger(a.state),
			resolver.WithMaxAttempts(cfg.MaxAttempts),
			resolver.WithPolling(cfg.MaxPolls, backoff),
		)
	}

	return a, nil
}

func (a *app) resolver(name string) (*resolver.Resolver, error) {
	r, ok := a.resolvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s (known: %v)", name, tools.Names())
	}
	return r, nil
}

func (a *app) manager() *manager.Manager {
	return manager.New(
		a.resolvers[tools.VSCodeCSharp{}.Name()],
		a.resolvers[tools.Netcoredbg{}.Name()],
		a.log,
	)
}

func (a *app) Close() {
	if a.state != nil {
		a.state.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

var _ domain.Ledger = (*state.SQLiteState)(nil)

func progressWriter(enabled bool) io.Writer {
	if !enabled {
		return nil
	}
	return os.Stderr
}
