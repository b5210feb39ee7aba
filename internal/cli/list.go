package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/tools"
)

func newListCmd(flags *globalFlags) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			installed, err := a.state.ListInstalled()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			entries := dropMissing(out, a.state, a.log, installed)
			slices.SortFunc(entries, func(x, y *domain.InstalledTool) int {
				if x.Name < y.Name {
					return -1
				}
				if x.Name > y.Name {
					return 1
				}
				return 0
			})

			if len(entries) == 0 {
				fmt.Fprintf(out, "\n%s No tools installed\n", dim("○"))
				return nil
			}

			latest := make(map[string]string)
			if !offline {
				mu := &sync.Mutex{}
				g, gctx := errgroup.WithContext(cmd.Context())
				g.SetLimit(a.cfg.MaxParallel)

				for _, t := range entries {
					g.Go(func() error {
						tool, err := tools.Lookup(t.Name, a.catalog, tools.Platform{})
						if err != nil {
							return nil
						}
						rel, err := a.catalog.Latest(gctx, tool.Repo(), domain.ReleaseOptions{})
						if err != nil {
							return nil
						}
						mu.Lock()
						latest[t.Name] = rel.Version
						mu.Unlock()
						return nil
					})
				}
				_ = g.Wait()
			}

			fmt.Fprintf(out, "Installed tools:\n\n")
			for _, t := range entries {
				line := fmt.Sprintf(" %s", bold(domain.VersionDirName(t.Name, t.Version)))
				if ver, ok := latest[t.Name]; ok && ver > t.Version {
					line += fmt.Sprintf("  %s", yellow(fmt.Sprintf("↑ %s", ver)))
				}
				line += fmt.Sprintf("\n   %s", dim(t.Path))
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the update check")
	return cmd
}

type toolRemover interface {
	Remove(name string) error
}

// dropMissing forgets ledger entries whose install directory is gone and
// returns the rest.
func dropMissing(out io.Writer, st toolRemover, log domain.Logger, installed map[string]*domain.InstalledTool) []*domain.InstalledTool {
	var entries []*domain.InstalledTool
	for _, t := range installed {
		if _, err := os.Stat(t.Path); err != nil {
			fmt.Fprintf(out, "%s %s removed externally\n", dim("○"), t.Name)
			if err := st.Remove(t.Name); err != nil {
				log.Warn("list: forgetting removed tool failed", "tool", t.Name, "error", err)
			}
			continue
		}
		entries = append(entries, t)
	}
	return entries
}
