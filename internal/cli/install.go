package cli

import (
	"fmt"
	"slices"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teamcutter/csharpls/internal/tools"
)

func newInstallCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install [tool...]",
		Short: "Install or update tools (all of them by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			names := args
			if len(names) == 0 {
				names = tools.Names()
			}
			slices.Sort(names)
			names = slices.Compact(names)

			for _, name := range names {
				if _, err := a.resolver(name); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			output := make(map[string]string)
			var errs []error
			mu := &sync.Mutex{}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(min(len(names), a.cfg.MaxParallel))

			for _, name := range names {
				g.Go(func() error {
					r, _ := a.resolver(name)

					sink := newSpinnerSink(gctx, name)
					dir, err := r.Resolve(gctx, sink)
					sink.Close()

					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						errs = append(errs, fmt.Errorf("%s: %v", name, err))
						return nil
					}
					output[name] = fmt.Sprintf("%s %s\n  %s %s\n  %s %s",
						green("✓"), bold(name),
						cyan("path:"), dir,
						cyan("binary:"), r.Tool().BinaryPath(dir))
					return nil
				})
			}
			_ = g.Wait()

			out := cmd.OutOrStdout()
			for _, name := range names {
				if msg, ok := output[name]; ok {
					fmt.Fprintln(out, msg)
				}
			}

			if len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", red("✗"), e)
				}
				return fmt.Errorf("failed to install %d tool(s)", len(errs))
			}
			return nil
		},
	}
}
