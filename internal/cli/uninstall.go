package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newUninstallCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <tool>...",
		Short: "Remove every installed version of the given tools",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var failed int
			for _, name := range args {
				if _, err := a.resolver(name); err != nil {
					fmt.Fprintf(out, "%s %v\n", red("✗"), err)
					failed++
					continue
				}

				removed, err := removeVersions(a.cfg.ToolsDir, name)
				if err == nil {
					err = a.state.Remove(name)
				}
				if err != nil {
					fmt.Fprintf(out, "%s %s: %v\n", red("✗"), name, err)
					failed++
					continue
				}
				if removed == 0 {
					fmt.Fprintf(out, "%s %s is not installed\n", yellow("!"), bold(name))
					continue
				}
				fmt.Fprintf(out, "%s %s %s\n", green("✓"), bold(name), dim(fmt.Sprintf("(%d version(s) removed)", removed)))
			}

			if failed > 0 {
				return fmt.Errorf("failed to uninstall %d tool(s)", failed)
			}
			return nil
		},
	}
}

func removeVersions(root, name string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, err
	}

	var n int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), name+"-") {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
