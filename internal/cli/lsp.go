package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/teamcutter/csharpls/internal/settings"
)

func newLspCmd(flags *globalFlags) *cobra.Command {
	var settingsFile string
	var worktree string

	cmd := &cobra.Command{
		Use:   "lsp <server-id>",
		Short: "Print the language server launch command as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Load(settingsFile)
			if err != nil {
				return err
			}

			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if worktree == "" {
				if worktree, err = os.Getwd(); err != nil {
					return err
				}
			}

			sink := newSpinnerSink(cmd.Context(), args[0])
			defer sink.Close()

			command, err := a.manager().LanguageServerCommand(cmd.Context(), args[0], worktree, s, sink)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(command)
		},
	}

	cmd.Flags().StringVar(&settingsFile, "settings", "", "Editor settings JSON for this server")
	cmd.Flags().StringVar(&worktree, "worktree", "", "Workspace root (default: working directory)")
	return cmd
}
