package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/teamcutter/csharpls/internal/server"
	"github.com/teamcutter/csharpls/internal/settings"
)

func newWorkspaceConfigCmd() *cobra.Command {
	var settingsFile string

	cmd := &cobra.Command{
		Use:   "workspace-config <server-id>",
		Short: "Print the workspace configuration for a language server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Load(settingsFile)
			if err != nil {
				return err
			}

			doc, err := server.WorkspaceConfiguration(args[0], s.Workspace)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), string(pretty.Pretty([]byte(doc))))
			return nil
		},
	}

	cmd.Flags().StringVar(&settingsFile, "settings", "", "Editor settings JSON with workspace_configuration overrides")
	return cmd
}
