package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/teamcutter/csharpls/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of csharpls",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s%s%s%s%s%s\n", bold("csharpls"), bold("-"), bold(version.Version),
				bold("-"), bold(runtime.GOOS), bold("/"), bold(runtime.GOARCH))
		},
	}
}
