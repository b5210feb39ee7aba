package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <tool>",
		Short: "Print the version directory of a tool, installing it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.resolver(args[0])
			if err != nil {
				return err
			}

			sink := newSpinnerSink(cmd.Context(), args[0])
			defer sink.Close()

			dir, err := r.Resolve(cmd.Context(), sink)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
