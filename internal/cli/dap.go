package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teamcutter/csharpls/internal/server"
)

func newDapCmd(flags *globalFlags) *cobra.Command {
	var configuration string
	var debugger string
	var cwd string
	var kindOnly bool

	cmd := &cobra.Command{
		Use:   "dap <adapter>",
		Short: "Print the debug adapter launch as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter := args[0]

			conf, err := readJSONArg(configuration)
			if err != nil {
				return err
			}

			if kindOnly {
				kind, err := server.RequestKind(adapter, conf)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), kind)
				return nil
			}

			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if cwd == "" {
				if cwd, err = os.Getwd(); err != nil {
					return err
				}
			}

			sink := newSpinnerSink(cmd.Context(), adapter)
			defer sink.Close()

			bin, err := a.manager().DebugAdapterBinary(cmd.Context(), adapter, conf, debugger, cwd, sink)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(bin)
		},
	}

	cmd.Flags().StringVar(&configuration, "configuration", "{}", "Debug configuration as JSON, or @file")
	cmd.Flags().StringVar(&debugger, "debugger", "", "Use this debugger binary instead of installing one")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory for the debugger")
	cmd.Flags().BoolVar(&kindOnly, "request-kind", false, "Only print the request kind of the configuration")
	return cmd
}

// readJSONArg returns v, or the contents of the file when v starts with @.
func readJSONArg(v string) (string, error) {
	if path, ok := strings.CutPrefix(v, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return v, nil
}
