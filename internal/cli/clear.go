package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamcutter/csharpls/internal/cache"
	"github.com/teamcutter/csharpls/internal/config"
)

func newClearCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the release catalog cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.config)
			if err != nil {
				return err
			}

			c, err := cache.New(cfg.CacheDir, cfg.CatalogTTL.Duration)
			if err != nil {
				return err
			}

			size, _ := c.Size()

			if err := c.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Cache cleared (%s freed)\n", green("✓"), formatSize(size))
			return nil
		},
	}
}
