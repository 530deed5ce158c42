package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mlorenz/drawbridge/pkg/config"
	"github.com/mlorenz/drawbridge/pkg/errors"
)

// cacheCommand creates the cache command group.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the export artifact cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the artifact cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _, err := c.workspace()
			if err != nil {
				return err
			}
			cmd.Println(config.CachePath(root))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all cached export artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := c.workspace()
			if err != nil {
				return err
			}
			if cfg.Cache.Backend == "redis" {
				return errors.New(errors.ErrCodeInvalidInput,
					"cache clear only manages the file cache; flush redis directly")
			}
			dir := config.CachePath(root)
			if err := os.RemoveAll(dir); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "clearing %s", dir)
			}
			printSuccess("Cache cleared")
			printFile(dir)
			return nil
		},
	})

	return cmd
}
