package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	var testConnection bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the workspace configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := c.workspace()
			if err != nil {
				return err
			}

			printInfo("Workspace %s", StyleHighlight.Render(root))
			printNewline()
			printKeyValue("base_url", orUnset(cfg.Confluence.BaseURL))
			printKeyValue("auth_type", cfg.Confluence.AuthType)
			printKeyValue("ssl_verify", strconv.FormatBool(cfg.Confluence.SSLVerify))
			printKeyValue("format", cfg.Export.DefaultFormat)
			printKeyValue("png_scale", strconv.Itoa(cfg.Export.PNGScale))
			printKeyValue("desktop_path", orDefault(cfg.Editor.DesktopPath, "auto-detect"))
			printKeyValue("state_backend", orDefault(cfg.State.Backend, "file"))
			printKeyValue("cache_backend", orDefault(cfg.Cache.Backend, "file"))

			if !testConnection {
				return nil
			}

			printNewline()
			client, err := c.newClient(cfg)
			if err != nil {
				return err
			}
			spinner := newSpinner("Testing connection to " + cfg.Confluence.BaseURL)
			spinner.Start()
			if err := client.TestConnection(cmd.Context()); err != nil {
				spinner.StopWithError("Connection failed")
				return err
			}
			spinner.StopWithSuccess("Connected to " + cfg.Confluence.BaseURL)
			return nil
		},
	}

	cmd.Flags().BoolVar(&testConnection, "test", false, "verify credentials against the server")

	return cmd
}

func orUnset(v string) string {
	return orDefault(v, "(not set)")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return StyleDim.Render(fallback)
	}
	return v
}
