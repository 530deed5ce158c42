package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mlorenz/drawbridge/pkg/config"
	"github.com/mlorenz/drawbridge/pkg/errors"
	"github.com/mlorenz/drawbridge/pkg/export"
)

// initCommand creates the init command.
func (c *CLI) initCommand() *cobra.Command {
	var (
		baseURL     string
		authType    string
		noSSLVerify bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a drawbridge workspace in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			if existing := config.FindWorkspaceRoot(cwd); existing != "" {
				return errors.New(errors.ErrCodeInvalidInput, "workspace already exists at %s", existing)
			}
			if authType != "pat" && authType != "basic" {
				return errors.New(errors.ErrCodeInvalidInput, "auth type must be pat or basic, got %q", authType)
			}

			cfg := config.Default()
			cfg.Confluence.BaseURL = baseURL
			cfg.Confluence.AuthType = authType
			cfg.Confluence.SSLVerify = !noSSLVerify
			if err := config.Save(cwd, cfg); err != nil {
				return err
			}

			printSuccess("Workspace created")
			printFile(filepath.Join(config.Dir, config.File))

			if binary := export.FindDesktopBinary(); binary != "" {
				printInfo("draw.io desktop found: %s", StyleHighlight.Render(binary))
			} else {
				printWarning("draw.io desktop not found; exports will fall back to cached artifacts or sketches")
			}

			printNewline()
			if baseURL == "" {
				printNextStep("Set your server", "edit "+filepath.Join(config.Dir, config.File))
			}
			if authType == "pat" {
				printNextStep("Set credentials", "export "+config.EnvPAT+"=<token>")
			} else {
				printNextStep("Set credentials", "export "+config.EnvUser+"=<user> "+config.EnvPassword+"=<password>")
			}
			printNextStep("Verify the connection", "drawbridge config --test")
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "confluence base URL (e.g. https://wiki.example.com)")
	cmd.Flags().StringVar(&authType, "auth", "pat", "authentication type: pat or basic")
	cmd.Flags().BoolVar(&noSSLVerify, "no-ssl-verify", false, "skip TLS certificate verification (self-signed instances)")

	return cmd
}
