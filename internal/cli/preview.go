package cli

import (
	"github.com/spf13/cobra"

	"github.com/mlorenz/drawbridge/internal/preview"
	"github.com/mlorenz/drawbridge/pkg/diagram"
)

// previewCommand creates the preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		addr   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Serve a local preview of the generated page block",
		Long:  "Start a local web server that renders the diagram image and the page block drawbridge would publish. The page re-exports on every reload, so it tracks edits to the file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := c.workspace()
			if err != nil {
				return err
			}
			// Fail fast on an unreadable container before binding the port.
			if _, err := diagram.ParseFile(args[0]); err != nil {
				return err
			}
			if format == "" {
				format = cfg.Export.DefaultFormat
			}

			srv := preview.New(args[0], c.newChain(cmd.Context(), root, cfg), format, c.Logger)
			printInfo("Preview at %s", StyleLink.Render("http://"+addr))
			printDetail("press ctrl-c to stop")
			return srv.Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8931", "listen address for the preview server")
	cmd.Flags().StringVarP(&format, "format", "f", "", "image format to preview")

	return cmd
}
