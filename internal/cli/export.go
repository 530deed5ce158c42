package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlorenz/drawbridge/pkg/export"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		format string
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Render a diagram to an image file",
		Long:  "Render a diagram using the first available strategy: the draw.io desktop app, a previously exported sibling file, the artifact cache, or a generated sketch.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := c.workspace()
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Export.DefaultFormat
			}

			chain := c.newChain(cmd.Context(), root, cfg)
			spinner := newSpinner("Exporting " + args[0])
			spinner.Start()
			res, err := chain.Export(cmd.Context(), export.Request{
				Source: args[0],
				Output: output,
				Format: format,
				Scale:  cfg.Export.PNGScale,
				Force:  force,
			})
			if err != nil {
				spinner.StopWithError("Export failed")
				return err
			}
			spinner.StopWithSuccess("Exported via " + res.Method)
			printFile(res.OutputFile)
			if res.Method == "sketch" {
				printWarning("draw.io desktop is unavailable; this is a generated sketch, not a faithful render")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format ("+strings.Join(export.Formats, ", ")+")")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: next to the source)")
	cmd.Flags().BoolVar(&force, "force", false, "render fresh instead of reusing sibling files or cached artifacts")

	return cmd
}
