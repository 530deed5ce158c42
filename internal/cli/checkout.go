package cli

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mlorenz/drawbridge/pkg/publish"
)

// checkoutCommand creates the checkout command.
func (c *CLI) checkoutCommand() *cobra.Command {
	var (
		outputDir string
		filename  string
	)

	cmd := &cobra.Command{
		Use:   "checkout <page-url-or-id>",
		Short: "Download a diagram attached to a wiki page",
		Long:  "Download a .drawio attachment from a Confluence page and start tracking it. When the page carries several diagrams, pick one interactively or with --filename.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, records, err := c.newCoordinator(cmd.Context())
			if err != nil {
				return err
			}
			defer records.Close()

			pick := filename
			if pick == "" && isatty.IsTerminal(os.Stdout.Fd()) {
				spinner := newSpinner("Listing attachments")
				spinner.Start()
				page, atts, err := coord.DrawioAttachments(cmd.Context(), args[0])
				spinner.Stop()
				if err != nil {
					return err
				}
				if len(atts) > 1 {
					chosen, err := pickAttachment(page.Title, atts)
					if err != nil {
						return err
					}
					if chosen == nil {
						printInfo("Checkout cancelled")
						return nil
					}
					pick = chosen.Filename
				}
			}

			spinner := newSpinner("Checking out from " + args[0])
			spinner.Start()
			res, err := coord.Checkout(cmd.Context(), publish.CheckoutRequest{
				PageRef:   args[0],
				OutputDir: outputDir,
				Filename:  pick,
			})
			if err != nil {
				spinner.StopWithError("Checkout failed")
				return err
			}
			spinner.StopWithSuccess("Checked out " + res.Attachment.Filename)
			printFile(res.Path)
			printNextStep("Publish changes", "drawbridge publish "+res.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory to write the diagram into")
	cmd.Flags().StringVar(&filename, "filename", "", "attachment to pick when the page has several diagrams")

	return cmd
}
