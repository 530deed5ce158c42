package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mlorenz/drawbridge/pkg/errors"
	"github.com/mlorenz/drawbridge/pkg/publish"
)

// publishCommand creates the publish command.
func (c *CLI) publishCommand() *cobra.Command {
	var (
		pageRef         string
		noContentUpdate bool
		forceExport     bool
	)

	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Upload a diagram and refresh its wiki page",
		Long:  "Upload the diagram source and a rendered image as page attachments, then update the generated block in the page body. The target page comes from --page on the first publish and from the sync record afterwards.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, records, err := c.newCoordinator(cmd.Context())
			if err != nil {
				return err
			}
			defer records.Close()

			spinner := newSpinner("Publishing " + args[0])
			spinner.Start()
			res, err := coord.Publish(cmd.Context(), publish.Request{
				Path:        args[0],
				PageRef:     pageRef,
				SkipContent: noContentUpdate,
				ForceExport: forceExport,
			})
			if err != nil {
				spinner.StopWithError("Publish failed")
				return err
			}
			spinner.StopWithSuccess("Published " + res.Path)

			printPublishResult(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&pageRef, "page", "", "confluence page URL or ID (required on first publish)")
	cmd.Flags().BoolVar(&noContentUpdate, "no-content-update", false, "upload attachments only, leave the page body untouched")
	cmd.Flags().BoolVar(&forceExport, "force-export", false, "render the image fresh instead of reusing existing artifacts")

	return cmd
}

// publishAllCommand creates the publish-all command.
func (c *CLI) publishAllCommand() *cobra.Command {
	var forceExport bool

	cmd := &cobra.Command{
		Use:   "publish-all",
		Short: "Publish every tracked diagram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, records, err := c.newCoordinator(cmd.Context())
			if err != nil {
				return err
			}
			defer records.Close()

			spinner := newSpinner("Publishing all tracked diagrams")
			spinner.Start()
			batch, err := coord.PublishAll(cmd.Context(), forceExport)
			if err != nil {
				spinner.StopWithError("Publish failed")
				return err
			}
			spinner.Stop()

			for _, res := range batch.Published {
				printSuccess("%s %s", res.Path, StyleDim.Render(iconArrow+" page "+res.PageID))
			}
			failed := make([]string, 0, len(batch.Failed))
			for path := range batch.Failed {
				failed = append(failed, path)
			}
			sort.Strings(failed)
			for _, path := range failed {
				printError("%s: %v", path, batch.Failed[path])
			}

			printNewline()
			printInfo("%s published, %s failed",
				strconv.Itoa(len(batch.Published)), strconv.Itoa(len(failed)))
			if len(failed) > 0 {
				return errors.New(errors.ErrCodeInternal, "%d diagram(s) failed to publish", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceExport, "force-export", false, "render images fresh instead of reusing existing artifacts")

	return cmd
}

func printPublishResult(res *publish.Result) {
	printKeyValue("page", res.PageID)
	if res.PageURL != "" {
		printKeyValue("page URL", StyleLink.Render(res.PageURL))
	}
	if res.SourceAttachment != nil {
		printKeyValue("source", res.SourceAttachment.Filename+" v"+strconv.Itoa(res.SourceAttachment.Version))
	}
	if res.ImageAttachment != nil {
		printKeyValue("image", res.ImageAttachment.Filename+" ("+res.ExportMethod+")")
	} else {
		printWarning("image export failed; page body left untouched")
	}
	if res.PageUpdated {
		printKeyValue("page body", "updated, "+strconv.Itoa(res.LinkCount)+" link(s)")
	} else {
		printKeyValue("page body", StyleDim.Render("unchanged"))
	}
}
