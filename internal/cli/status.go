package cli

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mlorenz/drawbridge/pkg/state"
)

// statusCommand creates the status command.
func (c *CLI) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <file>",
		Short: "Show sync status for a tracked diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := c.workspace()
			if err != nil {
				return err
			}
			records, err := c.newStateStore(cmd.Context(), root, cfg)
			if err != nil {
				return err
			}
			defer records.Close()

			path := state.NormalizePath(args[0])
			rec, err := records.Get(cmd.Context(), path)
			if err != nil {
				return err
			}
			if rec == nil {
				printInfo("%s is not tracked", StyleHighlight.Render(path))
				printNextStep("Link it to a page", "drawbridge publish "+path+" --page <url-or-id>")
				return nil
			}

			printInfo("Status for %s", StyleHighlight.Render(path))
			printNewline()

			info, statErr := os.Stat(path)
			switch {
			case statErr != nil:
				printKeyValue("local file", StyleWarning.Render("missing"))
			case !rec.LastLocalModified.IsZero() && info.ModTime().After(rec.LastLocalModified):
				printKeyValue("local file", StyleWarning.Render("modified since last sync"))
			default:
				printKeyValue("local file", "in sync")
			}

			if rec.Linked() {
				printKeyValue("page", rec.PageID)
				if rec.PageURL != "" {
					printKeyValue("page URL", StyleLink.Render(rec.PageURL))
				}
			} else {
				printKeyValue("page", StyleDim.Render("not linked"))
			}
			if rec.LastSync.IsZero() {
				printKeyValue("last sync", StyleDim.Render("never"))
			} else {
				printKeyValue("last sync", rec.LastSync.Local().Format("2006-01-02 15:04:05"))
			}
			if rec.LastAttachmentVersion > 0 {
				printKeyValue("attachment", "v"+strconv.Itoa(rec.LastAttachmentVersion))
			}
			printKeyValue("links", strconv.Itoa(len(rec.Links)))
			for _, l := range rec.Links {
				label := l.Label
				if label == "" {
					label = l.URL
				}
				printDetail("%s %s", label, StyleDim.Render(l.URL))
			}
			return nil
		},
	}
}
