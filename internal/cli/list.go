package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked diagrams and their wiki pages",
		Args:  cobra.NoArgs,
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

			all, err := records.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(all) == 0 {
				printInfo("No tracked diagrams")
				printNextStep("Track one", "drawbridge publish <file> --page <url-or-id>")
				return nil
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(StyleDim).
				Headers("Diagram", "Page", "Last sync")

			for _, rec := range all {
				path := rec.LocalPath
				if _, err := os.Stat(path); err != nil {
					path = StyleWarning.Render(path + " (missing)")
				}
				page := StyleDim.Render("untracked")
				if rec.Linked() {
					page = rec.PageID
				}
				lastSync := StyleDim.Render("never")
				if !rec.LastSync.IsZero() {
					lastSync = rec.LastSync.Local().Format("2006-01-02 15:04")
				}
				t.Row(path, page, lastSync)
			}

			cmd.Println(t.Render())
			return nil
		},
	}
}
