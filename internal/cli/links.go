package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mlorenz/drawbridge/pkg/diagram"
)

// linksCommand creates the links command.
func (c *CLI) linksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "links <file>",
		Short: "Show hyperlinks embedded in a diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := diagram.ParseFile(args[0])
			if err != nil {
				return err
			}
			if len(doc.Links) == 0 {
				printInfo("No links in %s", StyleHighlight.Render(args[0]))
				return nil
			}
			printInfo("%s links in %s", strconv.Itoa(len(doc.Links)), StyleHighlight.Render(args[0]))
			for _, l := range doc.Links {
				label := l.Label
				if label == "" {
					label = l.URL
				}
				printDetail("%s %s", label, StyleLink.Render(l.URL))
			}
			return nil
		},
	}
}
