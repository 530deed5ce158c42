package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlorenz/drawbridge/pkg/confluence"
	"github.com/mlorenz/drawbridge/pkg/diagram"
	"github.com/mlorenz/drawbridge/pkg/errors"
	"github.com/mlorenz/drawbridge/pkg/state"
)

// newCommand creates the new command.
func (c *CLI) newCommand() *cobra.Command {
	var pageRef string

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty diagram container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSuffix(args[0], ".drawio")
			if name == "" {
				return errors.New(errors.ErrCodeInvalidInput, "diagram name must not be empty")
			}
			path := state.NormalizePath(name + ".drawio")
			if _, err := os.Stat(path); err == nil {
				return errors.New(errors.ErrCodeInvalidPath, "%s already exists", path)
			}

			if err := os.WriteFile(path, []byte(diagram.NewEmptyContainer(name)), 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "writing %s", path)
			}
			printSuccess("Created %s", StyleHighlight.Render(path))

			if pageRef == "" {
				printNextStep("Publish it", "drawbridge publish "+path+" --page <url-or-id>")
				return nil
			}

			// Resolve and remember the target page so the first publish
			// needs no --page flag.
			root, cfg, err := c.workspace()
			if err != nil {
				return err
			}
			client, err := c.newClient(cfg)
			if err != nil {
				return err
			}
			ref, err := confluence.ParsePageRef(pageRef)
			if err != nil {
				return err
			}
			spinner := newSpinner("Resolving page " + pageRef)
			spinner.Start()
			page, err := ref.Resolve(cmd.Context(), client)
			if err != nil {
				spinner.StopWithError("Page not found")
				return err
			}
			spinner.StopWithSuccess("Linked to " + page.Title)

			records, err := c.newStateStore(cmd.Context(), root, cfg)
			if err != nil {
				return err
			}
			defer records.Close()
			info, err := os.Stat(path)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "stat %s", path)
			}
			rec := &state.Record{
				LocalPath:         path,
				PageID:            page.ID,
				PageURL:           page.URL,
				LastLocalModified: info.ModTime().UTC(),
			}
			if err := records.Put(cmd.Context(), rec); err != nil {
				return err
			}
			printNextStep("Publish it", "drawbridge publish "+path)
			return nil
		},
	}

	cmd.Flags().StringVar(&pageRef, "page", "", "confluence page URL or ID to link the new diagram to")

	return cmd
}
