package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmcdole/wardrobe/internal/selection"
)

const deleteCommandLong = `Permanently delete items.

Pass item IDs, or --all to delete everything matching the filter flags.
--all works with --type, --search and --archived only, since those are the
filters the server can reproduce for a bulk request.`

// NewDeleteCmd creates the delete command.
func NewDeleteCmd(e *env) *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:     "delete [item-id...]",
		Aliases: []string{"rm"},
		Short:   "Delete items",
		Long:    deleteCommandLong,
	}
	targets := addTargetFlags(deleteCmd)

	deleteCmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := e.open()
		if err != nil {
			return err
		}
		sel, filter, err := targets.resolve(cmd, args)
		if err != nil {
			return err
		}

		ok, err := confirm(e, targets.yes, fmt.Sprintf("Delete %s?", describeTargets(sel, filter)))
		if err != nil || !ok {
			return err
		}

		if sel.Mode() == selection.ModeSome && len(sel.SelectedIDs()) == 1 {
			return settle(cmd.Context(), cmd.OutOrStdout(), c, c.items.Delete(sel.SelectedIDs()[0]))
		}
		mut, err := c.items.BulkDelete(sel, filter, c.pages)
		if err != nil {
			return err
		}
		return settle(cmd.Context(), cmd.OutOrStdout(), c, mut)
	}
	return deleteCmd
}
