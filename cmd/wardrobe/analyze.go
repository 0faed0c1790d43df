package main

import (
	"github.com/spf13/cobra"

	"github.com/mmcdole/wardrobe/internal/selection"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd(e *env) *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [item-id...]",
		Short: "Queue AI re-analysis of items",
		Long: `Queue AI re-analysis of items.

Targets are chosen the same way as for delete. Analysis does not remove
anything, so no confirmation is asked.`,
	}
	targets := addTargetFlags(analyzeCmd)

	analyzeCmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := e.open()
		if err != nil {
			return err
		}
		sel, filter, err := targets.resolve(cmd, args)
		if err != nil {
			return err
		}

		if sel.Mode() == selection.ModeSome && len(sel.SelectedIDs()) == 1 {
			return settle(cmd.Context(), cmd.OutOrStdout(), c, c.items.Analyze(sel.SelectedIDs()[0]))
		}
		mut, err := c.items.BulkAnalyze(sel, filter, c.pages)
		if err != nil {
			return err
		}
		return settle(cmd.Context(), cmd.OutOrStdout(), c, mut)
	}
	return analyzeCmd
}
