package main

import (
	"github.com/spf13/cobra"
)

// NewArchiveCmd creates the archive command.
func NewArchiveCmd(e *env) *cobra.Command {
	var reason string

	archiveCmd := &cobra.Command{
		Use:   "archive <item-id>",
		Short: "Hide an item from the default listing",
		Long: `Archive an item. Archived items only show up with --archived and can
be brought back with restore.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.open()
			if err != nil {
				return err
			}
			return settle(cmd.Context(), cmd.OutOrStdout(), c, c.items.Archive(args[0], reason))
		},
	}

	archiveCmd.Flags().StringVarP(&reason, "reason", "r", "", "why the item was archived, e.g. donated")
	return archiveCmd
}

// NewRestoreCmd creates the restore command.
func NewRestoreCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <item-id>",
		Short: "Bring an archived item back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.open()
			if err != nil {
				return err
			}
			return settle(cmd.Context(), cmd.OutOrStdout(), c, c.items.Restore(args[0]))
		},
	}
}
