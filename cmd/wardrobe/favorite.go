package main

import (
	"github.com/spf13/cobra"
)

// NewFavoriteCmd creates the favorite command.
func NewFavoriteCmd(e *env) *cobra.Command {
	var remove bool

	favoriteCmd := &cobra.Command{
		Use:   "favorite <item-id>",
		Short: "Mark an item as favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.open()
			if err != nil {
				return err
			}
			return settle(cmd.Context(), cmd.OutOrStdout(), c, c.items.SetFavorite(args[0], !remove))
		},
	}

	favoriteCmd.Flags().BoolVar(&remove, "remove", false, "remove the item from favorites instead")
	return favoriteCmd
}
