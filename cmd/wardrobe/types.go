package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmcdole/wardrobe/internal/mutation"
)

// NewTypesCmd creates the types command.
func NewTypesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "Show item counts per type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.open()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			types, err := c.catalog.ItemTypes(ctx)
			if err != nil {
				return fmt.Errorf("failed to load types: %s", mutation.Describe(err))
			}
			if len(types) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No items yet")
				return nil
			}
			for _, t := range types {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %d\n", t.Type, t.Count)
			}
			return nil
		},
	}
}
