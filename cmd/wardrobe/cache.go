package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command group.
func NewCacheCmd(e *env) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local page cache",
	}
	cacheCmd.AddCommand(newCacheClearCmd(e))
	return cacheCmd
}

func newCacheClearCmd(e *env) *cobra.Command {
	var all bool

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached pages for the configured server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := e.cfg.ClearCache(); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared the cache for every server")
				return nil
			}

			c, err := e.open()
			if err != nil {
				return err
			}
			if err := c.pages.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared the cache for %s\n", e.cfg.Server.URL)
			return nil
		},
	}

	clearCmd.Flags().BoolVar(&all, "all", false, "remove the cache of every server")
	return clearCmd
}
