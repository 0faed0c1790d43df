package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the wardrobe command tree. With no subcommand it opens
// the interactive list.
func NewRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "wardrobe",
		Short: "Terminal client for your wardrobe server",
		Long: `wardrobe browses and manages the items on a wardrobe server.

Run without arguments to open the interactive list. Subcommands cover the
same operations for scripts.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, e)
		},
	}

	root.PersistentFlags().StringVar(&e.configDir, "config-dir", "", "directory holding config.yaml and prefs.toml")

	root.AddCommand(
		NewSetupCmd(e),
		NewListCmd(e),
		NewDeleteCmd(e),
		NewAnalyzeCmd(e),
		NewFavoriteCmd(e),
		NewArchiveCmd(e),
		NewRestoreCmd(e),
		NewWatchCmd(e),
		NewUploadCmd(e),
		NewTypesCmd(e),
		NewCacheCmd(e),
		NewVersionCmd(),
	)
	return root
}
