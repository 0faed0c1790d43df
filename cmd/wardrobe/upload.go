package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmcdole/wardrobe/internal/mutation"
	"github.com/mmcdole/wardrobe/internal/tui/styles"
)

// NewUploadCmd creates the upload command.
func NewUploadCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <image>...",
		Short: "Upload item photos",
		Long: `Upload one or more photos. The server creates one item per photo and
starts analyzing it; use watch to follow progress. Ctrl+C aborts the transfer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("cannot read %s: %w", path, err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", path)
				}
			}

			c, err := e.open()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Uploading %d file(s)...\n", len(args))
			res, err := c.catalog.Upload(cmd.Context(), args)
			if err != nil {
				return fmt.Errorf("upload failed: %s", mutation.Describe(err))
			}

			w := cmd.OutOrStdout()
			for _, r := range res.Results {
				if r.Success && r.Item != nil {
					fmt.Fprintf(w, "%s %s → %s\n", styles.SuccessStyle.Render("✓"), r.Filename, r.Item.ID)
				} else {
					fmt.Fprintf(w, "%s %s: %s\n", styles.ErrorStyle.Render("✗"), r.Filename, r.Error)
				}
			}
			fmt.Fprintf(w, "%d of %d uploaded\n", res.Successful, res.Total)

			if res.Successful == 0 && res.Total > 0 {
				return errors.New("no files were accepted")
			}
			return nil
		},
	}
}
