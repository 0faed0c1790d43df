package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/mutation"
	"github.com/mmcdole/wardrobe/internal/tui/styles"
)

const listCommandLong = `List one page of items.

Filters narrow the listing the same way the interactive view does. Use
--json for machine-readable output.`

// NewListCmd creates the list command.
func NewListCmd(e *env) *cobra.Command {
	var page, pageSize int
	var asJSON bool

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List items",
		Long:    listCommandLong,
		Args:    cobra.NoArgs,
	}
	filters := addFilterFlags(listCmd)

	listCmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := e.open()
		if err != nil {
			return err
		}
		filter, err := filters.filter(cmd)
		if err != nil {
			return err
		}
		if pageSize <= 0 {
			pageSize = e.cfg.List.PageSize
		}
		if page < 1 {
			return fmt.Errorf("--page must be at least 1")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		key := domain.NewPageKey(filter, page, pageSize)
		p, _, err := c.catalog.FetchPage(ctx, key)
		if err != nil {
			return fmt.Errorf("list failed: %s", mutation.Describe(err))
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		printPage(cmd.OutOrStdout(), filter, p)
		return nil
	}

	listCmd.Flags().IntVarP(&page, "page", "p", 1, "page number (1-based)")
	listCmd.Flags().IntVarP(&pageSize, "page-size", "n", 0, "items per page (default from config)")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "print the raw page as JSON")
	return listCmd
}

func printPage(w io.Writer, filter domain.ItemFilter, p domain.Page) {
	if len(p.Items) == 0 {
		fmt.Fprintf(w, "No items match %s\n", filter.Summary())
		return
	}

	rows := make([][]string, 0, len(p.Items))
	for _, item := range p.Items {
		fav := ""
		if item.Favorite {
			fav = styles.FavoriteChar
		}
		rows = append(rows, []string{
			item.ID,
			item.DisplayName(),
			item.Type,
			string(item.Status),
			fav,
			strconv.Itoa(item.WearCount),
		})
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(styles.Accent).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.DimStyle).
		Headers("ID", "NAME", "TYPE", "STATUS", "FAV", "WORN").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 3 && row >= 0 && row < len(p.Items) {
				return cell.Foreground(styles.StatusColor(p.Items[row].Status))
			}
			return cell
		})

	fmt.Fprintln(w, t.String())

	pages := 1
	if p.PageSize > 0 && p.Total > 0 {
		pages = (p.Total + p.PageSize - 1) / p.PageSize
	}
	fmt.Fprintf(w, "%s · page %d/%d · %d items\n", filter.Summary(), p.Page, pages, p.Total)
}
