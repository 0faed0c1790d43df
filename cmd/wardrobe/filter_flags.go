package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmcdole/wardrobe/internal/domain"
)

// filterFlags binds the list filter to command flags
type filterFlags struct {
	itemType  string
	subtype   string
	colors    []string
	status    string
	favorite  bool
	needsWash bool
	archived  bool
	search    string
	sortBy    string
	sortOrder string
}

func addFilterFlags(cmd *cobra.Command) *filterFlags {
	f := &filterFlags{}
	fs := cmd.Flags()
	fs.StringVar(&f.itemType, "type", "", "only items of this type")
	fs.StringVar(&f.subtype, "subtype", "", "only items of this subtype")
	fs.StringSliceVar(&f.colors, "color", nil, "only items with these colors (repeatable)")
	fs.StringVar(&f.status, "status", "", "processing, ready, error or archived")
	fs.BoolVar(&f.favorite, "favorite", false, "only favorites (--favorite=false for non-favorites)")
	fs.BoolVar(&f.needsWash, "needs-wash", false, "only items that need washing")
	fs.BoolVar(&f.archived, "archived", false, "list archived items instead")
	fs.StringVarP(&f.search, "search", "s", "", "free-text search")
	fs.StringVar(&f.sortBy, "sort", "", "sort field, e.g. created_at")
	fs.StringVar(&f.sortOrder, "order", "", "asc or desc")
	return f
}

// filter builds the ItemFilter; tri-state flags are only set when given
func (f *filterFlags) filter(cmd *cobra.Command) (domain.ItemFilter, error) {
	out := domain.ItemFilter{
		Type:       f.itemType,
		Subtype:    f.subtype,
		Colors:     f.colors,
		IsArchived: f.archived,
		Search:     f.search,
		SortBy:     f.sortBy,
		SortOrder:  f.sortOrder,
	}

	if f.status != "" {
		status := domain.ItemStatus(strings.ToLower(f.status))
		if !status.Valid() {
			return domain.ItemFilter{}, fmt.Errorf("invalid --status %q", f.status)
		}
		out.Status = status
	}
	if cmd.Flags().Changed("favorite") {
		v := f.favorite
		out.Favorite = &v
	}
	if cmd.Flags().Changed("needs-wash") {
		v := f.needsWash
		out.NeedsWash = &v
	}
	if o := strings.ToLower(f.sortOrder); o != "" && o != "asc" && o != "desc" {
		return domain.ItemFilter{}, fmt.Errorf("invalid --order %q", f.sortOrder)
	}
	return out, nil
}
