package tui

import (
	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/mutation"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + mutation.Describe(e.Err)
	}
	return mutation.Describe(e.Err)
}

// PageLoadedMsg carries the result of a page fetch
type PageLoadedMsg struct {
	Key   domain.PageKey
	Page  domain.Page
	Fresh bool // false when a pending mutation superseded the fetch
	Err   error
}

// PollTickMsg asks for a refetch of the current page. Seq drops ticks
// scheduled before the view changed.
type PollTickMsg struct {
	Seq int
}

// TypesLoadedMsg signals that the item types have been loaded
type TypesLoadedMsg struct {
	Types []domain.ItemType
}

// MutationSettledMsg reports a mutation that reached the server and back
type MutationSettledMsg struct {
	ID      string
	Name    string
	OK      bool
	Partial bool
	Message string

	// Bulk mutations record the filter they were confirmed under
	Bulk   bool
	Filter domain.ItemFilter
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct {
	Seq int
}
