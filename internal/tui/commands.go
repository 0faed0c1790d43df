package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/wardrobe/internal/catalog"
	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/mutation"
)

// Command factories for async operations

// FetchPageCmd loads one page from the server into the cache
func FetchPageCmd(ctx context.Context, svc *catalog.Service, key domain.PageKey) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		page, fresh, err := svc.FetchPage(ctx, key)
		return PageLoadedMsg{Key: key, Page: page, Fresh: fresh, Err: err}
	}
}

// LoadTypesCmd loads the item types for the type picker
func LoadTypesCmd(ctx context.Context, svc *catalog.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		types, err := svc.ItemTypes(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading types"}
		}
		return TypesLoadedMsg{Types: types}
	}
}

// SettleCmd dispatches an already applied mutation and settles it
func SettleCmd[R any](ctx context.Context, txn *mutation.Txn[R]) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		out := txn.Settle(txn.Dispatch(ctx))
		return MutationSettledMsg{
			ID:      out.ID,
			Name:    out.Name,
			OK:      out.OK(),
			Partial: out.Partial,
			Message: out.Message,
		}
	}
}

// SettleBulkCmd is SettleCmd for a selection-wide action confirmed under filter
func SettleBulkCmd[R any](ctx context.Context, txn *mutation.Txn[R], filter domain.ItemFilter) tea.Cmd {
	settle := SettleCmd(ctx, txn)
	return func() tea.Msg {
		msg := settle().(MutationSettledMsg)
		msg.Bulk = true
		msg.Filter = filter
		return msg
	}
}

// PollCmd schedules the next refetch of the current page
func PollCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return PollTickMsg{Seq: seq}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}
