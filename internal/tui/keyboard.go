package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/wardrobe/internal/mutation"
	"github.com/mmcdole/wardrobe/internal/selection"
)

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.Close()
		return m, tea.Quit
	}

	switch m.State {
	case StateSearching:
		return m.handleSearchKey(msg)
	case StatePickingType:
		return m.handlePickerKey(msg)
	case StateConfirm:
		return m.handleConfirmKey(msg)
	case StateHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Escape, m.keys.Quit) {
			m.State = StateBrowsing
			m.help.ShowAll = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.State = StateHelp
		m.help.ShowAll = true
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.clampCursor()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.current.Items)-1 {
			m.cursor++
			m.clampCursor()
		}
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.cursor = len(m.current.Items) - 1
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		if m.current.HasMore {
			cmd := m.gotoPage(m.pageNum + 1)
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		cmd := m.gotoPage(m.pageNum - 1)
		return m, cmd

	case key.Matches(msg, m.keys.Toggle):
		if item, ok := m.cursorItem(); ok {
			m.view.Flip(item.ID)
			if m.cursor < len(m.current.Items)-1 {
				m.cursor++
				m.clampCursor()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.SelectAll):
		m.view.SelectAll()
		return m, nil

	case key.Matches(msg, m.keys.Clear), key.Matches(msg, m.keys.Escape):
		m.view.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.State = StateSearching
		m.search.SetValue(m.view.Filter().Search)
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.TypeFilter):
		m.State = StatePickingType
		m.picker.Show()
		m.picker.SetLoading(true)
		return m, LoadTypesCmd(m.ctx, m.catalog)

	case key.Matches(msg, m.keys.Favorites):
		f := m.view.Filter()
		if f.Favorite != nil {
			f.Favorite = nil
		} else {
			fav := true
			f.Favorite = &fav
		}
		cmd := m.setFilter(f)
		return m, cmd

	case key.Matches(msg, m.keys.Archived):
		f := m.view.Filter()
		f.IsArchived = !f.IsArchived
		cmd := m.setFilter(f)
		return m, cmd

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.fetchCurrent()
		return m, cmd

	case key.Matches(msg, m.keys.Delete):
		return m.askDelete()

	case key.Matches(msg, m.keys.Analyze):
		cmd := m.analyze()
		return m, cmd

	case key.Matches(msg, m.keys.Favorite):
		item, ok := m.cursorItem()
		if !ok {
			return m, nil
		}
		cmd := beginMutation(&m, m.items.SetFavorite(item.ID, !item.Favorite))
		return m, cmd

	case key.Matches(msg, m.keys.Archive):
		item, ok := m.cursorItem()
		if !ok {
			return m, nil
		}
		if item.IsArchived {
			cmd := beginMutation(&m, m.items.Restore(item.ID))
			return m, cmd
		}
		cmd := beginMutation(&m, m.items.Archive(item.ID, ""))
		return m, cmd
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.State = StateBrowsing
		m.search.Blur()
		return m, nil
	case "enter":
		m.State = StateBrowsing
		m.search.Blur()
		f := m.view.Filter()
		f.Search = strings.TrimSpace(m.search.Value())
		cmd := m.setFilter(f)
		return m, cmd
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var chosen *string
	m.picker, cmd, chosen = m.picker.Update(msg)
	if !m.picker.IsVisible() {
		m.State = StateBrowsing
	}
	if chosen == nil {
		return m, cmd
	}
	f := m.view.Filter()
	f.Type = *chosen
	filterCmd := m.setFilter(f)
	return m, tea.Batch(cmd, filterCmd)
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		action := m.confirm
		m.confirm = nil
		m.State = StateBrowsing
		if action == nil {
			return m, nil
		}
		cmd := action.run(&m)
		return m, cmd
	case key.Matches(msg, m.keys.Deny):
		m.confirm = nil
		m.State = StateBrowsing
	}
	return m, nil
}

// askDelete confirms deleting the selection, or the cursor item when
// nothing is selected
func (m Model) askDelete() (tea.Model, tea.Cmd) {
	sel := m.view.Selection()
	if sel.IsEmpty() {
		item, ok := m.cursorItem()
		if !ok {
			return m, nil
		}
		m.confirm = &pendingAction{
			prompt: fmt.Sprintf("Delete %q?", item.DisplayName()),
			run: func(m *Model) tea.Cmd {
				return beginMutation(m, m.items.Delete(item.ID))
			},
		}
		m.State = StateConfirm
		return m, nil
	}

	if _, err := sel.Descriptor(m.view.Filter()); err != nil {
		cmd := m.setStatus(selectionError(err), true)
		return m, cmd
	}
	n := sel.Count(m.current.Total)
	m.confirm = &pendingAction{
		prompt: fmt.Sprintf("Delete %d %s?", n, plural(n, "item", "items")),
		run: func(m *Model) tea.Cmd {
			mut, err := m.items.BulkDelete(m.view.Selection(), m.view.Filter(), m.catalog.Pages())
			if err != nil {
				return m.setStatus(selectionError(err), true)
			}
			return beginBulk(m, mut)
		},
	}
	m.State = StateConfirm
	return m, nil
}

// analyze queues analysis for the selection, or the cursor item
func (m *Model) analyze() tea.Cmd {
	sel := m.view.Selection()
	if sel.IsEmpty() {
		item, ok := m.cursorItem()
		if !ok {
			return nil
		}
		return beginMutation(m, m.items.Analyze(item.ID))
	}
	mut, err := m.items.BulkAnalyze(sel, m.view.Filter(), m.catalog.Pages())
	if err != nil {
		return m.setStatus(selectionError(err), true)
	}
	return beginBulk(m, mut)
}

// beginMutation applies the optimistic edit now and settles in the background
func beginMutation[R any](m *Model, mut mutation.Mutation[R]) tea.Cmd {
	txn := mutation.Begin(m.coord, mut)
	m.loadCached()
	return SettleCmd(m.ctx, txn)
}

func beginBulk[R any](m *Model, mut mutation.Mutation[R]) tea.Cmd {
	txn := mutation.Begin(m.coord, mut)
	m.loadCached()
	return SettleBulkCmd(m.ctx, txn, m.view.Filter())
}

func selectionError(err error) string {
	switch {
	case errors.Is(err, selection.ErrEmptySelection):
		return "nothing selected"
	case errors.Is(err, selection.ErrFilterNotBulkable):
		return "select-all only works with type, search and archive filters; select items individually"
	default:
		return err.Error()
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
