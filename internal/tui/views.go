package tui

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/selection"
	"github.com/mmcdole/wardrobe/internal/tui/styles"
)

// header and footer lines
const chromeHeight = 2

func (m Model) listHeight() int {
	if m.height == 0 {
		return 0
	}
	return max(1, m.height-chromeHeight)
}

// View renders the application
func (m Model) View() string {
	if m.State == StateHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	base := b.String()
	switch m.State {
	case StatePickingType:
		return m.overlay(m.picker.View())
	case StateConfirm:
		if m.confirm != nil {
			return m.overlay(m.renderConfirm())
		}
	}
	return base
}

func (m Model) overlay(modal string) string {
	if m.width == 0 || m.height == 0 {
		return modal
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func (m Model) renderHeader() string {
	title := styles.TitleStyle.Render("wardrobe")
	filter := styles.AccentStyle.Render(m.view.Filter().Summary())

	sel := m.view.Selection()
	var selInfo string
	switch sel.Mode() {
	case selection.ModeSome:
		selInfo = styles.BadgeStyle.Render(fmt.Sprintf("%d selected", sel.Count(m.current.Total)))
	case selection.ModeAll:
		n := sel.Count(m.current.Total)
		selInfo = styles.BadgeStyle.Render(fmt.Sprintf("all %d selected", n))
	}

	pages := styles.DimStyle.Render(fmt.Sprintf("page %d/%d · %d items", m.pageNum, m.totalPages(), m.current.Total))

	parts := []string{title, filter, pages}
	if selInfo != "" {
		parts = append(parts, selInfo)
	}
	if m.loading || m.coord.InFlight() > 0 {
		parts = append(parts, m.spinner.View())
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderList() string {
	rows := m.listHeight()
	if rows == 0 {
		rows = len(m.current.Items)
	}

	if !m.loaded && len(m.current.Items) == 0 {
		return padLines(styles.DimStyle.Render("  loading..."), rows)
	}
	if len(m.current.Items) == 0 {
		return padLines(styles.DimStyle.Render("  no items match "+m.view.Filter().Summary()), rows)
	}

	query := ""
	if m.State == StateSearching {
		query = strings.TrimSpace(m.search.Value())
	}

	end := min(len(m.current.Items), m.offset+rows)
	lines := make([]string, 0, rows)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(m.current.Items[i], i == m.cursor, query))
	}
	return padLines(strings.Join(lines, "\n"), rows)
}

func (m Model) renderRow(item domain.Item, focused bool, query string) string {
	box := styles.UncheckedBox
	if m.view.IsSelected(item.ID) {
		box = styles.CheckedBox
	}

	statusColor := styles.StatusColor(item.Status)
	fav := " "
	if item.Favorite {
		fav = styles.FavoriteChar
	}
	amber := styles.Amber

	nameWidth := max(12, m.width-44)
	parts := []styles.RowPart{
		{Text: box + " "},
		{Text: styles.StatusChar(item.Status) + " ", Foreground: &statusColor},
		{Text: fav + " ", Foreground: &amber},
	}
	parts = append(parts, highlightName(item.DisplayName(), query, nameWidth)...)
	parts = append(parts,
		styles.RowPart{Text: " " + styles.Pad(item.Type, 12)},
		styles.RowPart{Text: " " + styles.Pad(item.Brand, 14)},
		styles.RowPart{Text: " " + string(item.Status), Foreground: &statusColor},
	)
	return styles.RenderListRow(parts, focused, m.width)
}

// highlightName splits name into row parts, emphasizing the runes of a
// live query. Non-matching names are dimmed.
func highlightName(name, query string, width int) []styles.RowPart {
	name = styles.Pad(name, width)
	if query == "" {
		return []styles.RowPart{{Text: name}}
	}
	if !fuzzy.MatchFold(query, name) {
		dim := styles.DimGray
		return []styles.RowPart{{Text: name, Foreground: &dim}}
	}

	accent := styles.Accent
	want := []rune(strings.ToLower(query))
	var parts []styles.RowPart
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			parts = append(parts, styles.RowPart{Text: run.String()})
			run.Reset()
		}
	}
	for _, r := range name {
		if len(want) > 0 && unicode.ToLower(r) == want[0] {
			flush()
			parts = append(parts, styles.RowPart{Text: string(r), Foreground: &accent, Bold: true})
			want = want[1:]
			continue
		}
		run.WriteRune(r)
	}
	flush()
	return parts
}

func padLines(s string, rows int) string {
	n := strings.Count(s, "\n") + 1
	if n >= rows {
		return s
	}
	return s + strings.Repeat("\n", rows-n)
}

func (m Model) renderFooter() string {
	var line string
	switch {
	case m.State == StateSearching:
		line = m.search.View()
		if q := strings.TrimSpace(m.search.Value()); q != "" {
			line += styles.DimStyle.Render(fmt.Sprintf("  %d on this page · enter to search all", m.countMatches(q)))
		}
	case m.status != "" && m.statusErr:
		line = styles.ErrorStyle.Render(m.status)
	case m.status != "":
		line = styles.SuccessStyle.Render(m.status)
	default:
		line = m.help.View(m.keys)
	}
	return line
}

func (m Model) countMatches(query string) int {
	names := make([]string, len(m.current.Items))
	for i, it := range m.current.Items {
		names[i] = it.DisplayName()
	}
	return len(fuzzy.FindFold(query, names))
}

func (m Model) renderHelp() string {
	content := styles.ModalTitleStyle.Render("Keys") + "\n" + m.help.View(m.keys)
	return m.overlay(styles.ModalStyle.Render(content))
}

func (m Model) renderConfirm() string {
	prompt := styles.TitleStyle.Render(m.confirm.prompt)
	hint := styles.HelpKeyStyle.Render("y") + styles.HelpDescStyle.Render(" confirm  ") +
		styles.HelpKeyStyle.Render("n") + styles.HelpDescStyle.Render(" cancel")
	return styles.ModalStyle.Render(prompt + "\n\n" + hint)
}
