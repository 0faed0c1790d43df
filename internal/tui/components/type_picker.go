package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/tui/styles"
)

// AllTypes is the picker entry that clears the type filter
const AllTypes = "all types"

// typeSource adapts the type list for fuzzy.FindFrom
type typeSource []domain.ItemType

func (s typeSource) String(i int) string { return s[i].Type }
func (s typeSource) Len() int            { return len(s) }

// TypePicker is a modal for choosing the item type filter
type TypePicker struct {
	input   textinput.Model
	types   []domain.ItemType
	matches []int // indexes into types; nil = no query
	cursor  int
	visible bool
	loading bool
	width   int
}

// NewTypePicker creates a new type picker
func NewTypePicker() TypePicker {
	ti := textinput.New()
	ti.Placeholder = "type..."
	ti.CharLimit = 40
	ti.Width = 24
	ti.Prompt = "› "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return TypePicker{input: ti, width: 32}
}

// Show opens the picker. Types may arrive later via SetTypes.
func (p *TypePicker) Show() {
	p.visible = true
	p.cursor = 0
	p.matches = nil
	p.input.SetValue("")
	p.input.Focus()
}

// Hide dismisses the picker
func (p *TypePicker) Hide() {
	p.visible = false
	p.input.Blur()
}

// IsVisible returns whether the picker is shown
func (p TypePicker) IsVisible() bool {
	return p.visible
}

// SetLoading toggles the loading placeholder
func (p *TypePicker) SetLoading(loading bool) {
	p.loading = loading
}

// SetTypes replaces the available types
func (p *TypePicker) SetTypes(types []domain.ItemType) {
	p.types = types
	p.loading = false
	p.applyQuery()
}

// choices returns the entries in display order; index 0 is AllTypes when
// there is no query
func (p TypePicker) choices() []string {
	var out []string
	if p.matches == nil {
		out = append(out, AllTypes)
		for _, t := range p.types {
			out = append(out, t.Type)
		}
		return out
	}
	for _, i := range p.matches {
		out = append(out, p.types[i].Type)
	}
	return out
}

func (p *TypePicker) applyQuery() {
	query := strings.TrimSpace(p.input.Value())
	if query == "" {
		p.matches = nil
	} else {
		matches := fuzzy.FindFrom(query, typeSource(p.types))
		p.matches = make([]int, len(matches))
		for i, m := range matches {
			p.matches[i] = m.Index
		}
	}
	if n := len(p.choices()); p.cursor >= n {
		p.cursor = max(0, n-1)
	}
}

// Update handles a key. chosen is non-nil once the user picks an entry;
// an empty string means "all types".
func (p TypePicker) Update(msg tea.Msg) (TypePicker, tea.Cmd, *string) {
	if !p.visible {
		return p, nil, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil, nil
	}

	switch keyMsg.String() {
	case "esc":
		p.Hide()
		return p, nil, nil
	case "enter":
		choices := p.choices()
		if len(choices) == 0 {
			return p, nil, nil
		}
		chosen := choices[p.cursor]
		if chosen == AllTypes && p.matches == nil {
			chosen = ""
		}
		p.Hide()
		return p, nil, &chosen
	case "down", "ctrl+n":
		if p.cursor < len(p.choices())-1 {
			p.cursor++
		}
		return p, nil, nil
	case "up", "ctrl+p":
		if p.cursor > 0 {
			p.cursor--
		}
		return p, nil, nil
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	p.applyQuery()
	return p, cmd, nil
}

// View renders the picker
func (p TypePicker) View() string {
	if !p.visible {
		return ""
	}

	counts := make(map[string]int, len(p.types))
	for _, t := range p.types {
		counts[t.Type] = t.Count
	}

	var lines []string
	lines = append(lines, p.input.View())
	switch {
	case p.loading:
		lines = append(lines, styles.DimStyle.Render("loading types..."))
	case len(p.choices()) == 0:
		lines = append(lines, styles.DimStyle.Render("no matching types"))
	}

	for i, name := range p.choices() {
		label := name
		if n, ok := counts[name]; ok {
			label = fmt.Sprintf("%s (%d)", name, n)
		}
		text := styles.Pad(label, p.width-4)
		if i == p.cursor {
			lines = append(lines, lipgloss.NewStyle().
				Foreground(styles.White).
				Background(styles.SlateLight).
				Render(text))
			continue
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.LightGray).Render(text))
	}

	return styles.ModalStyle.
		Padding(0, 1).
		Render(styles.ModalTitleStyle.Render("Filter by type") + "\n" + strings.Join(lines, "\n"))
}
