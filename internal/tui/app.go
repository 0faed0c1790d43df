package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/wardrobe/internal/catalog"
	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/mutation"
	"github.com/mmcdole/wardrobe/internal/poll"
	"github.com/mmcdole/wardrobe/internal/prefs"
	"github.com/mmcdole/wardrobe/internal/selection"
	"github.com/mmcdole/wardrobe/internal/tui/components"
	"github.com/mmcdole/wardrobe/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateSearching
	StatePickingType
	StateConfirm
	StateHelp
)

const statusTimeout = 5 * time.Second

// Deps wires the model to the client core
type Deps struct {
	Catalog     *catalog.Service
	Coordinator *mutation.Coordinator
	Items       *mutation.Items
	Scheduler   poll.Scheduler
	Logger      *slog.Logger

	// Prefs restores the last filter and page
	Prefs    prefs.Prefs
	PageSize int
}

// pendingAction is a destructive action waiting for y/n
type pendingAction struct {
	prompt string
	run    func(m *Model) tea.Cmd
}

// Model is the main Bubble Tea model for the wardrobe list view
type Model struct {
	State ApplicationState

	catalog *catalog.Service
	coord   *mutation.Coordinator
	items   *mutation.Items
	sched   poll.Scheduler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// View state
	view     *selection.View
	pageNum  int
	pageSize int
	current  domain.Page
	loaded   bool
	loading  bool
	cursor   int
	offset   int

	// Polling
	pollSeq   int
	lastDelay time.Duration

	// UI components
	search  textinput.Model
	picker  components.TypePicker
	spinner spinner.Model
	help    help.Model
	keys    KeyMap
	confirm *pendingAction

	status    string
	statusErr bool
	statusSeq int

	width  int
	height int
}

// NewModel creates the list view
func NewModel(deps Deps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := deps.PageSize
	if deps.Prefs.PageSize > 0 {
		pageSize = deps.Prefs.PageSize
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	pageNum := max(deps.Prefs.Page, 1)

	ti := textinput.New()
	ti.Placeholder = "search name, brand, notes..."
	ti.CharLimit = 100
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		State:     StateBrowsing,
		catalog:   deps.Catalog,
		coord:     deps.Coordinator,
		items:     deps.Items,
		sched:     deps.Scheduler,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		view:      selection.NewView(deps.Prefs.ItemFilter()),
		pageNum:   pageNum,
		pageSize:  pageSize,
		search:    ti,
		picker:    components.NewTypePicker(),
		spinner:   sp,
		help:      help.New(),
		keys:      Keys,
		lastDelay: deps.Scheduler.NextDelay(nil),
		loading:   true,
	}
	m.loadCached()
	return m
}

// Init starts the first fetch. Init cannot change the model, so NewModel
// already marked it loading.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, FetchPageCmd(m.ctx, m.catalog, m.key()))
}

// Prefs returns the view state to persist on exit
func (m Model) Prefs() prefs.Prefs {
	var p prefs.Prefs
	p.Remember(m.view.Filter(), m.pageNum, m.pageSize)
	return p
}

// Selection exposes the current selection, mostly for tests
func (m Model) Selection() selection.Selection {
	return m.view.Selection()
}

// Filter returns the active filter
func (m Model) Filter() domain.ItemFilter {
	return m.view.Filter()
}

// Page returns the page currently on screen
func (m Model) Page() domain.Page {
	return m.current
}

func (m Model) key() domain.PageKey {
	return domain.NewPageKey(m.view.Filter(), m.pageNum, m.pageSize)
}

// loadCached shows whatever the cache holds for the current key
func (m *Model) loadCached() {
	page, ok := m.catalog.Cached(m.key())
	if !ok {
		m.current = domain.Page{Page: m.pageNum, PageSize: m.pageSize}
		m.loaded = false
		return
	}
	m.current = page
	m.loaded = true
	m.clampCursor()
}

func (m *Model) fetchCurrent() tea.Cmd {
	m.loading = true
	m.pollSeq++
	return FetchPageCmd(m.ctx, m.catalog, m.key())
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.search.Width = max(10, msg.Width-4)
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case PageLoadedMsg:
		return m.handlePageLoaded(msg)

	case PollTickMsg:
		if msg.Seq != m.pollSeq {
			return m, nil
		}
		cmd := m.fetchCurrent()
		return m, cmd

	case TypesLoadedMsg:
		m.picker.SetTypes(msg.Types)
		return m, nil

	case MutationSettledMsg:
		return m.handleSettled(msg)

	case ErrMsg:
		m.logger.Error("tui error", "error", msg.Err, "context", msg.Context)
		m.picker.SetLoading(false)
		cmd := m.setStatus(msg.Error(), true)
		return m, cmd

	case ClearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handlePageLoaded(msg PageLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Key != m.key() {
		// The view moved on; the cache already holds the result
		return m, nil
	}
	m.loading = false

	if msg.Err != nil {
		m.logger.Warn("page fetch failed", "key", msg.Key.String(), "error", msg.Err)
		cmds := []tea.Cmd{PollCmd(m.pollSeq, m.lastDelay)}
		if cmd := m.setStatus(ErrMsg{Err: msg.Err, Context: "loading items"}.Error(), true); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	if msg.Fresh {
		m.current = msg.Page
		m.loaded = true
	} else {
		m.loadCached()
	}
	m.clampCursor()

	// Past the last page after deletes: step back
	if m.loaded && len(m.current.Items) == 0 && m.pageNum > 1 && m.current.Total > 0 {
		m.pageNum--
		m.loadCached()
		cmd := m.fetchCurrent()
		return m, cmd
	}

	page := m.current
	m.lastDelay = m.sched.NextDelay(&page)
	return m, PollCmd(m.pollSeq, m.lastDelay)
}

func (m Model) handleSettled(msg MutationSettledMsg) (tea.Model, tea.Cmd) {
	if msg.OK && msg.Bulk && msg.Filter.Equal(m.view.Filter()) {
		m.view.Done()
	}
	m.loadCached()
	status := m.setStatus(msg.Message, !msg.OK || msg.Partial)
	fetch := m.fetchCurrent()
	return m, tea.Batch(status, fetch)
}

// setFilter switches the list to f, clearing the selection when the
// collection changes
func (m *Model) setFilter(f domain.ItemFilter) tea.Cmd {
	had := !m.view.Selection().IsEmpty()
	if !m.view.SetFilter(f) {
		return nil
	}
	m.pageNum = 1
	m.cursor = 0
	m.offset = 0
	m.loadCached()

	cmds := []tea.Cmd{m.fetchCurrent()}
	if had {
		cmds = append(cmds, m.setStatus("selection cleared", false))
	}
	return tea.Batch(cmds...)
}

func (m *Model) gotoPage(n int) tea.Cmd {
	if n < 1 || n == m.pageNum {
		return nil
	}
	m.pageNum = n
	m.cursor = 0
	m.offset = 0
	m.loadCached()
	return m.fetchCurrent()
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	if text == "" {
		return nil
	}
	m.statusSeq++
	m.status = text
	m.statusErr = isErr
	return ClearStatusCmd(m.statusSeq, statusTimeout)
}

func (m *Model) clampCursor() {
	n := len(m.current.Items)
	if m.cursor >= n {
		m.cursor = max(0, n-1)
	}
	rows := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if rows > 0 && m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

// cursorItem returns the item under the cursor
func (m Model) cursorItem() (domain.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.current.Items) {
		return domain.Item{}, false
	}
	return m.current.Items[m.cursor], true
}

func (m Model) totalPages() int {
	if m.pageSize <= 0 || m.current.Total == 0 {
		return 1
	}
	return (m.current.Total + m.pageSize - 1) / m.pageSize
}

// Close cancels outstanding fetches
func (m Model) Close() {
	m.view.Reset()
	m.cancel()
}
