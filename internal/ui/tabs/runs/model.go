// Package runs provides the runs tab: the stored run list and the stats of
// the selected run.
package runs

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/gatling-dashboard-tui/internal/app"
	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/styles"
)

// keyMap defines the key bindings specific to the runs tab.
type keyMap struct {
	NextRequest key.Binding
	PrevRequest key.Binding
	Global      key.Binding
	Delete      key.Binding
	Filter      key.Binding
	Escape      key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
}

// defaultKeyMap returns the default key bindings for the runs tab.
func defaultKeyMap() keyMap {
	return keyMap{
		NextRequest: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next request"),
		),
		PrevRequest: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prev request"),
		),
		Global: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "global stats"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete run"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll details up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll details down"),
		),
	}
}

// snapshotLoadedMsg carries the stats tree of the selected run.
type snapshotLoadedMsg struct {
	runID string
	snap  *models.Snapshot
	err   error
}

// Model represents the runs tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	table    table.Model
	filter   textinput.Model
	spinner  components.LoadingSpinner
	viewport viewport.Model
	keys     keyMap
	width    int
	height   int

	filtering bool
	visible   []models.StoredRun

	confirmDelete bool
	deleteRunID   string

	// Selected run details
	loadedRunID string
	snapshot    *models.Snapshot
	nodes       []*models.Node
	nodeIndex   int
	bars        []components.DistributionBar
	loadErr     string
}

// New creates a new runs model.
func New(state *app.State, svc *services.Manager) *Model {
	filter := textinput.New()
	filter.Placeholder = "simulation or run id"
	filter.Prompt = "/ "
	filter.CharLimit = 100
	filter.Width = 40

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Subtle).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Selected.
		Foreground(styles.TextPrimary).
		Background(styles.BgAccent).
		Bold(true)
	t.SetStyles(s)

	return &Model{
		state:    state,
		services: svc,
		table:    t,
		filter:   filter,
		spinner:  components.NewSpinner("Loading runs..."),
		viewport: viewport.New(0, 0),
		keys:     defaultKeyMap(),
	}
}

// columns sizes the run table for width.
func columns(width int) []table.Column {
	simWidth := max(width-78, 20)
	simWidth = min(simWidth, 45)
	return []table.Column{
		{Title: "Started", Width: 19},
		{Title: "Simulation", Width: simWidth},
		{Title: "Requests", Width: 11},
		{Title: "KO", Width: 8},
		{Title: "Req/s", Width: 10},
		{Title: "Issues", Width: 6},
		{Title: "Failed", Width: 6},
	}
}

// Init initializes the runs tab.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// CapturesInput reports whether the filter prompt or the delete
// confirmation owns the keyboard.
func (m *Model) CapturesInput() bool {
	return m.filtering || m.confirmDelete
}

// Update handles messages for the runs tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		if m.confirmDelete {
			return m.updateDeleteConfirm(msg)
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	case app.RunsLoadedMsg, app.ServiceEventMsg, app.DeleteRunResultMsg:
		cmds = append(cmds, m.syncRows())

	case app.TabSwitchMsg:
		if msg.Tab == app.TabRuns {
			cmds = append(cmds, m.syncRows())
		}

	case snapshotLoadedMsg:
		cmds = append(cmds, m.handleSnapshotLoaded(msg))

	case components.AnimationTickMsg:
		for i := range m.bars {
			var cmd tea.Cmd
			m.bars[i], cmd = m.bars[i].Update(msg)
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		if m.state.IsInitialLoading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		// Cursor blink
		if m.filtering {
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filter.Focus()
		return textinput.Blink

	case key.Matches(msg, m.keys.Escape):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			return m.syncRows()
		}

	case key.Matches(msg, m.keys.Delete):
		if run := m.selectedRun(); run != nil {
			m.confirmDelete = true
			m.deleteRunID = run.ID
		}

	case key.Matches(msg, m.keys.NextRequest):
		if len(m.nodes) > 0 {
			m.nodeIndex = (m.nodeIndex + 1) % len(m.nodes)
			return m.resetBars()
		}

	case key.Matches(msg, m.keys.PrevRequest):
		if len(m.nodes) > 0 {
			m.nodeIndex = (m.nodeIndex - 1 + len(m.nodes)) % len(m.nodes)
			return m.resetBars()
		}

	case key.Matches(msg, m.keys.Global):
		if len(m.nodes) > 0 && m.nodeIndex != 0 {
			m.nodeIndex = 0
			return m.resetBars()
		}

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd

	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return tea.Batch(cmd, m.selectionChanged())
	}
	return nil
}

// updateFilter feeds keys to the filter prompt and narrows the table as
// the query changes.
func (m *Model) updateFilter(msg tea.Msg) (app.Tab, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			m.filtering = false
			m.filter.Blur()
			return m, nil
		case "esc":
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			return m, m.syncRows()
		}
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, tea.Batch(cmd, m.syncRows())
}

// updateDeleteConfirm handles the delete confirmation.
func (m *Model) updateDeleteConfirm(msg tea.Msg) (app.Tab, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "y", "Y":
			m.confirmDelete = false
			runID := m.deleteRunID
			m.deleteRunID = ""
			return m, func() tea.Msg {
				return app.DeleteRunMsg{RunID: runID}
			}
		case "n", "N", "esc":
			m.confirmDelete = false
			m.deleteRunID = ""
		}
	}
	return m, nil
}

// syncRows rebuilds the table from the shared run list and the filter.
func (m *Model) syncRows() tea.Cmd {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))

	runs := m.state.GetRuns()
	m.visible = m.visible[:0]
	rows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		if query != "" &&
			!strings.Contains(strings.ToLower(run.Simulation), query) &&
			!strings.Contains(strings.ToLower(run.ID), query) {
			continue
		}
		m.visible = append(m.visible, run)
		rows = append(rows, runRow(run))
	}

	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
	return m.selectionChanged()
}

func runRow(run models.StoredRun) table.Row {
	started := "-"
	if !run.StartedAt.IsZero() {
		started = run.StartedAt.Format("2006-01-02 15:04:05")
	}
	issues := ""
	if run.IssueCount > 0 {
		issues = humanize.Comma(int64(run.IssueCount))
	}
	failed := ""
	if run.FailedAssertions > 0 {
		failed = humanize.Comma(int64(run.FailedAssertions))
	}
	return table.Row{
		started,
		run.Simulation,
		humanize.Comma(run.TotalRequests),
		humanize.Comma(run.KORequests),
		humanize.FtoaWithDigits(run.MeanRPS, 2),
		issues,
		failed,
	}
}

func (m *Model) selectedRun() *models.StoredRun {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return nil
	}
	return &m.visible[idx]
}

// selectionChanged loads the selected run when it differs from the one
// shown, and tells the other tabs about it.
func (m *Model) selectionChanged() tea.Cmd {
	run := m.selectedRun()
	if run == nil {
		m.loadedRunID = ""
		m.snapshot = nil
		m.nodes = nil
		m.bars = nil
		return nil
	}
	// A load lost while another tab was active is retried
	if run.ID == m.loadedRunID && (m.snapshot != nil || m.loadErr != "") {
		return nil
	}

	m.loadedRunID = run.ID
	m.loadErr = ""

	idx := 0
	for i, r := range m.state.GetRuns() {
		if r.ID == run.ID {
			idx = i
			break
		}
	}
	runID := run.ID
	return tea.Batch(
		func() tea.Msg { return app.SelectedRunChangedMsg{Index: idx, RunID: runID} },
		m.loadSnapshotCmd(runID),
	)
}

func (m *Model) loadSnapshotCmd(runID string) tea.Cmd {
	mgr := m.services
	return func() tea.Msg {
		if mgr == nil {
			return nil
		}
		snap, err := mgr.GetSnapshot(runID)
		return snapshotLoadedMsg{runID: runID, snap: snap, err: err}
	}
}

func (m *Model) handleSnapshotLoaded(msg snapshotLoadedMsg) tea.Cmd {
	// A newer selection superseded this load
	if msg.runID != m.loadedRunID {
		return nil
	}
	if msg.err != nil {
		m.loadErr = msg.err.Error()
		m.snapshot = nil
		m.nodes = nil
		m.bars = nil
		return nil
	}

	m.snapshot = msg.snap
	m.nodes = msg.snap.Root.Flatten()
	m.nodeIndex = 0
	return m.resetBars()
}

// resetBars animates the distribution bars towards the current node.
func (m *Model) resetBars() tea.Cmd {
	node := m.currentNode()
	if node == nil {
		m.bars = nil
		return nil
	}
	var cmd tea.Cmd
	m.bars, cmd = components.NewDistributionBars(&node.Stats)
	return cmd
}

func (m *Model) currentNode() *models.Node {
	if m.nodeIndex < 0 || m.nodeIndex >= len(m.nodes) {
		return nil
	}
	return m.nodes[m.nodeIndex]
}

// indicators returns the charting indicators used to color latencies.
func (m *Model) indicators() config.Indicators {
	if m.services == nil {
		return config.DefaultIndicators()
	}
	return m.services.Indicators()
}

// SetSize sets the available size for the runs tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetHeight(max(5, min(12, height/3)))
	m.viewport.Width = width
	m.viewport.Height = max(0, height-m.table.Height()-10)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.filtering {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
			m.keys.Escape,
		}
	}
	return []key.Binding{
		m.keys.NextRequest,
		m.keys.PrevRequest,
		m.keys.Global,
		m.keys.Filter,
		m.keys.Delete,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.NextRequest, m.keys.PrevRequest, m.keys.Global},
		{m.keys.Filter, m.keys.Escape, m.keys.Delete},
		{m.keys.PageUp, m.keys.PageDown},
	}
}
