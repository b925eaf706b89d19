// Package trends provides the trends tab: one metric of a simulation
// plotted across its stored runs.
package trends

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/gatling-dashboard-tui/internal/app"
	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services"
)

// keyMap defines the key bindings specific to the trends tab.
type keyMap struct {
	NextSimulation key.Binding
	NextRequest    key.Binding
	PrevRequest    key.Binding
	ToggleMetric   key.Binding
	ToggleRange    key.Binding
	Up             key.Binding
	Down           key.Binding
}

// defaultKeyMap returns the default key bindings for the trends tab.
func defaultKeyMap() keyMap {
	return keyMap{
		NextSimulation: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "next simulation"),
		),
		NextRequest: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next request"),
		),
		PrevRequest: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prev request"),
		),
		ToggleMetric: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "toggle metric"),
		),
		ToggleRange: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle time range"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// query identifies one trend.
type query struct {
	simulation string
	path       string
	metric     models.TrendMetric
	timeRange  models.TimeRange
}

// trendLoadedMsg is sent when a trend is loaded. The query is the resolved
// one: an unknown simulation or path falls back to the first available.
type trendLoadedMsg struct {
	seq         int
	query       query
	simulations []string
	paths       []string
	trend       *models.Trend
	reference   *models.Trend
}

// trendErrorMsg is sent when there's an error loading a trend.
type trendErrorMsg struct {
	seq int
	err string
}

// Model represents the trends tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model

	// Current view state
	query       query
	simulations []string
	paths       []string
	trend       *models.Trend
	reference   *models.Trend
	loading     bool
	seq         int
	errorMsg    string
}

// New creates a new trends model.
func New(state *app.State, svc *services.Manager) *Model {
	return &Model{
		state:    state,
		services: svc,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
		query: query{
			metric:    models.TrendPercentile3,
			timeRange: models.TimeRangeAllTime,
		},
	}
}

// Init initializes the trends tab.
func (m *Model) Init() tea.Cmd {
	return m.reload()
}

// reload starts loading the current query. Results of older loads are
// dropped when they arrive.
func (m *Model) reload() tea.Cmd {
	m.seq++
	m.loading = true
	return m.loadTrendCmd(m.seq, m.query)
}

// loadTrendCmd creates a command to load a trend.
func (m *Model) loadTrendCmd(seq int, q query) tea.Cmd {
	mgr := m.services
	return func() tea.Msg {
		if mgr == nil {
			return trendErrorMsg{seq: seq, err: "Services not initialized"}
		}

		sims, err := mgr.ListSimulations()
		if err != nil {
			return trendErrorMsg{seq: seq, err: err.Error()}
		}
		if len(sims) == 0 {
			return trendLoadedMsg{seq: seq, query: q}
		}
		if !slices.Contains(sims, q.simulation) {
			q.simulation = sims[0]
		}

		paths, err := mgr.GetRequestPaths(q.simulation)
		if err != nil {
			return trendErrorMsg{seq: seq, err: err.Error()}
		}
		if !slices.Contains(paths, q.path) {
			q.path = ""
		}

		trend, err := mgr.GetTrend(q.simulation, q.path, q.metric, q.timeRange)
		if err != nil {
			return trendErrorMsg{seq: seq, err: err.Error()}
		}

		// The global series is drawn behind a request series
		var reference *models.Trend
		if q.path != "" {
			reference, err = mgr.GetTrend(q.simulation, "", q.metric, q.timeRange)
			if err != nil {
				return trendErrorMsg{seq: seq, err: err.Error()}
			}
		}

		return trendLoadedMsg{
			seq:         seq,
			query:       q,
			simulations: sims,
			paths:       paths,
			trend:       trend,
			reference:   reference,
		}
	}
}

// Update handles messages for the trends tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case trendLoadedMsg:
		if msg.seq != m.seq {
			break
		}
		m.loading = false
		m.errorMsg = ""
		m.query = msg.query
		m.simulations = msg.simulations
		m.paths = msg.paths
		m.trend = msg.trend
		m.reference = msg.reference
		m.viewport.GotoTop()

	case trendErrorMsg:
		if msg.seq != m.seq {
			break
		}
		m.loading = false
		m.errorMsg = msg.err
		cmds = append(cmds, func() tea.Msg {
			return app.AddNotificationMsg{
				Type:     app.NotificationError,
				Message:  fmt.Sprintf("Trend error: %s", msg.err),
				Duration: app.LongNotificationDuration,
			}
		})

	case app.ServiceEventMsg:
		// A new run may extend the series
		if _, ok := msg.Event.(services.RunsChangedEvent); ok {
			cmds = append(cmds, m.reload())
		}

	case app.DeleteRunResultMsg:
		if msg.Success {
			cmds = append(cmds, m.reload())
		}

	case app.TabSwitchMsg:
		// Inactive tabs miss updates, so reload on every visit
		if msg.Tab == app.TabTrends {
			m.followSelectedRun()
			cmds = append(cmds, m.reload())
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.NextSimulation):
		if len(m.simulations) > 1 {
			m.query.simulation = cycle(m.simulations, m.query.simulation, 1)
			m.query.path = ""
			return m.reload()
		}

	case key.Matches(msg, m.keys.NextRequest):
		if len(m.paths) > 1 {
			m.query.path = cycle(m.paths, m.query.path, 1)
			return m.reload()
		}

	case key.Matches(msg, m.keys.PrevRequest):
		if len(m.paths) > 1 {
			m.query.path = cycle(m.paths, m.query.path, -1)
			return m.reload()
		}

	case key.Matches(msg, m.keys.ToggleMetric):
		m.query.metric = m.query.metric.Next()
		return m.reload()

	case key.Matches(msg, m.keys.ToggleRange):
		m.query.timeRange = m.query.timeRange.Next()
		return m.reload()

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// followSelectedRun switches to the simulation of the run selected in the
// runs tab.
func (m *Model) followSelectedRun() {
	run := m.state.GetSelectedRun()
	if run == nil || run.Simulation == m.query.simulation {
		return
	}
	m.query.simulation = run.Simulation
	m.query.path = ""
}

// cycle returns the entry step positions away from current, wrapping
// around. An unknown current starts from the first entry.
func cycle(items []string, current string, step int) string {
	idx := slices.Index(items, current)
	if idx < 0 {
		return items[0]
	}
	n := len(items)
	return items[((idx+step)%n+n)%n]
}

// metricLabel names the plotted metric, using the configured percentile
// bands.
func (m *Model) metricLabel() string {
	ind := config.DefaultIndicators()
	if m.services != nil {
		ind = m.services.Indicators()
	}
	switch m.query.metric {
	case models.TrendPercentile1:
		return ind.PercentileLabel(1) + " (ms)"
	case models.TrendPercentile2:
		return ind.PercentileLabel(2) + " (ms)"
	case models.TrendPercentile3:
		return ind.PercentileLabel(3) + " (ms)"
	case models.TrendPercentile4:
		return ind.PercentileLabel(4) + " (ms)"
	case models.TrendMean:
		return "Mean (ms)"
	case models.TrendMax:
		return "Max (ms)"
	default:
		return m.query.metric.String()
	}
}

// SetSize sets the available size for the trends tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(0, height-6)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.NextSimulation,
		m.keys.NextRequest,
		m.keys.ToggleMetric,
		m.keys.ToggleRange,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.NextSimulation, m.keys.NextRequest, m.keys.PrevRequest},
		{m.keys.ToggleMetric, m.keys.ToggleRange},
		{m.keys.Up, m.keys.Down},
	}
}
