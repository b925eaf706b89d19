// Package compare provides the compare tab: per-request deltas between
// the selected run and a baseline, with the run's assertion results.
package compare

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/gatling-dashboard-tui/internal/app"
	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services"
)

// thresholdStep is how much +/- move the regression threshold, in percent.
const thresholdStep = 1.0

type keyMap struct {
	PinBaseline    key.Binding
	ClearBaseline  key.Binding
	RaiseThreshold key.Binding
	LowerThreshold key.Binding
	RegressedOnly  key.Binding
	Up             key.Binding
	Down           key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PinBaseline: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "pin as baseline"),
		),
		ClearBaseline: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "compare with previous"),
		),
		RaiseThreshold: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "raise threshold"),
		),
		LowerThreshold: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "lower threshold"),
		),
		RegressedOnly: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "regressions only"),
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

type comparisonLoadedMsg struct {
	seq        int
	candidate  models.StoredRun
	comparison *models.Comparison
	outcomes   []models.AssertionOutcome
}

type comparisonErrorMsg struct {
	seq int
	err string
}

// Model represents the compare tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model

	baselineID    string
	regressedOnly bool

	candidate  *models.StoredRun
	comparison *models.Comparison
	outcomes   []models.AssertionOutcome
	loading    bool
	seq        int
	errorMsg   string
}

// New creates a new compare model.
func New(state *app.State, svc *services.Manager) *Model {
	return &Model{
		state:    state,
		services: svc,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the compare tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// targetRun returns the run to compare: the selected one, or the newest.
func (m *Model) targetRun() *models.StoredRun {
	if run := m.state.GetSelectedRun(); run != nil {
		return run
	}
	runs := m.state.GetRuns()
	if len(runs) == 0 {
		return nil
	}
	return &runs[0]
}

// reload starts comparing the target run. Results of older loads are
// dropped when they arrive.
func (m *Model) reload() tea.Cmd {
	m.seq++
	run := m.targetRun()
	if run == nil {
		m.loading = false
		m.candidate = nil
		m.comparison = nil
		m.outcomes = nil
		return nil
	}
	m.loading = true
	return m.loadComparisonCmd(m.seq, *run, m.baselineID)
}

func (m *Model) loadComparisonCmd(seq int, candidate models.StoredRun, baselineID string) tea.Cmd {
	mgr := m.services
	return func() tea.Msg {
		if mgr == nil {
			return comparisonErrorMsg{seq: seq, err: "Services not initialized"}
		}

		var cmp *models.Comparison
		var err error
		if baselineID != "" && baselineID != candidate.ID {
			cmp, err = mgr.Compare(baselineID, candidate.ID)
		} else {
			cmp, err = mgr.CompareWithPrevious(candidate.ID)
		}
		if err != nil {
			return comparisonErrorMsg{seq: seq, err: err.Error()}
		}

		outcomes, err := mgr.GetAssertionResults(candidate.ID)
		if err != nil {
			return comparisonErrorMsg{seq: seq, err: err.Error()}
		}

		return comparisonLoadedMsg{
			seq:        seq,
			candidate:  candidate,
			comparison: cmp,
			outcomes:   outcomes,
		}
	}
}

// Update handles messages for the compare tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case comparisonLoadedMsg:
		if msg.seq != m.seq {
			break
		}
		m.loading = false
		m.errorMsg = ""
		candidate := msg.candidate
		m.candidate = &candidate
		m.comparison = msg.comparison
		m.outcomes = msg.outcomes
		m.viewport.GotoTop()

	case comparisonErrorMsg:
		if msg.seq != m.seq {
			break
		}
		m.loading = false
		m.errorMsg = msg.err
		cmds = append(cmds, func() tea.Msg {
			return app.AddNotificationMsg{
				Type:     app.NotificationError,
				Message:  fmt.Sprintf("Compare error: %s", msg.err),
				Duration: app.LongNotificationDuration,
			}
		})

	case app.TabSwitchMsg:
		if msg.Tab == app.TabCompare {
			cmds = append(cmds, m.reload())
		}

	case app.ServiceEventMsg:
		if _, ok := msg.Event.(services.RunsChangedEvent); ok {
			cmds = append(cmds, m.reload())
		}

	case app.DeleteRunResultMsg:
		if msg.Success {
			if msg.RunID == m.baselineID {
				m.baselineID = ""
			}
			cmds = append(cmds, m.reload())
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.PinBaseline):
		if m.candidate != nil {
			m.baselineID = m.candidate.ID
			return func() tea.Msg {
				return app.AddNotificationMsg{
					Type:     app.NotificationInfo,
					Message:  "Baseline pinned, select another run to compare",
					Duration: app.DefaultNotificationDuration,
				}
			}
		}

	case key.Matches(msg, m.keys.ClearBaseline):
		if m.baselineID != "" {
			m.baselineID = ""
			return m.reload()
		}

	case key.Matches(msg, m.keys.RaiseThreshold):
		return m.setThreshold(m.threshold() + thresholdStep)

	case key.Matches(msg, m.keys.LowerThreshold):
		return m.setThreshold(max(0, m.threshold()-thresholdStep))

	case key.Matches(msg, m.keys.RegressedOnly):
		m.regressedOnly = !m.regressedOnly

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) threshold() float64 {
	if m.services == nil {
		return config.DefaultRegressionThreshold
	}
	return m.services.Comparer().Threshold()
}

// setThreshold changes the regression threshold and recomputes.
func (m *Model) setThreshold(threshold float64) tea.Cmd {
	if m.services == nil {
		return nil
	}
	m.services.Comparer().SetThreshold(threshold)
	return m.reload()
}

func (m *Model) indicators() config.Indicators {
	if m.services == nil {
		return config.DefaultIndicators()
	}
	return m.services.Indicators()
}

// SetSize sets the available size for the compare tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(0, height-6)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.PinBaseline,
		m.keys.RaiseThreshold,
		m.keys.LowerThreshold,
		m.keys.RegressedOnly,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.PinBaseline, m.keys.ClearBaseline},
		{m.keys.RaiseThreshold, m.keys.LowerThreshold, m.keys.RegressedOnly},
		{m.keys.Up, m.keys.Down},
	}
}
