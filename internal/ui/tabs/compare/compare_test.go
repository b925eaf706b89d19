package compare

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/gatling-dashboard-tui/internal/app"
	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services"
	"github.com/j-veylop/gatling-dashboard-tui/internal/statsjs"
)

const (
	perSecondRun = "serverpersecondloadsimulation-20241109073731010"
	rerunID      = "serverpersecondloadsimulation-20241110073731010"
)

const assertionsYAML = `
assertions:
  - name: p95 under 40s
    expr: global.percentiles3.ok < 40000
  - name: p95 under 1.2s
    expr: global.percentiles3.ok < 1200
`

// newManager returns a manager holding two identical runs of one
// simulation, with one passing and one failing assertion.
func newManager(t *testing.T) *services.Manager {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:        filepath.Join(tmpDir, "test.db"),
		ResultsPath:         filepath.Join(tmpDir, "results"),
		AssertionsPath:      filepath.Join(tmpDir, "assertions.yaml"),
		RegressionThreshold: 10,
	}
	if err := os.WriteFile(cfg.AssertionsPath, []byte(assertionsYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join("..", "..", "..", "statsjs", "testdata", "results", perSecondRun, statsjs.StatsFile))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{perSecondRun, rerunID} {
		dir := filepath.Join(cfg.ResultsPath, name, "js")
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "stats.js"), data, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	mgr, err := services.NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	if _, err := mgr.Import(context.Background()); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	return mgr
}

func newModel(t *testing.T, mgr *services.Manager, selected string) *Model {
	t.Helper()
	state := app.NewState()
	runs, _ := mgr.InitialState()
	state.SetRuns(runs)
	for i, r := range runs {
		if r.ID == selected {
			state.SetSelectedRun(i, r.ID)
		}
	}
	m := New(state, mgr)
	m.SetSize(120, 200)
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes the pending load and feeds the result back.
func run(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			run(m, c)
		}
		return
	}
	switch msg.(type) {
	case comparisonLoadedMsg, comparisonErrorMsg:
		m.Update(msg)
	}
}

func TestNew(t *testing.T) {
	m := New(app.NewState(), nil)
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init should wait for the tab to be shown")
	}
}

func TestModel_NoRuns(t *testing.T) {
	m := New(app.NewState(), nil)
	m.SetSize(100, 40)

	_, cmd := m.Update(app.TabSwitchMsg{Tab: app.TabCompare})
	if cmd != nil {
		t.Error("nothing to load without runs")
	}
	if !strings.Contains(m.View(), "No runs stored yet") {
		t.Error("view should explain there are no runs")
	}
}

func TestModel_NoServices(t *testing.T) {
	state := app.NewState()
	state.SetRuns([]models.StoredRun{{RunInfo: models.ParseRunID(perSecondRun)}})
	m := New(state, nil)
	m.SetSize(100, 40)

	run(m, m.reload())
	if m.errorMsg != "Services not initialized" {
		t.Errorf("errorMsg = %q", m.errorMsg)
	}
}

func TestModel_CompareWithPrevious(t *testing.T) {
	mgr := newManager(t)
	m := newModel(t, mgr, rerunID)

	_, cmd := m.Update(app.TabSwitchMsg{Tab: app.TabCompare})
	run(m, cmd)

	if m.errorMsg != "" {
		t.Fatalf("unexpected error: %s", m.errorMsg)
	}
	if m.comparison == nil {
		t.Fatal("second run should compare with the first")
	}
	if m.comparison.Baseline.ID != perSecondRun {
		t.Errorf("baseline = %q", m.comparison.Baseline.ID)
	}
	if m.comparison.HasRegression() {
		t.Error("identical runs should not regress")
	}
	if len(m.outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(m.outcomes))
	}

	view := m.View()
	for _, want := range []string{
		"Compare: serverpersecondloadsimulation",
		"previous run",
		"No regression across 3 requests",
		"95th pct (ms)",
		"threshold 10%",
		"1 of 2 assertions failed",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_FirstRun(t *testing.T) {
	mgr := newManager(t)
	m := newModel(t, mgr, perSecondRun)

	run(m, m.reload())
	if m.comparison != nil {
		t.Fatal("first run has no baseline")
	}
	if !strings.Contains(m.View(), "Nothing to compare") {
		t.Error("view should explain the first run case")
	}
}

func TestModel_PinnedBaseline(t *testing.T) {
	mgr := newManager(t)
	m := newModel(t, mgr, perSecondRun)
	run(m, m.reload())

	_, cmd := m.Update(keyRunes("b"))
	if m.baselineID != perSecondRun {
		t.Fatalf("baselineID = %q", m.baselineID)
	}
	if cmd == nil {
		t.Fatal("pinning should notify")
	}
	if _, ok := cmd().(app.AddNotificationMsg); !ok {
		t.Error("pinning should emit AddNotificationMsg")
	}

	// Select the other run: it is compared against the pinned one
	runs := m.state.GetRuns()
	for i, r := range runs {
		if r.ID == rerunID {
			m.state.SetSelectedRun(i, r.ID)
		}
	}
	run(m, m.reload())
	if m.comparison == nil || m.comparison.Baseline.ID != perSecondRun {
		t.Fatalf("comparison = %+v", m.comparison)
	}
	if !strings.Contains(m.View(), "(pinned)") {
		t.Error("view should mark the pinned baseline")
	}

	_, cmd = m.Update(keyRunes("x"))
	run(m, cmd)
	if m.baselineID != "" {
		t.Error("x should clear the pinned baseline")
	}
}

func TestModel_Threshold(t *testing.T) {
	mgr := newManager(t)
	m := newModel(t, mgr, rerunID)

	_, cmd := m.Update(keyRunes("+"))
	run(m, cmd)
	if got := mgr.Comparer().Threshold(); got != 11 {
		t.Errorf("threshold = %v, want 11", got)
	}
	if m.comparison == nil || m.comparison.Threshold != 11 {
		t.Error("comparison should be recomputed with the new threshold")
	}

	for range 20 {
		m.Update(keyRunes("-"))
	}
	if got := mgr.Comparer().Threshold(); got != 0 {
		t.Errorf("threshold should stop at 0, got %v", got)
	}
}

func TestModel_RegressedOnly(t *testing.T) {
	mgr := newManager(t)
	m := newModel(t, mgr, rerunID)
	run(m, m.reload())

	m.Update(keyRunes("f"))
	if !m.regressedOnly {
		t.Fatal("f should toggle the filter")
	}
	if !strings.Contains(m.View(), "No regressed requests.") {
		t.Error("filtered view should hide unchanged requests")
	}
}

func TestModel_StaleLoadIgnored(t *testing.T) {
	m := New(app.NewState(), nil)
	m.seq = 3

	m.Update(comparisonLoadedMsg{seq: 2, candidate: models.StoredRun{RunInfo: models.RunInfo{ID: "old"}}})
	if m.candidate != nil {
		t.Error("a superseded load should be dropped")
	}
}

func TestSigned(t *testing.T) {
	if got := signed(12.5); got != "+12.5" {
		t.Errorf("signed(12.5) = %q", got)
	}
	if got := signed(-3); got != "-3" {
		t.Errorf("signed(-3) = %q", got)
	}
	if got := signed(0); got != "0" {
		t.Errorf("signed(0) = %q", got)
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState(), nil)
	if len(m.ShortHelp()) == 0 {
		t.Error("ShortHelp should not be empty")
	}
	if len(m.FullHelp()) == 0 {
		t.Error("FullHelp should not be empty")
	}
}
