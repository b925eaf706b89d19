package info

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/gatling-dashboard-tui/internal/app"
	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services"
	"github.com/j-veylop/gatling-dashboard-tui/internal/version"
)

func testConfig() *config.Config {
	return &config.Config{
		DatabasePath:        "/tmp/gdt/gdt.db",
		ResultsPath:         "/work/target/gatling",
		LogLevel:            "info",
		ScanInterval:        30 * time.Second,
		RegressionThreshold: 10,
	}
}

func TestNew(t *testing.T) {
	m := New(app.NewState(), testConfig(), config.DefaultIndicators())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init should return nil")
	}
}

func TestModel_Update(t *testing.T) {
	m := New(app.NewState(), testConfig(), config.DefaultIndicators())

	updated, _ := m.Update(nil)
	if updated == nil {
		t.Error("Update returned nil model")
	}
}

func TestModel_Copy(t *testing.T) {
	cfg := testConfig()
	m := New(app.NewState(), cfg, config.DefaultIndicators())

	tests := map[string]string{
		"c": cfg.DatabasePath,
		"y": cfg.ResultsPath,
	}
	for k, want := range tests {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		if cmd == nil {
			t.Fatalf("%s: expected a command", k)
		}
		msg, ok := cmd().(app.CopyToClipboardMsg)
		if !ok {
			t.Fatalf("%s: expected CopyToClipboardMsg", k)
		}
		if msg.Text != want {
			t.Errorf("%s: copied %q, want %q", k, msg.Text, want)
		}
	}

	// Nothing to copy without a configuration
	m = New(app.NewState(), nil, config.DefaultIndicators())
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")}); cmd != nil {
		t.Error("copy without config should do nothing")
	}
}

func TestModel_View(t *testing.T) {
	version.Version = "v1.2.3"
	version.Commit = "abc1234"
	version.Date = "2024-11-09"
	t.Cleanup(version.Reset)

	state := app.NewState()
	state.SetStats(services.StatsEvent{Runs: 2, Simulations: 1, TotalRequests: 240000})

	ind := config.DefaultIndicators()
	ind.Percentiles[3] = 99.9
	ind.Source = "/etc/gatling/gatling.conf"

	m := New(state, testConfig(), ind)
	m.SetSize(100, 80)

	view := m.View()
	for _, want := range []string{
		"/work/target/gatling",
		"/tmp/gdt/gdt.db",
		"(none)",
		"30s",
		"10%",
		"/etc/gatling/gatling.conf",
		"800 ms",
		"99.9th pct",
		"v1.2.3",
		"abc1234",
		"240,000",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_ViewWithoutConfig(t *testing.T) {
	m := New(app.NewState(), nil, config.DefaultIndicators())
	m.SetSize(80, 60)

	view := m.View()
	if !strings.Contains(view, "Configuration not loaded") {
		t.Error("view should say the configuration is missing")
	}
	if !strings.Contains(view, "Gatling defaults") {
		t.Error("indicators without a source should be labelled as defaults")
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState(), testConfig(), config.DefaultIndicators())
	if len(m.ShortHelp()) != 2 {
		t.Errorf("ShortHelp = %d bindings, want 2", len(m.ShortHelp()))
	}
	if len(m.FullHelp()) == 0 {
		t.Error("FullHelp should not be empty")
	}
}
