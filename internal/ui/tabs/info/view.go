package info

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/styles"
	"github.com/j-veylop/gatling-dashboard-tui/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	var sections []string

	// Title
	sections = append(sections, m.renderTitle())

	// Configuration card
	sections = append(sections, m.renderConfigCard())

	// Indicators card
	sections = append(sections, m.renderIndicatorsCard())

	// About card
	sections = append(sections, m.renderAboutCard())

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

// renderTitle renders the info tab title.
func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration and application information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

// renderConfigCard renders the configuration paths card.
func (m *Model) renderConfigCard() string {
	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Configuration"))
	rows = append(rows, "")

	if m.config != nil {
		rows = append(rows,
			m.renderConfigRow("Results", m.config.ResultsPath),
			m.renderConfigRow("Database", m.config.DatabasePath),
			m.renderConfigRow("Assertions", orNone(m.config.AssertionsPath)),
			m.renderConfigRow("gatling.conf", orNone(m.config.GatlingConfPath)),
			m.renderConfigRow("Log File", orNone(m.config.LogPath)),
			m.renderConfigRow("Log Level", m.config.LogLevel),
			m.renderConfigRow("Scan Interval", m.config.ScanInterval.String()),
			m.renderConfigRow("Threshold", humanize.Ftoa(m.config.RegressionThreshold)+"%"),
			m.renderConfigRow("Notifications", strconv.FormatBool(m.config.Notify)),
		)
	} else {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	}

	rows = append(rows, "")
	rows = append(rows, styles.HelpStyle.Render("Press 'c' to copy the database path, 'y' the results path"))

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderIndicatorsCard renders the Gatling charting indicators in use.
func (m *Model) renderIndicatorsCard() string {
	ind := m.indicators

	source := "Gatling defaults"
	if ind.Source != "" {
		source = ind.Source
	}

	rows := []string{
		styles.CardTitleStyle.Render("Charting Indicators"),
		"",
		m.renderConfigRow("Source", source),
		m.renderConfigRow("Fast Below", fmt.Sprintf("%d ms", ind.LowerBound)),
		m.renderConfigRow("Slow Above", fmt.Sprintf("%d ms", ind.HigherBound)),
	}
	for i := 1; i <= 4; i++ {
		rows = append(rows, m.renderConfigRow(fmt.Sprintf("Percentile %d", i), ind.PercentileLabel(i)))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderConfigRow renders a configuration key-value row.
func (m *Model) renderConfigRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(18).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

// renderAboutCard renders the about/version information card.
func (m *Model) renderAboutCard() string {
	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("About Gatling Dashboard TUI"))
	rows = append(rows, "")

	rows = append(rows, m.renderConfigRow("Version", version.GetVersion()))
	rows = append(rows, m.renderConfigRow("Build Date", version.GetDate()))
	rows = append(rows, m.renderConfigRow("Git Commit", version.GetCommit()))
	rows = append(rows, m.renderConfigRow("Go Version", runtime.Version()))
	rows = append(rows, m.renderConfigRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)))
	rows = append(rows, "")

	runs := fmt.Sprintf("%d", m.state.GetRunCount())
	line := fmt.Sprintf("Runs: %s", styles.InfoTextStyle.Render(runs))
	if stats := m.state.GetStats(); stats != nil {
		line += fmt.Sprintf("  Simulations: %s  Requests: %s",
			styles.InfoTextStyle.Render(fmt.Sprintf("%d", stats.Simulations)),
			styles.InfoTextStyle.Render(humanize.Comma(stats.TotalRequests)),
		)
	}
	rows = append(rows, line)

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
