package trends

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/styles"
)

// recentRuns is the number of runs listed under the chart.
const recentRuns = 8

// View renders the trends tab.
func (m *Model) View() string {
	if m.loading && m.trend == nil {
		return m.renderLoading()
	}
	if m.errorMsg != "" {
		return m.renderError()
	}
	if len(m.simulations) == 0 {
		return m.renderEmpty()
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	if m.trend == nil || !m.trend.HasData() {
		sections = append(sections, m.renderNoPoints())
	} else {
		sections = append(sections,
			m.renderChart(),
			m.renderRecentRuns(),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderLoading() string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(styles.HelpStyle.Render("Loading trends..."))
}

func (m *Model) renderError() string {
	content := fmt.Sprintf("%s %s",
		styles.ErrorTextStyle.Render("Error:"),
		m.errorMsg,
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("Trends"),
		"",
		styles.HelpStyle.Render("No runs stored yet."),
		styles.HelpStyle.Render("Trends appear once simulations have been imported."),
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderHeader() string {
	sim := m.query.simulation
	if len(sim) > 40 {
		sim = sim[:37] + "..."
	}

	title := styles.TitleStyle.Render("Trends: " + sim)

	boxStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		title,
		"  ", boxStyle.Render("[m] "+m.metricLabel()),
		" ", boxStyle.Render("[t] "+m.query.timeRange.String()),
	)

	request := "Global Information"
	if m.query.path != "" {
		request = m.query.path
	}
	position := ""
	for i, p := range m.paths {
		if p == m.query.path {
			position = fmt.Sprintf(" (%d/%d)", i+1, len(m.paths))
			break
		}
	}
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("Request: %s%s | Simulations: %d",
		request, position, len(m.simulations)))

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

func (m *Model) renderNoPoints() string {
	cardWidth := max(m.width-6, 40)
	return styles.CardStyle.Width(cardWidth).Render(
		styles.HelpStyle.Render(fmt.Sprintf("No %s values for %s.",
			m.metricLabel(), m.query.timeRange.String())),
	)
}

func (m *Model) renderChart() string {
	cardWidth := max(m.width-6, 40)

	var rows []string

	titleIcon := lipgloss.NewStyle().Foreground(styles.Primary).Render("📈")
	rows = append(rows, fmt.Sprintf("%s %s", titleIcon, styles.CardTitleStyle.Render(m.metricLabel())), "")

	values := m.trend.Values()
	chartWidth := max(cardWidth-12, 30)
	chartHeight := 10
	caption := fmt.Sprintf("%d runs, oldest first", len(values))

	var chart string
	overlay := m.reference != nil && m.reference.HasData()
	if overlay {
		chart = components.RenderDualLineChart(values, m.reference.Values(), chartWidth, chartHeight, caption)
	} else {
		chart = components.RenderLineChart(values, chartWidth, chartHeight, caption)
	}
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}

	if overlay {
		rows = append(rows, "", "  "+components.RenderLegend([]components.LegendItem{
			{Label: m.query.path, Color: components.ChartPrimaryColor},
			{Label: "Global", Color: components.ChartSecondaryColor},
		}))
	}

	if peak, ok := m.trend.Peak(); ok {
		rows = append(rows, "", fmt.Sprintf("  Peak: %s in %s",
			lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Render(formatValue(peak.Value)),
			peak.RunID,
		))
	}

	rows = append(rows, "")

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderRecentRuns lists the latest points with their change from the
// run before.
func (m *Model) renderRecentRuns() string {
	cardWidth := max(m.width-6, 40)

	var rows []string

	titleIcon := lipgloss.NewStyle().Foreground(styles.Primary).Render("🕐")
	rows = append(rows,
		fmt.Sprintf("%s %s", titleIcon, styles.CardTitleStyle.Render("Recent Runs")),
		"  "+components.RenderSparkline(m.trend.Values(), min(cardWidth-4, 60)),
		"",
	)

	points := m.trend.Points
	start := max(0, len(points)-recentRuns)
	for i := len(points) - 1; i >= start; i-- {
		p := points[i]
		started := "-"
		if !p.StartedAt.IsZero() {
			started = p.StartedAt.Format("2006-01-02 15:04")
		}
		line := fmt.Sprintf("  %-16s %12s", started, formatValue(p.Value))
		if i > 0 {
			line += "  " + m.renderDelta(points[i-1].Value, p.Value)
		}
		rows = append(rows, line)
	}

	rows = append(rows, "")

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderDelta renders the relative change between two consecutive values.
// Changes within the regression threshold are shown as unchanged.
// Throughput is the only metric where higher is better.
func (m *Model) renderDelta(prev, cur float64) string {
	if prev == 0 {
		return styles.UnchangedStyle.Render("n/a")
	}
	pct := (cur - prev) / prev * 100

	change := pct
	if m.query.metric == models.TrendThroughput {
		change = -pct
	}
	threshold := m.threshold()
	worse := change > threshold
	better := change < -threshold

	sign := ""
	if pct > 0 {
		sign = "+"
	}
	return styles.GetDeltaStyle(worse, better).Render(sign + humanize.FtoaWithDigits(pct, 1) + "%")
}

func (m *Model) threshold() float64 {
	if m.services == nil {
		return config.DefaultRegressionThreshold
	}
	return m.services.Comparer().Threshold()
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return humanize.Comma(int64(v))
	}
	return humanize.FtoaWithDigits(v, 2)
}
