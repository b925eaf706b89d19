package runs

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/styles"
)

// View renders the runs tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return m.renderLoading()
	}

	var sections []string

	sections = append(sections, m.renderTitle())

	if m.filtering || m.filter.Value() != "" {
		sections = append(sections, m.filter.View())
	}

	if m.state.GetRunCount() == 0 {
		sections = append(sections, m.renderEmptyState())
	} else {
		if m.confirmDelete {
			sections = append(sections, m.renderDeleteConfirm())
		}
		sections = append(sections, m.renderTable())

		m.viewport.SetContent(m.renderDetails())
		sections = append(sections, m.viewport.View())
	}

	sections = append(sections, m.renderFooter())

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

// renderLoading renders the loading state.
func (m *Model) renderLoading() string {
	return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
}

// renderTitle renders the runs tab title.
func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Gatling Runs")

	subtitle := fmt.Sprintf("%d runs stored", m.state.GetRunCount())
	if stats := m.state.GetStats(); stats != nil {
		subtitle = fmt.Sprintf("%d runs of %d simulations | %s requests, %s KO",
			stats.Runs, stats.Simulations,
			humanize.Comma(stats.TotalRequests), humanize.Comma(stats.KORequests))
	}
	if m.state.IsScanning() {
		subtitle += " | scanning..."
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, styles.HelpStyle.Render(subtitle), "")
}

// renderTable renders the run table.
func (m *Model) renderTable() string {
	cardWidth := max(m.width-6, 60)

	if len(m.visible) == 0 {
		return styles.CardStyle.Width(cardWidth).Render(
			styles.HelpStyle.Render(fmt.Sprintf("No runs match %q", m.filter.Value())),
		)
	}
	return styles.CardStyle.Width(cardWidth).Render(m.table.View())
}

// renderEmptyState renders the empty state when no runs are stored.
func (m *Model) renderEmptyState() string {
	cardWidth := max(m.width-6, 40)

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.SubTitleStyle.Render("No Runs Imported"),
		"",
		styles.HelpStyle.Render("Run a Gatling simulation or point RESULTS_PATH at a results folder."),
		"",
		styles.InfoTextStyle.Render("Press 'r' to rescan"),
		"",
	)

	return styles.CardStyle.Width(cardWidth).Render(content)
}

// renderDetails renders the stats of the selected node.
func (m *Model) renderDetails() string {
	if m.loadErr != "" {
		return styles.ErrorTextStyle.Render("Failed to load run: " + m.loadErr)
	}
	node := m.currentNode()
	if node == nil {
		return styles.HelpStyle.Render("Select a run to see its statistics")
	}

	var rows []string

	title := node.Name
	if node.Path != "" && node.Path != node.Name {
		title = fmt.Sprintf("%s [%s]", node.Name, node.Path)
	}
	position := styles.HelpStyle.Render(fmt.Sprintf("  %d/%d", m.nodeIndex+1, len(m.nodes)))
	rows = append(rows, styles.CardTitleStyle.Render(title)+position, "")

	statsTable := components.RenderStatsTable(&node.Stats, m.indicators(), 0)

	var bars []string
	buckets := node.Stats.Buckets()
	barWidth := max(m.width-lipgloss.Width(statsTable)-12, 50)
	for i := range m.bars {
		if i < len(buckets) && buckets[i].Name != "" {
			bars = append(bars, m.bars[i].View(buckets[i].Count, barWidth))
		}
	}
	distribution := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{styles.SubTitleStyle.Render("Response time distribution")}, bars...)...)

	if m.width >= lipgloss.Width(statsTable)+barWidth {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, statsTable, "  ", distribution))
	} else {
		rows = append(rows, statsTable, "", distribution)
	}

	if issues := models.Validate(node.Path, &node.Stats); len(issues) > 0 {
		rows = append(rows, "", styles.WarningTextStyle.Render(fmt.Sprintf("%d inconsistent stats", len(issues))))
		for _, issue := range issues {
			rows = append(rows, styles.WarningTextStyle.Render("  ! "+issue.String()))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderDeleteConfirm renders the delete confirmation dialog.
func (m *Model) renderDeleteConfirm() string {
	cardWidth := 60

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.WarningTextStyle.Bold(true).Render("Delete Run?"),
		"",
		"This removes the run from the dashboard database:",
		styles.ErrorTextStyle.Render(m.deleteRunID),
		"",
		"The results folder on disk is left untouched.",
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			styles.ButtonActiveStyle.Render(" (Y)es "),
			"  ",
			styles.ButtonInactiveStyle.Render(" (N)o "),
		),
		"",
	)

	return styles.CenterHorizontal(
		styles.ModalContentStyle.Width(cardWidth).Render(content),
		m.width,
	)
}

// renderFooter renders the footer with keyboard shortcuts.
func (m *Model) renderFooter() string {
	var shortcuts []string

	switch {
	case m.filtering:
		shortcuts = []string{
			styles.HelpKeyStyle.Render("Enter") + " apply",
			styles.HelpKeyStyle.Render("Esc") + " clear",
		}
	case m.confirmDelete:
		shortcuts = []string{
			styles.HelpKeyStyle.Render("Y") + " confirm",
			styles.HelpKeyStyle.Render("N") + " cancel",
		}
	default:
		shortcuts = []string{
			styles.HelpKeyStyle.Render("↑/↓") + " run",
			styles.HelpKeyStyle.Render("n/p") + " request",
			styles.HelpKeyStyle.Render("g") + " global",
			styles.HelpKeyStyle.Render("/") + " filter",
			styles.HelpKeyStyle.Render("d") + " delete",
			styles.HelpKeyStyle.Render("r") + " rescan",
		}
	}

	footer := strings.Join(shortcuts, styles.HelpSeparatorStyle.Render(" | "))

	return lipgloss.NewStyle().
		MarginTop(1).
		Foreground(styles.TextMuted).
		Render(footer)
}
