package compare

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/styles"
)

// View renders the compare tab.
func (m *Model) View() string {
	if m.loading && m.candidate == nil {
		return m.renderMessage(styles.HelpStyle.Render("Comparing runs..."))
	}
	if m.errorMsg != "" {
		return m.renderMessage(fmt.Sprintf("%s %s", styles.ErrorTextStyle.Render("Error:"), m.errorMsg))
	}
	if m.candidate == nil {
		return m.renderMessage(lipgloss.JoinVertical(lipgloss.Left,
			styles.TitleStyle.Render("Compare"),
			"",
			styles.HelpStyle.Render("No runs stored yet."),
		))
	}

	sections := []string{m.renderHeader()}

	if m.comparison == nil {
		sections = append(sections, m.renderFirstRun())
	} else {
		sections = append(sections, m.renderSummary())
		sections = append(sections, m.renderRequests()...)
	}
	sections = append(sections, m.renderAssertions())

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderMessage(content string) string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderHeader() string {
	title := styles.TitleStyle.Render("Compare: " + m.candidate.Simulation)

	boxStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)

	filter := "all requests"
	if m.regressedOnly {
		filter = "regressions only"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		title,
		"  ", boxStyle.Render(fmt.Sprintf("[+/-] threshold %s%%", humanize.Ftoa(m.threshold()))),
		" ", boxStyle.Render("[f] "+filter),
	)

	lines := []string{header, styles.HelpStyle.Render("Candidate: " + m.candidate.ID)}
	if m.comparison != nil {
		label := "previous run"
		if m.baselineID != "" && m.baselineID == m.comparison.Baseline.ID {
			label = "pinned"
		}
		lines = append(lines, styles.HelpStyle.Render(
			fmt.Sprintf("Baseline:  %s (%s)", m.comparison.Baseline.ID, label)))
	}
	lines = append(lines, "")

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderFirstRun() string {
	cardWidth := max(m.width-6, 40)
	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.SubTitleStyle.Render("Nothing to compare"),
		styles.HelpStyle.Render(fmt.Sprintf("This is the first stored run of %s.", m.candidate.Simulation)),
		styles.HelpStyle.Render("Pin a baseline with 'b' to compare across simulations."),
	))
}

func (m *Model) renderSummary() string {
	regressed := len(m.comparison.Regressions())
	total := len(m.comparison.Requests)

	var verdict string
	if regressed == 0 {
		verdict = styles.SuccessTextStyle.Render(fmt.Sprintf("✓ No regression across %d requests", total))
	} else {
		verdict = styles.ErrorTextStyle.Render(fmt.Sprintf("✗ %d of %d requests regressed", regressed, total))
	}
	return lipgloss.JoinVertical(lipgloss.Left, verdict, "")
}

// renderRequests renders one card per compared request.
func (m *Model) renderRequests() []string {
	cardWidth := max(m.width-6, 60)
	ind := m.indicators()
	threshold := m.comparison.Threshold

	var cards []string
	for _, req := range m.comparison.Requests {
		if m.regressedOnly && !req.Regressed {
			continue
		}

		title := req.Name
		if req.Path != "" && req.Path != req.Name {
			title = fmt.Sprintf("%s [%s]", req.Name, req.Path)
		}
		titleLine := styles.CardTitleStyle.Render(title)
		if req.Regressed {
			titleLine += "  " + styles.RegressionStyle.Bold(true).Render("REGRESSED")
		}

		rows := make([][]string, 0, len(req.Deltas))
		for _, d := range req.Deltas {
			rows = append(rows, []string{
				ind.MetricLabel(d.Metric),
				humanize.Ftoa(d.Baseline),
				humanize.Ftoa(d.Candidate),
				signed(d.Delta),
				signed(d.DeltaPercent) + "%",
			})
		}

		deltas := req.Deltas
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(styles.Subtle)).
			Headers("Metric", "Baseline", "Candidate", "Delta", "Delta %").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				base := lipgloss.NewStyle().Padding(0, 1)
				switch {
				case row == table.HeaderRow:
					return base.Bold(true).Foreground(styles.Primary)
				case col == 0:
					return base.Foreground(styles.TextSecondary)
				case col >= 3 && row < len(deltas):
					d := deltas[row]
					return base.Inherit(styles.GetDeltaStyle(d.Regressed, d.Improved(threshold)))
				default:
					return base.Foreground(styles.TextPrimary)
				}
			})

		cards = append(cards, styles.CardStyle.Width(cardWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleLine, t.Render()),
		))
	}

	if len(cards) == 0 {
		cards = append(cards, styles.HelpStyle.Render("No regressed requests."))
	}
	return cards
}

func (m *Model) renderAssertions() string {
	cardWidth := max(m.width-6, 40)

	rows := []string{styles.CardTitleStyle.Render("Assertions"), ""}

	if len(m.outcomes) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No assertions evaluated for this run"))
	}
	for _, o := range m.outcomes {
		target := "global"
		if o.Path != "" {
			target = o.Path
		}
		line := fmt.Sprintf("%s (%s): %s", o.Name, target, o.Expr)
		switch {
		case o.Passed:
			rows = append(rows, styles.SuccessTextStyle.Render("  ✓ ")+line)
		case o.Error != "":
			rows = append(rows, styles.WarningTextStyle.Render("  ! ")+line+styles.HelpStyle.Render("  "+o.Error))
		default:
			rows = append(rows, styles.ErrorTextStyle.Render("  ✗ ")+line)
		}
	}

	if failed := models.FailedOutcomes(m.outcomes); len(failed) > 0 {
		rows = append(rows, "", styles.ErrorTextStyle.Render(
			fmt.Sprintf("  %d of %d assertions failed", len(failed), len(m.outcomes))))
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func signed(v float64) string {
	s := humanize.FtoaWithDigits(v, 2)
	if v > 0 {
		return "+" + s
	}
	return s
}
