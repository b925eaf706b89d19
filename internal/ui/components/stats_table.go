package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/styles"
)

// latencyMetrics are the slot metrics colored against the indicator bounds.
var latencyMetrics = map[string]bool{
	"minResponseTime":  true,
	"maxResponseTime":  true,
	"meanResponseTime": true,
	"percentiles1":     true,
	"percentiles2":     true,
	"percentiles3":     true,
	"percentiles4":     true,
}

var (
	statsHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Padding(0, 1)
	statsLabelStyle  = lipgloss.NewStyle().Foreground(styles.TextSecondary).Padding(0, 1)
	statsCellStyle   = lipgloss.NewStyle().Foreground(styles.TextPrimary).Padding(0, 1).Align(lipgloss.Right)
)

// RenderStatsTable renders the filled display slots of stats as a
// Metric/Total/OK/KO table. Cell text is the slot value unchanged.
func RenderStatsTable(stats *models.Stats, ind config.Indicators, width int) string {
	slots := models.SlotMap(stats)
	ids := models.SlotMetricIDs()

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{
			ind.MetricLabel(id),
			slots[id].String(),
			slots[id+"OK"].String(),
			slots[id+"KO"].String(),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Subtle)).
		Headers("Metric", "Total", "OK", "KO").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return statsHeaderStyle
			}
			if col == 0 {
				return statsLabelStyle
			}
			return cellStyle(ids[row], rows[row][col], ind)
		})
	if width > 0 {
		t = t.Width(width)
	}

	return t.String()
}

func cellStyle(id, cell string, ind config.Indicators) lipgloss.Style {
	v := models.Value(cell)
	if v.IsNoData() {
		return statsCellStyle.Foreground(styles.Subtle)
	}
	if !latencyMetrics[id] {
		return statsCellStyle
	}
	ms, ok := v.Float64()
	if !ok {
		return statsCellStyle
	}
	return statsCellStyle.Foreground(styles.GetLatencyStyle(ms, ind.LowerBound, ind.HigherBound).GetForeground())
}
