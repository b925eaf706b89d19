// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/styles"
)

// ChartColors defines colors for chart elements.
var (
	ChartPrimaryColor   = lipgloss.Color("#7D56F4")
	ChartSecondaryColor = lipgloss.Color("#4285f4")
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Magenta),
	)
}

// RenderDualLineChart plots a primary series against a reference series,
// such as one request against the whole run.
func RenderDualLineChart(primary, reference []float64, width, height int, caption string) string {
	if len(primary) == 0 && len(reference) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	// Runs can be missing from one series, so pad to the same length
	maxLen := max(len(primary), len(reference))
	primaryData := padSeries(primary, maxLen)
	referenceData := padSeries(reference, maxLen)

	return asciigraph.PlotMany([][]float64{primaryData, referenceData},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(
			asciigraph.Magenta,
			asciigraph.Blue,
		),
	)
}

// padSeries extends data to n points by repeating its last value.
func padSeries(data []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, data)
	if len(data) > 0 {
		for i := len(data); i < n; i++ {
			out[i] = data[len(data)-1]
		}
	}
	return out
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width < 1 {
		return ""
	}

	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	spread := maxVal - minVal

	// Keep the most recent values when there are more than fit
	if len(values) > width {
		values = values[len(values)-width:]
	}

	var result strings.Builder
	for _, val := range values {
		idx := len(sparkChars) / 2
		if spread > 0 {
			idx = int((val - minVal) / spread * float64(len(sparkChars)-1))
		}
		idx = max(0, min(idx, len(sparkChars)-1))
		result.WriteRune(sparkChars[idx])
	}

	return result.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	var parts []string
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}
