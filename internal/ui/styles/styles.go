// Package styles defines the visual styling for the application.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette. OK and KO follow the colours of Gatling's HTML report.
var (
	Primary   = lipgloss.Color("205")
	Secondary = lipgloss.Color("63")
	Subtle    = lipgloss.Color("240")

	OK   = lipgloss.Color("42")
	KO   = lipgloss.Color("196")
	Slow = lipgloss.Color("208")
	Warn = lipgloss.Color("220")
	Info = lipgloss.Color("39")

	BgDark   = lipgloss.Color("235")
	BgLight  = lipgloss.Color("237")
	BgAccent = lipgloss.Color("236")

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// Layout.
var (
	DocStyle = lipgloss.NewStyle().Margin(1, 2).Padding(0, 1)

	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)
	SubTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Secondary).MarginBottom(1)

	// CardStyle frames one block of a tab: a run, a request, a chart.
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(1, 2).
			MarginBottom(1)
	CardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)

	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// Help and key hints.
var (
	HelpStyle          = lipgloss.NewStyle().Foreground(TextMuted)
	HelpKeyStyle       = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	HelpSeparatorStyle = lipgloss.NewStyle().Foreground(Subtle)
	HelpPanelStyle     = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(Primary).
				Padding(1, 3).
				Background(BgDark)
)

// Distribution bar labels.
var (
	ProgressLabelStyle   = lipgloss.NewStyle().Foreground(TextSecondary).Width(20)
	ProgressPercentStyle = lipgloss.NewStyle().Foreground(TextPrimary).Width(6).Align(lipgloss.Right)
)

// Status text.
var (
	ErrorTextStyle   = lipgloss.NewStyle().Foreground(KO)
	SuccessTextStyle = lipgloss.NewStyle().Foreground(OK)
	WarningTextStyle = lipgloss.NewStyle().Foreground(Warn)
	InfoTextStyle    = lipgloss.NewStyle().Foreground(Info)
)

// Delete confirmation dialog.
var (
	ModalContentStyle = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(Primary).
				Padding(1, 2).
				Background(BgDark)

	buttonStyle       = lipgloss.NewStyle().Padding(0, 2).MarginRight(1)
	ButtonActiveStyle = buttonStyle.
				Background(Primary).
				Foreground(lipgloss.Color("229")).
				Bold(true)
	ButtonInactiveStyle = buttonStyle.Background(BgLight).Foreground(TextSecondary)
)

// Comparison deltas.
var (
	RegressionStyle  = lipgloss.NewStyle().Foreground(KO).Bold(true)
	ImprovementStyle = lipgloss.NewStyle().Foreground(OK)
	UnchangedStyle   = lipgloss.NewStyle().Foreground(TextSecondary)
)

// Gatling's distribution order: t < lowerBound, between bounds,
// t > higherBound, failed.
var bucketColors = []lipgloss.Color{OK, Warn, Slow, KO}

// GetLatencyStyle colours a response time against the charting
// indicator bounds.
func GetLatencyStyle(ms float64, lowerBound, higherBound int) lipgloss.Style {
	var c lipgloss.Color
	switch {
	case ms < float64(lowerBound):
		c = OK
	case ms < float64(higherBound):
		c = Warn
	default:
		c = Slow
	}
	return lipgloss.NewStyle().Foreground(c)
}

// GetDeltaStyle returns the style of a metric delta.
// improved is true when the change went in the good direction.
func GetDeltaStyle(regressed, improved bool) lipgloss.Style {
	switch {
	case regressed:
		return RegressionStyle
	case improved:
		return ImprovementStyle
	default:
		return UnchangedStyle
	}
}

// GetBucketColor returns the color of distribution bucket i (0 to 3).
func GetBucketColor(i int) lipgloss.Color {
	if i < 0 || i >= len(bucketColors) {
		return Subtle
	}
	return bucketColors[i]
}

func CenterHorizontal(content string, width int) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(content)
}

func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
