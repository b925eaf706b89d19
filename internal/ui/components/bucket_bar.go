package components

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/styles"
)

type AnimationTickMsg time.Time

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*50, func(t time.Time) tea.Msg {
		return AnimationTickMsg(t)
	})
}

// DistributionBar renders one response time bucket as an animated bar.
type DistributionBar struct {
	progress       progress.Model
	label          string
	percent        float64
	isAnimating    bool
	targetPercent  float64
	currentPercent float64
}

// NewDistributionBar creates a bar drawn in the color of bucket index.
func NewDistributionBar(index int) DistributionBar {
	p := progress.New(
		progress.WithSolidFill(string(styles.GetBucketColor(index))),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)

	return DistributionBar{progress: p}
}

// Init initializes the progress bar model.
func (d DistributionBar) Init() tea.Cmd {
	return nil
}

// Update steps the animation towards the target percentage.
func (d DistributionBar) Update(msg tea.Msg) (DistributionBar, tea.Cmd) {
	var cmds []tea.Cmd

	if _, ok := msg.(AnimationTickMsg); ok && d.isAnimating {
		switch {
		case d.currentPercent < d.targetPercent:
			step := max((d.targetPercent-d.currentPercent)/10, 0.5)
			d.currentPercent = min(d.currentPercent+step, d.targetPercent)
			cmds = append(cmds, animationTick())
		case d.currentPercent > d.targetPercent:
			step := max((d.currentPercent-d.targetPercent)/10, 0.5)
			d.currentPercent = max(d.currentPercent-step, d.targetPercent)
			cmds = append(cmds, animationTick())
		default:
			d.isAnimating = false
		}
	}

	model, cmd := d.progress.Update(msg)
	if p, ok := model.(progress.Model); ok {
		d.progress = p
	}
	cmds = append(cmds, cmd)

	return d, tea.Batch(cmds...)
}

// SetPercent sets the target percentage and starts the animation.
func (d *DistributionBar) SetPercent(percent float64) tea.Cmd {
	d.percent = percent
	d.targetPercent = percent

	if !d.isAnimating {
		d.isAnimating = true
		return tea.Batch(
			d.progress.SetPercent(percent/100),
			animationTick(),
		)
	}

	return d.progress.SetPercent(percent / 100)
}

// SetLabel sets the bar label.
func (d *DistributionBar) SetLabel(label string) {
	d.label = label
}

// Percent returns the target percentage.
func (d DistributionBar) Percent() float64 {
	return d.percent
}

// Current returns the animated percentage currently drawn.
func (d DistributionBar) Current() float64 {
	return d.currentPercent
}

// View renders the bar with its label, count and percentage.
func (d DistributionBar) View(count int64, width int) string {
	barWidth := width - 40 // Reserve space for label, count and percentage
	if barWidth < 10 {
		barWidth = 10
	}
	d.progress.Width = barWidth

	bar := d.progress.ViewAs(d.currentPercent / 100)

	labelStr := styles.ProgressLabelStyle.Width(20).Render(d.label)
	countStr := styles.ProgressPercentStyle.Width(10).Align(lipgloss.Right).Render(humanize.Comma(count))
	percentStr := styles.ProgressPercentStyle.Width(8).Align(lipgloss.Right).
		Render(humanize.FtoaWithDigits(d.percent, 1) + "%")

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		labelStr,
		bar,
		" ",
		countStr,
		percentStr,
	)
}

// NewDistributionBars returns one bar per bucket of stats, labels included.
func NewDistributionBars(stats *models.Stats) ([]DistributionBar, tea.Cmd) {
	buckets := stats.Buckets()
	bars := make([]DistributionBar, len(buckets))
	cmds := make([]tea.Cmd, 0, len(buckets))
	for i, b := range buckets {
		bars[i] = NewDistributionBar(i)
		bars[i].SetLabel(b.Name)
		cmds = append(cmds, bars[i].SetPercent(b.Percentage))
	}
	return bars, tea.Batch(cmds...)
}
