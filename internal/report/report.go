// Package report renders stored or parsed runs for non-interactive use:
// terminal tables for people and JSON for scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	numberStyle    = cellStyle.Align(lipgloss.Right)
	regressedStyle = numberStyle.Foreground(lipgloss.Color("196"))
	titleStyle     = lipgloss.NewStyle().Bold(true)
)

// Subtree returns a copy of snap rooted at the node with the given path.
func Subtree(snap *models.Snapshot, path string) (*models.Snapshot, error) {
	node := snap.Root.Find(path)
	if node == nil {
		return nil, fmt.Errorf("no request with path %q in %s", path, snap.Run.ID)
	}
	out := *snap
	out.Root = *node
	return &out, nil
}

// WriteText writes one stats table per node of the snapshot: the thirty
// display slots as metric rows with Total/OK/KO columns, followed by the
// response time distribution.
func WriteText(w io.Writer, snap *models.Snapshot, ind config.Indicators) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", titleStyle.Render(snap.Run.Simulation))
	fmt.Fprintf(&b, "Run:     %s\n", snap.Run.ID)
	if !snap.Run.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Started: %s\n", snap.Run.StartedAt.Format(timeLayout))
	}

	for _, node := range snap.Root.Flatten() {
		b.WriteString("\n")
		writeNode(&b, node, ind)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeNode(b *strings.Builder, node *models.Node, ind config.Indicators) {
	fmt.Fprintf(b, "%s\n", titleStyle.Render(nodeTitle(node)))

	slots := models.SlotMap(&node.Stats)
	rows := make([][]string, 0, len(models.SlotMetricIDs()))
	for _, id := range models.SlotMetricIDs() {
		rows = append(rows, []string{
			ind.MetricLabel(id),
			slots[id].String(),
			slots[id+"OK"].String(),
			slots[id+"KO"].String(),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Metric", "Total", "OK", "KO").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
	b.WriteString(t.String())
	b.WriteString("\n")

	buckets := node.Stats.Buckets()
	bucketRows := make([][]string, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket.Name == "" {
			continue
		}
		bucketRows = append(bucketRows, []string{
			bucket.Name,
			humanize.Comma(bucket.Count),
			humanize.FtoaWithDigits(bucket.Percentage, 2) + "%",
		})
	}
	if len(bucketRows) > 0 {
		bt := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Distribution", "Count", "%").
			Rows(bucketRows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				case col == 0:
					return cellStyle
				default:
					return numberStyle
				}
			})
		b.WriteString(bt.String())
		b.WriteString("\n")
	}

	for _, issue := range models.Validate(node.Path, &node.Stats) {
		fmt.Fprintf(b, "! %s\n", issue)
	}
}

func nodeTitle(node *models.Node) string {
	if node.Path == "" {
		return node.Name
	}
	return fmt.Sprintf("%s [%s]", node.Name, node.Path)
}

type jsonRun struct {
	ID         string     `json:"id"`
	Simulation string     `json:"simulation"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	Path       string     `json:"path,omitempty"`
}

type jsonNode struct {
	Type          models.NodeType         `json:"type"`
	Name          string                  `json:"name"`
	Path          string                  `json:"path"`
	PathFormatted string                  `json:"pathFormatted"`
	Slots         map[string]models.Value `json:"slots"`
	Buckets       []models.Bucket         `json:"buckets"`
	Issues        []string                `json:"issues,omitempty"`
}

type jsonReport struct {
	Run   jsonRun    `json:"run"`
	Nodes []jsonNode `json:"nodes"`
}

// WriteJSON writes the snapshot with each node's slots keyed by slot ID.
func WriteJSON(w io.Writer, snap *models.Snapshot) error {
	out := jsonReport{
		Run: jsonRun{
			ID:         snap.Run.ID,
			Simulation: snap.Run.Simulation,
			Path:       snap.Run.Path,
		},
	}
	if !snap.Run.StartedAt.IsZero() {
		started := snap.Run.StartedAt
		out.Run.StartedAt = &started
	}

	for _, node := range snap.Root.Flatten() {
		jn := jsonNode{
			Type:          node.Type,
			Name:          node.Name,
			Path:          node.Path,
			PathFormatted: node.PathFormatted,
			Slots:         models.SlotMap(&node.Stats),
			Buckets:       node.Stats.Buckets(),
		}
		for _, issue := range models.Validate(node.Path, &node.Stats) {
			jn.Issues = append(jn.Issues, issue.String())
		}
		out.Nodes = append(out.Nodes, jn)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteComparison writes the per-request deltas of a comparison.
// Regressed requests are flagged.
func WriteComparison(w io.Writer, cmp *models.Comparison, ind config.Indicators) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", titleStyle.Render(cmp.Candidate.Simulation))
	fmt.Fprintf(&b, "Baseline:  %s\n", cmp.Baseline.ID)
	fmt.Fprintf(&b, "Candidate: %s\n", cmp.Candidate.ID)
	fmt.Fprintf(&b, "Threshold: %s%%\n", humanize.Ftoa(cmp.Threshold))

	for _, req := range cmp.Requests {
		title := req.Name
		if req.Path != "" {
			title = fmt.Sprintf("%s [%s]", req.Name, req.Path)
		}
		if req.Regressed {
			title += " REGRESSED"
		}
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render(title))

		rows := make([][]string, 0, len(req.Deltas))
		for _, d := range req.Deltas {
			flag := ""
			if d.Regressed {
				flag = "!"
			}
			rows = append(rows, []string{
				ind.MetricLabel(d.Metric),
				humanize.Ftoa(d.Baseline),
				humanize.Ftoa(d.Candidate),
				signed(d.Delta),
				signed(d.DeltaPercent) + "%",
				flag,
			})
		}

		deltas := req.Deltas
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Metric", "Baseline", "Candidate", "Delta", "Delta %", "").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				case col == 0:
					return cellStyle
				case row < len(deltas) && deltas[row].Regressed:
					return regressedStyle
				default:
					return numberStyle
				}
			})
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	if cmp.HasRegression() {
		fmt.Fprintf(&b, "\n%d request(s) regressed\n", len(cmp.Regressions()))
	} else {
		b.WriteString("\nNo regressions\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func signed(v float64) string {
	s := humanize.FtoaWithDigits(v, 2)
	if v > 0 {
		return "+" + s
	}
	return s
}

// WriteRuns writes a table of stored runs.
func WriteRuns(w io.Writer, runs []models.StoredRun) error {
	if len(runs) == 0 {
		_, err := io.WriteString(w, "No runs stored\n")
		return err
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		started := "-"
		if !r.StartedAt.IsZero() {
			started = r.StartedAt.Format(timeLayout)
		}
		rows = append(rows, []string{
			r.ID,
			r.Simulation,
			started,
			humanize.Comma(r.TotalRequests),
			humanize.Comma(r.KORequests),
			humanize.FtoaWithDigits(r.MeanRPS, 1),
			fmt.Sprint(r.IssueCount),
			fmt.Sprint(r.FailedAssertions),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Run", "Simulation", "Started", "Requests", "KO", "Req/s", "Issues", "Failed").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col < 3:
				return cellStyle
			default:
				return numberStyle
			}
		})

	_, err := io.WriteString(w, t.String()+"\n")
	return err
}

// WriteAssertions writes one line per assertion outcome and reports
// whether all of them passed.
func WriteAssertions(w io.Writer, outcomes []models.AssertionOutcome) (bool, error) {
	var b strings.Builder
	passed := true
	for _, o := range outcomes {
		status := "PASS"
		if !o.Passed {
			status = "FAIL"
			passed = false
		}
		fmt.Fprintf(&b, "%s  %s", status, o.Name)
		if o.Path != "" {
			fmt.Fprintf(&b, " [%s]", o.Path)
		}
		if o.Error != "" {
			fmt.Fprintf(&b, ": %s", o.Error)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d/%d assertions passed\n", len(outcomes)-len(models.FailedOutcomes(outcomes)), len(outcomes))

	_, err := io.WriteString(w, b.String())
	return passed, err
}
