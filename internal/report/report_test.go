package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/statsjs"
)

const perSecondRun = "serverpersecondloadsimulation-20241109073731010"

func loadFixture(t *testing.T) *models.Snapshot {
	t.Helper()
	snap, err := statsjs.ParseRunDir(filepath.Join("..", "statsjs", "testdata", "results", perSecondRun))
	require.NoError(t, err)
	return snap
}

func TestWriteText(t *testing.T) {
	snap := loadFixture(t)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, snap, config.DefaultIndicators()))
	out := buf.String()

	assert.Contains(t, out, "serverpersecondloadsimulation")
	assert.Contains(t, out, "Started: 2024-11-09 07:37:31")
	assert.Contains(t, out, "Global Information")
	assert.Contains(t, out, "Echo Metrics [Echo Metrics]")
	assert.Contains(t, out, "FastHTTP Metrics")
	assert.Contains(t, out, "95th pct (ms)")
	assert.Contains(t, out, "34402")
	assert.Contains(t, out, "2264.151")
	assert.Contains(t, out, "t > 1200 ms")
	assert.Contains(t, out, "119,968")
	assert.NotContains(t, out, "! ", "fixture is consistent")
}

func TestWriteText_IndicatorLabels(t *testing.T) {
	snap := loadFixture(t)
	ind := config.DefaultIndicators()
	ind.Percentiles = [4]float64{50, 90, 99, 99.9}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, snap, ind))
	assert.Contains(t, buf.String(), "99.9th pct (ms)")
	assert.NotContains(t, buf.String(), "95th pct")
}

func TestWriteText_ReportsIssues(t *testing.T) {
	snap := loadFixture(t)
	snap.Root.Stats.NumberOfRequests.KO = "11"

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, snap, config.DefaultIndicators()))
	assert.Contains(t, buf.String(), "! ")
}

func TestSubtree(t *testing.T) {
	snap := loadFixture(t)

	sub, err := Subtree(snap, "Echo Metrics")
	require.NoError(t, err)
	assert.Equal(t, "Echo Metrics", sub.Root.Name)
	assert.Equal(t, snap.Run, sub.Run)
	assert.Len(t, sub.Root.Flatten(), 1)
	assert.Len(t, snap.Root.Flatten(), 3, "source snapshot is untouched")

	_, err = Subtree(snap, "Nope")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	snap := loadFixture(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, snap))

	var got struct {
		Run struct {
			ID         string     `json:"id"`
			Simulation string     `json:"simulation"`
			StartedAt  *time.Time `json:"startedAt"`
		} `json:"run"`
		Nodes []struct {
			Type    string            `json:"type"`
			Name    string            `json:"name"`
			Path    string            `json:"path"`
			Slots   map[string]string `json:"slots"`
			Buckets []models.Bucket   `json:"buckets"`
			Issues  []string          `json:"issues"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, perSecondRun, got.Run.ID)
	require.NotNil(t, got.Run.StartedAt)
	assert.True(t, got.Run.StartedAt.Equal(time.Date(2024, 11, 9, 7, 37, 31, 10_000_000, time.UTC)))

	require.Len(t, got.Nodes, 3)
	global := got.Nodes[0]
	assert.Equal(t, "GROUP", global.Type)
	assert.Len(t, global.Slots, 30)
	assert.Equal(t, "34402", global.Slots["percentiles3"])
	assert.Equal(t, "10", global.Slots["numberOfRequestsKO"])
	assert.Len(t, global.Buckets, 4)
	assert.Empty(t, global.Issues)

	echo := got.Nodes[1]
	assert.Equal(t, "Echo Metrics", echo.Path)
	assert.Equal(t, models.NoData, echo.Slots["meanResponseTimeKO"], "no-data cells are kept verbatim")
}

func TestWriteComparison(t *testing.T) {
	base := loadFixture(t)
	cand := loadFixture(t)
	cand.Run.ID = "serverpersecondloadsimulation-20241110073731010"
	cand.Root.Contents[0].Stats.Percentiles3.OK = "45000"

	cmp := models.Compare(base, cand, 10)

	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, &cmp, config.DefaultIndicators()))
	out := buf.String()

	assert.Contains(t, out, "Baseline:  "+perSecondRun)
	assert.Contains(t, out, "Threshold: 10%")
	assert.Contains(t, out, "Echo Metrics [Echo Metrics] REGRESSED")
	assert.Contains(t, out, "KO requests")
	assert.Contains(t, out, "1 request(s) regressed")

	same := models.Compare(base, base, 10)
	buf.Reset()
	require.NoError(t, WriteComparison(&buf, &same, config.DefaultIndicators()))
	assert.Contains(t, buf.String(), "No regressions")
	assert.NotContains(t, buf.String(), "REGRESSED")
}

func TestWriteRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRuns(&buf, nil))
	assert.Equal(t, "No runs stored\n", buf.String())

	buf.Reset()
	runs := []models.StoredRun{{
		RunInfo:          models.ParseRunID(perSecondRun),
		TotalRequests:    120000,
		KORequests:       10,
		MeanRPS:          2264.151,
		IssueCount:       2,
		FailedAssertions: 1,
	}}
	require.NoError(t, WriteRuns(&buf, runs))
	out := buf.String()
	assert.Contains(t, out, perSecondRun)
	assert.Contains(t, out, "2024-11-09 07:37:31")
	assert.Contains(t, out, "120,000")
	assert.Contains(t, out, "2264.2")
	assert.Contains(t, out, "Failed")
}

func TestWriteAssertions(t *testing.T) {
	outcomes := []models.AssertionOutcome{
		{Name: "p95", Expr: "global.percentiles3.ok < 1200", Passed: false},
		{Name: "echo ok", Path: "Echo Metrics", Expr: "stats.numberOfRequests.ko == 0", Passed: true},
		{Name: "missing", Path: "Nope", Error: "no request with that path"},
	}

	var buf bytes.Buffer
	passed, err := WriteAssertions(&buf, outcomes)
	require.NoError(t, err)
	assert.False(t, passed)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "FAIL  p95", lines[0])
	assert.Equal(t, "PASS  echo ok [Echo Metrics]", lines[1])
	assert.Equal(t, "FAIL  missing [Nope]: no request with that path", lines[2])
	assert.Equal(t, "1/3 assertions passed", lines[3])

	buf.Reset()
	passed, err = WriteAssertions(&buf, outcomes[1:2])
	require.NoError(t, err)
	assert.True(t, passed)
}
