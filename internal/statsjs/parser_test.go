package statsjs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

const perSecondRun = "serverpersecondloadsimulation-20241109073731010"

func TestParseFile_GatlingOutput(t *testing.T) {
	root, err := ParseFile(filepath.Join("testdata", "results", perSecondRun, StatsFile))
	require.NoError(t, err)

	assert.Equal(t, models.NodeGroup, root.Type)
	assert.Equal(t, "Global Information", root.Name)
	assert.Equal(t, "", root.Path)
	assert.Equal(t, "group_missing-name-b06d1", root.PathFormatted)

	g := root.Stats
	assert.Equal(t, models.Value("120000"), g.NumberOfRequests.Total)
	assert.Equal(t, models.Value("119990"), g.NumberOfRequests.OK)
	assert.Equal(t, models.Value("10"), g.NumberOfRequests.KO)
	assert.Equal(t, models.Value("34402"), g.Percentiles3.Total)
	assert.Equal(t, models.Value("2264.151"), g.MeanNumberOfRequestsPerSecond.Total)
	assert.Equal(t, "t > 1200 ms", g.Group3.Name)
	assert.EqualValues(t, 119968, g.Group3.Count)
	assert.EqualValues(t, 100, g.Group3.Percentage)

	require.Len(t, root.Contents, 2)
	echo := root.Contents[0]
	assert.Equal(t, models.NodeRequest, echo.Type)
	assert.Equal(t, "Echo Metrics", echo.Name)
	assert.Equal(t, "Echo Metrics", echo.Path)
	assert.Equal(t, "req_echo-metrics-ed595", echo.PathFormatted)
	assert.True(t, echo.Stats.MeanResponseTime.KO.IsNoData())
	assert.Equal(t, "FastHTTP Metrics", root.Contents[1].Name)
}

func TestParseFile_FixturesAreConsistent(t *testing.T) {
	dirs, err := FindRunDirs(filepath.Join("testdata", "results"))
	require.NoError(t, err)

	for _, dir := range dirs {
		snap, err := ParseRunDir(dir)
		require.NoError(t, err, dir)
		assert.Empty(t, models.ValidateTree(&snap.Root), dir)
	}
}

func TestParse_LiteralVariants(t *testing.T) {
	src := `var stats = {
    type: 'GROUP',
    name: "All Requests",
    path: "",
    pathFormatted: "group_all",
    stats: {
        "name": "All Requests",
        "numberOfRequests": {"total": 3, "ok": "3", "ko": "0",},
        "meanResponseTime": {"total": "12", "ok": "12", "ko": "-"},
        "group1": {"name": 'it\'s fast', "count": 3, "percentage": 100},
    },
    contents: {
        "req_b": {type: "REQUEST", name: "B", path: "B", pathFormatted: "req_b", stats: {"name": "B"}},
        "req_a": {type: "REQUEST", name: "A", path: "A", stats: {"name": "A"}},
    }
}

function fillStats(stat){
    $("#numberOfRequests").append(stat.numberOfRequests.total);
}
`
	root, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "All Requests", root.Name)
	assert.Equal(t, models.Value("3"), root.Stats.NumberOfRequests.Total)
	assert.Equal(t, "it's fast", root.Stats.Group1.Name)
	assert.True(t, root.Stats.MeanResponseTime.KO.IsNoData())

	require.Len(t, root.Contents, 2)
	assert.Equal(t, "B", root.Contents[0].Name, "file order is kept")
	assert.Equal(t, "A", root.Contents[1].Name)
	assert.Equal(t, "req_a", root.Contents[1].PathFormatted, "key fills a missing pathFormatted")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"no marker", `var other = {a: 1}`, ErrNoStatsVar},
		{"no literal", `var stats;`, ErrNoStatsVar},
		{"truncated", `var stats = { type: "GROUP", stats: {`, ErrUnbalanced},
		{"open string", `var stats = { name: "abc }`, ErrUnbalanced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	_, err := Parse(strings.NewReader(`var stats = { stats: { "numberOfRequests": [1, 2] } }`))
	assert.Error(t, err)
}

func TestParseRunDir(t *testing.T) {
	dir := filepath.Join("testdata", "results", perSecondRun)
	snap, err := ParseRunDir(dir)
	require.NoError(t, err)

	assert.Equal(t, perSecondRun, snap.Run.ID)
	assert.Equal(t, "serverpersecondloadsimulation", snap.Run.Simulation)
	assert.Equal(t, time.Date(2024, 11, 9, 7, 37, 31, 10_000_000, time.UTC), snap.Run.StartedAt)
	assert.Equal(t, dir, snap.Run.Path)
	assert.False(t, snap.ImportedAt.IsZero())
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.js"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFindRunDirs(t *testing.T) {
	dirs, err := FindRunDirs(filepath.Join("testdata", "results"))
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "serveratonceloadsimulation-20241108155914936", filepath.Base(dirs[0]))
	assert.Equal(t, perSecondRun, filepath.Base(dirs[1]))

	_, err = FindRunDirs(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
