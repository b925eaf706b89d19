package db

import (
	"testing"
	"time"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

func TestGetSnapshot_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	orig := saveFixture(t, db, perSecondRun)

	got, err := db.GetSnapshot(perSecondRun)
	if err != nil {
		t.Fatalf("GetSnapshot() failed: %v", err)
	}

	if got.Run.ID != orig.Run.ID || got.Run.Path != orig.Run.Path {
		t.Errorf("Run = %+v, want %+v", got.Run, orig.Run)
	}

	want := orig.Root.Flatten()
	have := got.Root.Flatten()
	if len(have) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(have), len(want))
	}
	for i := range want {
		if have[i].Path != want[i].Path || have[i].Type != want[i].Type || have[i].PathFormatted != want[i].PathFormatted {
			t.Errorf("node %d = %s/%s, want %s/%s", i, have[i].Type, have[i].Path, want[i].Type, want[i].Path)
		}
		if have[i].Stats != want[i].Stats {
			t.Errorf("node %q stats differ:\n got %+v\nwant %+v", want[i].Path, have[i].Stats, want[i].Stats)
		}
	}

	echo := got.Root.Find("Echo Metrics")
	if echo == nil {
		t.Fatal("Echo Metrics missing")
	}
	if !echo.Stats.MeanResponseTime.KO.IsNoData() {
		t.Error("no-data marker should be kept as stored")
	}
}

func TestGetSnapshot_NestedGroups(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	snap := &models.Snapshot{
		Run: models.RunInfo{ID: "nested", Simulation: "nested"},
		Root: models.Node{
			Type: models.NodeGroup, Name: "Global Information",
			Contents: []models.Node{
				{Type: models.NodeGroup, Name: "Login", Path: "Login", Contents: []models.Node{
					{Type: models.NodeRequest, Name: "Form", Path: "Login / Form"},
					{Type: models.NodeRequest, Name: "Submit", Path: "Login / Submit"},
				}},
				{Type: models.NodeRequest, Name: "Home", Path: "Home"},
			},
		},
	}
	if err := db.SaveSnapshot(snap, 0); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	got, err := db.GetSnapshot("nested")
	if err != nil {
		t.Fatalf("GetSnapshot() failed: %v", err)
	}
	if len(got.Root.Contents) != 2 {
		t.Fatalf("root has %d children, want 2", len(got.Root.Contents))
	}
	login := got.Root.Contents[0]
	if login.Path != "Login" || len(login.Contents) != 2 || login.Contents[1].Path != "Login / Submit" {
		t.Errorf("Login group = %+v", login)
	}
	if got.Root.Contents[1].Path != "Home" {
		t.Errorf("second child = %q, want Home", got.Root.Contents[1].Path)
	}
}

func TestPreviousRun(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	first := saveFixture(t, db, perSecondRun)
	second := rerun(first, "serverpersecondloadsimulation-20241110080000000", first.Run.StartedAt.Add(24*time.Hour))
	if err := db.SaveSnapshot(second, 0); err != nil {
		t.Fatal(err)
	}
	saveFixture(t, db, atOnceRun)

	prev, err := db.PreviousRun("serverpersecondloadsimulation", second.Run.StartedAt)
	if err != nil {
		t.Fatalf("PreviousRun() failed: %v", err)
	}
	if prev == nil || prev.ID != perSecondRun {
		t.Errorf("PreviousRun() = %+v, want %s", prev, perSecondRun)
	}

	prev, err = db.PreviousRun("serverpersecondloadsimulation", first.Run.StartedAt)
	if err != nil {
		t.Fatalf("PreviousRun() failed: %v", err)
	}
	if prev != nil {
		t.Errorf("first run should have no predecessor, got %s", prev.ID)
	}
}

func TestGetTrend(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	first := saveFixture(t, db, perSecondRun)
	second := rerun(first, "serverpersecondloadsimulation-20241110080000000", first.Run.StartedAt.Add(24*time.Hour))
	second.Root.Contents[0].Stats.Percentiles3.Total = "40000"
	if err := db.SaveSnapshot(second, 0); err != nil {
		t.Fatal(err)
	}

	trend, err := db.GetTrend("serverpersecondloadsimulation", "Echo Metrics", models.TrendPercentile3, models.TimeRangeAllTime)
	if err != nil {
		t.Fatalf("GetTrend() failed: %v", err)
	}
	if len(trend.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(trend.Points))
	}
	if trend.Points[0].Value != 34423 || trend.Points[1].Value != 40000 {
		t.Errorf("values = %v, want [34423 40000]", trend.Values())
	}
	if trend.Points[0].RunID != perSecondRun {
		t.Errorf("first point = %s, want oldest run", trend.Points[0].RunID)
	}

	// Fixture runs are from 2024, outside any relative window.
	trend, err = db.GetTrend("serverpersecondloadsimulation", "Echo Metrics", models.TrendPercentile3, models.TimeRange7Days)
	if err != nil {
		t.Fatalf("GetTrend() with range failed: %v", err)
	}
	if trend.HasData() {
		t.Errorf("expected no points in the last 7 days, got %d", len(trend.Points))
	}
}

func TestGetTrend_SkipsNoData(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	saveFixture(t, db, perSecondRun)

	trend, err := db.GetTrend("serverpersecondloadsimulation", "Echo Metrics", models.TrendKORatio, models.TimeRangeAllTime)
	if err != nil {
		t.Fatalf("GetTrend() failed: %v", err)
	}
	if len(trend.Points) != 1 || trend.Points[0].Value != 0 {
		t.Errorf("KO ratio points = %+v", trend.Points)
	}

	recent := rerun(loadFixture(t, perSecondRun), "recent", time.Now().Add(-time.Hour))
	recent.Root.Contents[0].Stats.MeanResponseTime.Total = "-"
	if err := db.SaveSnapshot(recent, 0); err != nil {
		t.Fatal(err)
	}
	trend, err = db.GetTrend("serverpersecondloadsimulation", "Echo Metrics", models.TrendMean, models.TimeRange7Days)
	if err != nil {
		t.Fatalf("GetTrend() failed: %v", err)
	}
	if trend.HasData() {
		t.Errorf("no-data cells should be skipped, got %+v", trend.Points)
	}
}

func TestGetRequestPaths(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	saveFixture(t, db, perSecondRun)

	paths, err := db.GetRequestPaths("serverpersecondloadsimulation")
	if err != nil {
		t.Fatalf("GetRequestPaths() failed: %v", err)
	}
	want := []string{"", "Echo Metrics", "FastHTTP Metrics"}
	if len(paths) != len(want) {
		t.Fatalf("GetRequestPaths() = %q, want %q", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestParseTimeString(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-11-09 07:37:31.010", time.Date(2024, 11, 9, 7, 37, 31, 10_000_000, time.UTC)},
		{"2024-11-09T07:37:31Z", time.Date(2024, 11, 9, 7, 37, 31, 0, time.UTC)},
		{"2024-11-09 07:37:31 +0000 UTC", time.Date(2024, 11, 9, 7, 37, 31, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := parseTimeString(tt.in)
		if !ok || !got.Equal(tt.want) {
			t.Errorf("parseTimeString(%q) = %v, %v", tt.in, got, ok)
		}
	}
	if _, ok := parseTimeString("yesterday"); ok {
		t.Error("parseTimeString should reject garbage")
	}
}
