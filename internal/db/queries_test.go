package db

import (
	"errors"
	"testing"
	"time"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

// rerun copies a snapshot under a new run ID of the same simulation.
func rerun(snap *models.Snapshot, id string, startedAt time.Time) *models.Snapshot {
	c := *snap
	c.Run.ID = id
	c.Run.StartedAt = startedAt
	return &c
}

func TestSaveSnapshot(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	saveFixture(t, db, perSecondRun)

	ok, err := db.HasRun(perSecondRun)
	if err != nil {
		t.Fatalf("HasRun() failed: %v", err)
	}
	if !ok {
		t.Error("HasRun() = false after SaveSnapshot")
	}

	run, err := db.GetRun(perSecondRun)
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if run.Simulation != "serverpersecondloadsimulation" {
		t.Errorf("Simulation = %q", run.Simulation)
	}
	want := time.Date(2024, 11, 9, 7, 37, 31, 10_000_000, time.UTC)
	if !run.StartedAt.Equal(want) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, want)
	}
	if run.TotalRequests != 120000 || run.KORequests != 10 {
		t.Errorf("requests = %d/%d, want 120000/10", run.TotalRequests, run.KORequests)
	}
	if run.MeanRPS != 2264.151 {
		t.Errorf("MeanRPS = %v, want 2264.151", run.MeanRPS)
	}
}

func TestSaveSnapshot_Replaces(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	snap := saveFixture(t, db, perSecondRun)
	if err := db.SaveSnapshot(snap, 3); err != nil {
		t.Fatalf("second SaveSnapshot() failed: %v", err)
	}

	runs, err := db.ListRuns("", 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run after replace, got %d", len(runs))
	}
	if runs[0].IssueCount != 3 {
		t.Errorf("IssueCount = %d, want 3", runs[0].IssueCount)
	}
}

func TestSaveSnapshot_NoTimestamp(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	snap := loadFixture(t, perSecondRun)
	snap = rerun(snap, "adhoc", time.Time{})
	snap.ImportedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := db.SaveSnapshot(snap, 0); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	run, err := db.GetRun("adhoc")
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if !run.StartedAt.Equal(snap.ImportedAt) {
		t.Errorf("StartedAt = %v, want import time %v", run.StartedAt, snap.ImportedAt)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	_, err := db.GetRun("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}

	ok, err := db.HasRun("missing")
	if err != nil || ok {
		t.Errorf("HasRun() = %v, %v", ok, err)
	}
}

func TestListRuns(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	snap := saveFixture(t, db, perSecondRun)
	saveFixture(t, db, atOnceRun)
	later := rerun(snap, "serverpersecondloadsimulation-20241110080000000", snap.Run.StartedAt.Add(24*time.Hour))
	if err := db.SaveSnapshot(later, 0); err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListRuns("", 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != later.Run.ID || runs[2].ID != atOnceRun {
		t.Errorf("runs not newest first: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	runs, err = db.ListRuns("serverpersecondloadsimulation", 1)
	if err != nil {
		t.Fatalf("ListRuns() with filter failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != later.Run.ID {
		t.Errorf("filtered ListRuns() = %+v", runs)
	}
}

func TestListSimulations(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	sims, err := db.ListSimulations()
	if err != nil {
		t.Fatalf("ListSimulations() failed: %v", err)
	}
	if len(sims) != 0 {
		t.Errorf("expected no simulations, got %v", sims)
	}

	saveFixture(t, db, perSecondRun)
	saveFixture(t, db, atOnceRun)

	sims, err = db.ListSimulations()
	if err != nil {
		t.Fatalf("ListSimulations() failed: %v", err)
	}
	want := []string{"serveratonceloadsimulation", "serverpersecondloadsimulation"}
	if len(sims) != 2 || sims[0] != want[0] || sims[1] != want[1] {
		t.Errorf("ListSimulations() = %v, want %v", sims, want)
	}
}

func TestDeleteRun(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	saveFixture(t, db, perSecondRun)
	if err := db.SaveAssertionResults(perSecondRun, []models.AssertionOutcome{{Name: "a", Expr: "true", Passed: true}}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteRun(perSecondRun); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}
	if ok, _ := db.HasRun(perSecondRun); ok {
		t.Error("run still present after DeleteRun")
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM request_stats").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("request_stats rows left behind: %d", n)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM assertion_results").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("assertion_results rows left behind: %d", n)
	}

	if err := db.DeleteRun(perSecondRun); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second DeleteRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestGetTotals(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	totals, err := db.GetTotals()
	if err != nil {
		t.Fatalf("GetTotals() failed: %v", err)
	}
	if totals.Runs != 0 || totals.TotalRequests != 0 {
		t.Errorf("empty totals = %+v", totals)
	}

	saveFixture(t, db, perSecondRun)
	saveFixture(t, db, atOnceRun)

	totals, err = db.GetTotals()
	if err != nil {
		t.Fatalf("GetTotals() failed: %v", err)
	}
	if totals.Runs != 2 || totals.Simulations != 2 {
		t.Errorf("runs/simulations = %d/%d, want 2/2", totals.Runs, totals.Simulations)
	}
	if totals.TotalRequests != 220000 {
		t.Errorf("TotalRequests = %d, want 220000", totals.TotalRequests)
	}
	if totals.KORequests != 26 {
		t.Errorf("KORequests = %d, want 26", totals.KORequests)
	}
}

func TestNullString(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("nullString(\"x\") = %+v", ns)
	}
}
