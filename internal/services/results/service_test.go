package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/statsjs"
)

const (
	perSecondRun = "serverpersecondloadsimulation-20241109073731010"
	atOnceRun    = "serveratonceloadsimulation-20241108155914936"
)

type fakeStore struct {
	runs map[string]bool
}

func (f *fakeStore) HasRun(id string) (bool, error) {
	return f.runs[id], nil
}

// copyRun copies a fixture run directory into root.
func copyRun(t *testing.T, root, name string) string {
	t.Helper()
	return copyRunAs(t, root, name, name)
}

// copyRunAs writes the stats of fixture run name under another run
// directory name.
func copyRunAs(t *testing.T, root, name, as string) string {
	t.Helper()

	src := filepath.Join("..", "..", "statsjs", "testdata", "results", name, statsjs.StatsFile)
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	dir := filepath.Join(root, as)
	if err := os.MkdirAll(filepath.Join(dir, "js"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, statsjs.StatsFile), data, 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestService(t *testing.T, store Store) (*Service, string) {
	t.Helper()

	root := t.TempDir()
	svc := New(root, store, 0)
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Logf("Close() failed: %v", err)
		}
	})
	return svc, root
}

// drain collects the events currently buffered.
func drain(svc *Service) []Event {
	var events []Event
	for {
		select {
		case e := <-svc.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestScan(t *testing.T) {
	svc, root := newTestService(t, nil)
	copyRun(t, root, perSecondRun)
	copyRun(t, root, atOnceRun)
	if err := os.MkdirAll(filepath.Join(root, "in-progress-20250101000000000"), 0o750); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(res.Imported) != 2 {
		t.Fatalf("Scan() imported %d runs, want 2", len(res.Imported))
	}
	if res.Imported[0].Run.ID != atOnceRun || res.Imported[1].Run.ID != perSecondRun {
		t.Errorf("runs not oldest first: %s, %s", res.Imported[0].Run.ID, res.Imported[1].Run.ID)
	}
	if len(res.Failed) != 0 {
		t.Errorf("unexpected failures: %v", res.Failed)
	}

	if events := drain(svc); len(events) != 0 {
		t.Errorf("a clean scan should not emit events, got %+v", events)
	}

	res, err = svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan() failed: %v", err)
	}
	if len(res.Imported) != 0 {
		t.Errorf("second Scan() should not report runs again, got %d", len(res.Imported))
	}
}

func TestScan_SkipsStoredRuns(t *testing.T) {
	store := &fakeStore{runs: map[string]bool{perSecondRun: true}}
	svc, root := newTestService(t, store)
	copyRun(t, root, perSecondRun)
	copyRun(t, root, atOnceRun)

	res, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(res.Imported) != 1 || res.Imported[0].Run.ID != atOnceRun {
		t.Errorf("Scan() should only import %s, got %d runs", atOnceRun, len(res.Imported))
	}
}

func TestScan_Forget(t *testing.T) {
	svc, root := newTestService(t, nil)
	dir := copyRun(t, root, perSecondRun)

	if _, err := svc.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	svc.Forget(dir)

	res, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Imported) != 1 {
		t.Errorf("forgotten run should be reported again, got %d", len(res.Imported))
	}
}

func TestScan_BrokenRun(t *testing.T) {
	svc, root := newTestService(t, nil)
	dir := filepath.Join(root, "broken-20250101000000000")
	if err := os.MkdirAll(filepath.Join(dir, "js"), 0o750); err != nil {
		t.Fatal(err)
	}
	statsPath := filepath.Join(dir, statsjs.StatsFile)
	if err := os.WriteFile(statsPath, []byte(`var stats = { type: "GROUP"`), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if _, ok := res.Failed[dir]; !ok {
		t.Fatalf("expected %s to fail, got %v", dir, res.Failed)
	}
	events := drain(svc)
	if len(events) == 0 || events[0].Type != EventRunFailed || events[0].Dir != dir {
		t.Errorf("expected EventRunFailed first, got %+v", events)
	}

	// An unchanged broken file is not reported twice.
	res, _ = svc.Scan(context.Background())
	if len(res.Failed) != 0 {
		t.Errorf("unchanged failure reported again: %v", res.Failed)
	}

	// Once Gatling finishes writing, the run imports.
	src := filepath.Join("..", "..", "statsjs", "testdata", "results", perSecondRun, statsjs.StatsFile)
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(statsPath, data, 0o600); err != nil {
		t.Fatal(err)
	}
	res, err = svc.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Imported) != 1 || res.Imported[0].Run.Simulation != "broken" {
		t.Errorf("fixed run should import, got %+v", res)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	svc := New(filepath.Join(t.TempDir(), "missing"), nil, 0)
	defer svc.Close()

	if _, err := svc.Scan(context.Background()); err == nil {
		t.Error("Scan() should fail when the results folder is missing")
	}
}

func TestScan_Cancelled(t *testing.T) {
	svc, root := newTestService(t, nil)
	copyRun(t, root, perSecondRun)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Scan(ctx); err == nil {
		t.Error("Scan() should fail with a cancelled context")
	}
}

// collect starts svc with a handler that forwards every scan result.
func collect(t *testing.T, svc *Service) <-chan *ScanResult {
	t.Helper()

	scans := make(chan *ScanResult, 16)
	err := svc.Start(context.Background(), func(_ context.Context, res *ScanResult, err error) {
		if err != nil {
			t.Errorf("scan failed: %v", err)
			return
		}
		scans <- res
	})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	return scans
}

// nextImport waits for a scan result that imported something.
func nextImport(t *testing.T, scans <-chan *ScanResult) []*models.Snapshot {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case res := <-scans:
			if len(res.Imported) > 0 {
				return res.Imported
			}
		case <-timeout:
			t.Fatal("timed out waiting for an import")
			return nil
		}
	}
}

func waitForScan(t *testing.T, scans <-chan *ScanResult) *ScanResult {
	t.Helper()
	select {
	case res := <-scans:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a scan")
		return nil
	}
}

func TestStart_WatchesNewRuns(t *testing.T) {
	svc, root := newTestService(t, nil)
	scans := collect(t, svc)

	// Let the initial scan finish before the run appears.
	waitForScan(t, scans)

	copyRun(t, root, perSecondRun)

	imported := nextImport(t, scans)
	if len(imported) != 1 || imported[0].Run.ID != perSecondRun {
		t.Errorf("imported = %+v", imported)
	}
}

func TestStart_HandsOverEveryRun(t *testing.T) {
	svc, root := newTestService(t, nil)

	// More runs than the event buffer holds.
	const n = 150
	for i := range n {
		copyRunAs(t, root, perSecondRun, fmt.Sprintf("bulk-20241109%09d", i))
	}

	scans := collect(t, svc)
	res := waitForScan(t, scans)
	if len(res.Imported) != n {
		t.Fatalf("initial scan imported %d runs, want %d", len(res.Imported), n)
	}
	if res.Imported[0].Run.ID != "bulk-20241109000000000" {
		t.Errorf("first run = %s, want the oldest", res.Imported[0].Run.ID)
	}
}

func TestRescan(t *testing.T) {
	svc, root := newTestService(t, nil)
	scans := collect(t, svc)
	waitForScan(t, scans)

	// Without a watcher event the run only shows up on request.
	svc.Rescan()
	if res := waitForScan(t, scans); len(res.Imported) != 0 {
		t.Errorf("empty folder imported %d runs", len(res.Imported))
	}

	copyRun(t, root, atOnceRun)
	svc.Rescan()
	imported := nextImport(t, scans)
	if imported[0].Run.ID != atOnceRun {
		t.Errorf("imported %s", imported[0].Run.ID)
	}
}

func TestStart_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "results")
	svc := New(root, nil, time.Hour)
	defer svc.Close()

	if err := svc.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("results folder was not created: %v", err)
	}
	if svc.Root() != root {
		t.Errorf("Root() = %q, want %q", svc.Root(), root)
	}
}

func TestClose_Twice(t *testing.T) {
	svc := New(t.TempDir(), nil, 0)
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestStart_ForgetsRemovedRuns(t *testing.T) {
	svc, root := newTestService(t, nil)
	scans := collect(t, svc)
	waitForScan(t, scans)

	dir := copyRun(t, root, perSecondRun)
	nextImport(t, scans)

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	// The watcher sees the removal before the re-creation.
	copyRun(t, root, perSecondRun)
	imported := nextImport(t, scans)
	if imported[0].Run.ID != perSecondRun {
		t.Errorf("re-created run should be imported again, got %s", imported[0].Run.ID)
	}
}
