// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/gatling-dashboard-tui/internal/config"
	"github.com/j-veylop/gatling-dashboard-tui/internal/db"
	"github.com/j-veylop/gatling-dashboard-tui/internal/logger"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services/assertions"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services/compare"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services/results"
)

type (
	// RunsChangedEvent is emitted when the stored runs change.
	RunsChangedEvent struct {
		Runs []models.StoredRun
	}

	// RunImportedEvent is emitted when a new run is stored.
	RunImportedEvent struct {
		Run    models.StoredRun
		Issues []models.Issue
	}

	// RegressionEvent is emitted when a run regressed against the previous one.
	RegressionEvent struct {
		Comparison *models.Comparison
	}

	// AssertionFailedEvent is emitted when a run fails assertions.
	AssertionFailedEvent struct {
		RunID  string
		Failed []models.AssertionOutcome
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}

	// ScanCompleteEvent is emitted after every pass over the results folder.
	ScanCompleteEvent struct {
		Imported int
	}

	// StatsEvent is emitted when global statistics change.
	StatsEvent struct {
		Runs          int
		Simulations   int
		TotalRequests int64
		KORequests    int64
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (RunsChangedEvent) isServiceEvent()     {}
func (RunImportedEvent) isServiceEvent()     {}
func (RegressionEvent) isServiceEvent()      {}
func (AssertionFailedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()           {}
func (ScanCompleteEvent) isServiceEvent()    {}
func (StatsEvent) isServiceEvent()           {}

// ImportSummary reports what one import pass stored.
type ImportSummary struct {
	Imported         []models.StoredRun
	Failed           map[string]error
	Regressions      int
	FailedAssertions int
}

// notify sends desktop notifications. Tests replace it.
var notify = beeep.Notify

// Manager orchestrates services and event routing.
type Manager struct {
	mu          sync.RWMutex
	ingestMu    sync.Mutex
	cfg         *config.Config
	results     *results.Service
	compare     *compare.Service
	assertions  *assertions.Evaluator
	indicators  config.Indicators
	database    *db.DB
	stopChan    chan struct{}
	stopOnce    sync.Once
	started     bool
	subscribers []chan ServiceEvent
}

// NewManager creates a new service manager. Watching starts with Start.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.AssertionsPath != "" {
		m.assertions, err = assertions.LoadFile(cfg.AssertionsPath)
		if err != nil {
			_ = m.database.Close()
			return nil, err
		}
	}

	m.indicators, err = config.LoadIndicators(cfg.GatlingConfPath)
	if err != nil {
		logger.Warn("using default gatling indicators", "error", err)
	}

	m.compare = compare.New(m.database, cfg.RegressionThreshold)
	m.results = results.New(cfg.ResultsPath, m.database, cfg.ScanInterval)

	return m, nil
}

// Start watches the results folder. Runs found by its scans are stored
// as each scan completes.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	go m.routeEvents(ctx)
	return m.results.Start(ctx, m.handleScan)
}

// handleScan stores the runs of one background scan, then reports the
// new run list.
func (m *Manager) handleScan(ctx context.Context, res *results.ScanResult, err error) {
	if err != nil {
		m.broadcast(ErrorEvent{Service: "results", Error: err})
		m.broadcast(ScanCompleteEvent{})
		return
	}

	imported := 0
	for _, snap := range res.Imported {
		if _, ok := m.ingest(ctx, snap); ok {
			imported++
		}
	}
	if imported > 0 {
		m.broadcastRuns()
	}
	m.broadcast(ScanCompleteEvent{Imported: imported})
}

// routeEvents forwards results failures to subscribers.
func (m *Manager) routeEvents(ctx context.Context) {
	for {
		select {
		case event := <-m.results.Events():
			switch event.Type {
			case results.EventRunFailed:
				m.broadcast(ErrorEvent{
					Service: "results",
					Error:   fmt.Errorf("%s: %w", event.Dir, event.Error),
				})

			case results.EventError:
				m.broadcast(ErrorEvent{
					Service: "results",
					Error:   event.Error,
				})
			}

		case <-ctx.Done():
			return

		case <-m.stopChan:
			return
		}
	}
}

// Import scans the results folder once and stores every new run. It is
// meant for one-shot use without Start.
func (m *Manager) Import(ctx context.Context) (*ImportSummary, error) {
	res, err := m.results.Scan(ctx)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{Failed: res.Failed}
	for _, snap := range res.Imported {
		outcome, ok := m.ingest(ctx, snap)
		if !ok {
			continue
		}
		summary.Imported = append(summary.Imported, outcome.run)
		if outcome.regressed {
			summary.Regressions++
		}
		summary.FailedAssertions += outcome.failedAssertions
	}

	if len(summary.Imported) > 0 {
		m.broadcastRuns()
	}
	return summary, nil
}

// Rescan triggers a scan in the background. It ends with a
// ScanCompleteEvent once Start has been called.
func (m *Manager) Rescan() {
	m.results.Rescan()
}

type ingestOutcome struct {
	run              models.StoredRun
	regressed        bool
	failedAssertions int
}

// ingest validates, stores, checks and compares one parsed run. Runs that
// are already stored are skipped. A run that could not be stored is
// forgotten by the results service so the next scan retries it.
func (m *Manager) ingest(ctx context.Context, snap *models.Snapshot) (ingestOutcome, bool) {
	m.ingestMu.Lock()
	defer m.ingestMu.Unlock()

	var out ingestOutcome

	ok, err := m.database.HasRun(snap.Run.ID)
	if err != nil {
		m.results.Forget(snap.Run.Path)
		m.broadcast(ErrorEvent{Service: "db", Error: err})
		return out, false
	}
	if ok {
		return out, false
	}

	issues := models.ValidateTree(&snap.Root)
	if len(issues) > 0 {
		logger.Warn("inconsistent stats", "run", snap.Run.ID, "issues", len(issues))
	}

	if err := m.database.SaveSnapshot(snap, len(issues)); err != nil {
		m.results.Forget(snap.Run.Path)
		m.broadcast(ErrorEvent{Service: "db", Error: err})
		return out, false
	}
	// Later runs of the simulation may have compared against an older baseline.
	m.compare.InvalidateAfter(snap.Run.Simulation, snap.Run.StartedAt)
	logger.Info("run imported", "run", snap.Run.ID, "simulation", snap.Run.Simulation)

	if m.assertions.Len() > 0 {
		outcomes := assertions.Outcomes(m.assertions.Evaluate(ctx, snap))
		if err := m.database.SaveAssertionResults(snap.Run.ID, outcomes); err != nil {
			m.broadcast(ErrorEvent{Service: "assertions", Error: err})
		}
		if failed := models.FailedOutcomes(outcomes); len(failed) > 0 {
			out.failedAssertions = len(failed)
			m.broadcast(AssertionFailedEvent{RunID: snap.Run.ID, Failed: failed})
			m.notifyf(fmt.Sprintf("Assertions failed: %s", snap.Run.Simulation),
				"%d of %d assertions failed for %s", len(failed), len(outcomes), snap.Run.ID)
		}
	}

	cmp, err := m.compare.CompareWithPrevious(snap)
	if err != nil {
		m.broadcast(ErrorEvent{Service: "compare", Error: err})
	} else if cmp != nil && cmp.HasRegression() {
		out.regressed = true
		m.broadcast(RegressionEvent{Comparison: cmp})
		m.notifyf(fmt.Sprintf("Regression: %s", snap.Run.Simulation),
			"%d requests regressed against %s", len(cmp.Regressions()), cmp.Baseline.ID)
	}

	run, err := m.database.GetRun(snap.Run.ID)
	if err != nil {
		m.broadcast(ErrorEvent{Service: "db", Error: err})
		return out, false
	}
	out.run = *run

	m.broadcast(RunImportedEvent{Run: *run, Issues: issues})
	return out, true
}

func (m *Manager) notifyf(title, format string, args ...any) {
	if !m.cfg.Notify {
		return
	}
	if err := notify(title, fmt.Sprintf(format, args...), ""); err != nil {
		logger.Debug("desktop notification failed", "error", err)
	}
}

func (m *Manager) broadcastRuns() {
	runs, err := m.database.ListRuns("", 0)
	if err != nil {
		m.broadcast(ErrorEvent{Service: "db", Error: err})
		return
	}
	m.broadcast(RunsChangedEvent{Runs: runs})
	m.broadcast(m.GetStats())
}

// broadcast sends an event to all subscribers. A full subscriber loses
// its oldest event, so the events that close a burst always arrive.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- event:
			default:
			}
		}
	}
}

// Subscribe registers a buffered event channel. When the buffer is full
// the oldest event is dropped. A scan always ends with its run list and
// ScanCompleteEvent.
func (m *Manager) Subscribe() chan ServiceEvent {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// GetStats returns aggregated statistics.
func (m *Manager) GetStats() StatsEvent {
	totals, err := m.database.GetTotals()
	if err != nil {
		logger.Error("failed to get totals", "error", err)
		return StatsEvent{}
	}
	return StatsEvent{
		Runs:          totals.Runs,
		Simulations:   totals.Simulations,
		TotalRequests: totals.TotalRequests,
		KORequests:    totals.KORequests,
	}
}

// ListRuns returns stored runs, newest first.
func (m *Manager) ListRuns(simulation string, limit int) ([]models.StoredRun, error) {
	runs, err := m.database.ListRuns(simulation, limit)
	if err != nil {
		return nil, err
	}
	failed, err := m.database.CountFailedAssertions()
	if err != nil {
		logger.Warn("failed to count assertion failures", "error", err)
		return runs, nil
	}
	for i := range runs {
		runs[i].FailedAssertions = failed[runs[i].ID]
	}
	return runs, nil
}

// ListSimulations returns the stored simulation names.
func (m *Manager) ListSimulations() ([]string, error) {
	return m.database.ListSimulations()
}

// GetSnapshot loads a stored run.
func (m *Manager) GetSnapshot(runID string) (*models.Snapshot, error) {
	return m.database.GetSnapshot(runID)
}

// GetTrend returns a metric series for a simulation and request path.
func (m *Manager) GetTrend(simulation, path string, metric models.TrendMetric, timeRange models.TimeRange) (*models.Trend, error) {
	if m.database == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return m.database.GetTrend(simulation, path, metric, timeRange)
}

// GetRequestPaths returns the request paths recorded for a simulation.
func (m *Manager) GetRequestPaths(simulation string) ([]string, error) {
	return m.database.GetRequestPaths(simulation)
}

// GetAssertionResults returns the stored assertion outcomes of a run.
func (m *Manager) GetAssertionResults(runID string) ([]models.AssertionOutcome, error) {
	return m.database.GetAssertionResults(runID)
}

// CompareWithPrevious compares a stored run with its predecessor.
func (m *Manager) CompareWithPrevious(runID string) (*models.Comparison, error) {
	return m.compare.CompareRunWithPrevious(runID)
}

// Compare compares two stored runs.
func (m *Manager) Compare(baselineID, candidateID string) (*models.Comparison, error) {
	return m.compare.Compare(baselineID, candidateID)
}

// DeleteRun removes a stored run.
func (m *Manager) DeleteRun(runID string) error {
	if err := m.database.DeleteRun(runID); err != nil {
		return err
	}
	m.compare.Invalidate(runID)
	m.broadcastRuns()
	return nil
}

// Indicators returns the Gatling charting indicators in use.
func (m *Manager) Indicators() config.Indicators {
	return m.indicators
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Assertions returns the loaded assertions, or nil when none are configured.
func (m *Manager) Assertions() *assertions.Evaluator {
	return m.assertions
}

// Results returns the results service.
func (m *Manager) Results() *results.Service {
	return m.results
}

// Comparer returns the compare service.
func (m *Manager) Comparer() *compare.Service {
	return m.compare
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() {
		if m.stopChan != nil {
			close(m.stopChan)
		}
	})

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	var errs []error

	if m.results != nil {
		if err := m.results.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.database != nil {
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
