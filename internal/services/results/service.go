// Package results watches a Gatling results folder and parses new runs.
package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/gatling-dashboard-tui/internal/logger"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/statsjs"
)

// Store reports which runs are already imported.
type Store interface {
	HasRun(id string) (bool, error)
}

// Event is a failure reported outside of a scan result: a run directory
// that did not parse, or a watcher error.
type Event struct {
	Type  EventType
	Dir   string
	Error error
}

// EventType defines the type of results event.
type EventType int

const (
	EventRunFailed EventType = iota
	EventError
)

// Handler receives the outcome of every scan the service starts on its
// own. res is nil when err is set.
type Handler func(ctx context.Context, res *ScanResult, err error)

// ScanResult is the outcome of one scan of the results folder.
type ScanResult struct {
	Imported []*models.Snapshot
	Failed   map[string]error
}

// Service finds new run directories and parses their stats.
type Service struct {
	mu            sync.Mutex
	scanMu        sync.Mutex
	handleMu      sync.Mutex
	ctx           context.Context
	handle        Handler
	root          string
	store         Store
	interval      time.Duration
	workers       int
	seen          map[string]bool
	failed        map[string]time.Time
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	stopOnce      sync.Once
	debounceTimer *time.Timer
}

// New creates a results service for the given folder. Nothing runs until
// Start or Scan is called. An interval of zero disables periodic rescans.
func New(root string, store Store, interval time.Duration) *Service {
	return &Service{
		root:      root,
		store:     store,
		interval:  interval,
		workers:   runtime.NumCPU(),
		seen:      make(map[string]bool),
		failed:    make(map[string]time.Time),
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}
}

// Root returns the watched results folder.
func (s *Service) Root() string {
	return s.root
}

// Events returns the failure channel. It drops the oldest event when
// full, so imports never travel through it.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Start runs an initial scan, then watches the folder and rescans
// periodically. Every scan result is passed to handle.
func (s *Service) Start(ctx context.Context, handle Handler) error {
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	s.mu.Lock()
	s.ctx = ctx
	s.handle = handle
	s.mu.Unlock()

	if err := s.startWatcher(); err != nil {
		return fmt.Errorf("failed to start results watcher: %w", err)
	}

	go s.rescan()

	if s.interval > 0 {
		go s.pollLoop(ctx)
	}
	return nil
}

// Scan parses every run directory that is neither stored nor already
// reported. Imported runs are sorted oldest first and count as seen from
// then on, so the caller must store them or Forget them.
func (s *Service) Scan(ctx context.Context) (*ScanResult, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	dirs, err := statsjs.FindRunDirs(s.root)
	if err != nil {
		return nil, err
	}

	pending, err := s.pendingDirs(dirs)
	if err != nil {
		return nil, err
	}

	snaps := make([]*models.Snapshot, len(pending))
	errs := make([]error, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, dir := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snaps[i], errs[i] = statsjs.ParseRunDir(dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ScanResult{Failed: make(map[string]error)}
	for i, dir := range pending {
		if errs[i] != nil {
			if s.markFailed(dir) {
				result.Failed[dir] = errs[i]
				logger.Warn("failed to parse run", "dir", dir, "error", errs[i])
				s.sendEvent(Event{Type: EventRunFailed, Dir: dir, Error: errs[i]})
			}
			continue
		}
		result.Imported = append(result.Imported, snaps[i])
	}

	sort.SliceStable(result.Imported, func(i, j int) bool {
		return result.Imported[i].Run.StartedAt.Before(result.Imported[j].Run.StartedAt)
	})

	s.mu.Lock()
	for _, snap := range result.Imported {
		s.seen[snap.Run.Path] = true
		delete(s.failed, snap.Run.Path)
	}
	s.mu.Unlock()

	logger.Debug("results scan complete", "root", s.root, "found", len(dirs),
		"imported", len(result.Imported), "failed", len(result.Failed))
	return result, nil
}

// Forget lets a run directory be reported again by the next scan.
func (s *Service) Forget(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, dir)
	delete(s.failed, dir)
}

// pendingDirs filters out directories that were reported or stored.
func (s *Service) pendingDirs(dirs []string) ([]string, error) {
	var pending []string
	for _, dir := range dirs {
		s.mu.Lock()
		seen := s.seen[dir]
		s.mu.Unlock()
		if seen {
			continue
		}

		if s.store != nil {
			ok, err := s.store.HasRun(models.ParseRunID(filepath.Base(dir)).ID)
			if err != nil {
				return nil, err
			}
			if ok {
				s.mu.Lock()
				s.seen[dir] = true
				s.mu.Unlock()
				continue
			}
		}
		pending = append(pending, dir)
	}
	return pending, nil
}

// markFailed records a failed parse. It returns false when the stats file
// has not changed since the last reported failure.
func (s *Service) markFailed(dir string) bool {
	var mod time.Time
	if st, err := os.Stat(filepath.Join(dir, statsjs.StatsFile)); err == nil {
		mod = st.ModTime()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.failed[dir]; ok && prev.Equal(mod) {
		return false
	}
	s.failed[dir] = mod
	return true
}

// startWatcher starts the file system watcher.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the results folder to catch new run directories
	if err := watcher.Add(s.root); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	const debounceInterval = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			// A run directory that goes away may come back under the
			// same name, for example when a run is re-generated.
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if filepath.Dir(filepath.Clean(event.Name)) == filepath.Clean(s.root) {
					s.Forget(event.Name)
				}
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Run directories and their js/ folder appear before stats.js
			// is written, so follow them down.
			if event.Op&fsnotify.Create != 0 {
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					s.watchDir(event.Name)
				}
			}

			// Debounce rapid changes
			s.mu.Lock()
			if s.debounceTimer != nil {
				s.debounceTimer.Stop()
			}
			s.debounceTimer = time.AfterFunc(debounceInterval, s.rescan)
			s.mu.Unlock()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// watchDir adds a new run directory, or its js/ folder, to the watcher.
func (s *Service) watchDir(dir string) {
	rel, err := filepath.Rel(s.root, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	depth := strings.Count(rel, string(filepath.Separator)) + 1
	if depth > 2 {
		return
	}

	if err := s.watcher.Add(dir); err != nil {
		logger.Warn("failed to watch directory", "dir", dir, "error", err)
		return
	}
	if depth == 1 {
		js := filepath.Join(dir, "js")
		if st, err := os.Stat(js); err == nil && st.IsDir() {
			_ = s.watcher.Add(js)
		}
	}
}

// pollLoop rescans on a timer for filesystems without change events.
func (s *Service) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.rescan()
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		}
	}
}

// Rescan scans in the background and passes the result to the handler
// given to Start.
func (s *Service) Rescan() {
	go s.rescan()
}

// rescan runs one scan and hands it over. Scans are handed over in the
// order they ran.
func (s *Service) rescan() {
	select {
	case <-s.stopChan:
		return
	default:
	}

	s.mu.Lock()
	ctx, handle := s.ctx, s.handle
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	res, err := s.Scan(ctx)
	if handle != nil {
		handle(ctx, res, err)
		return
	}
	if err != nil {
		s.sendEvent(Event{Type: EventError, Error: err})
	}
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (s *Service) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })

	s.mu.Lock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.mu.Unlock()

	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
