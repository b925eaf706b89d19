// Package compare computes run-to-run comparisons from the snapshot store.
package compare

import (
	"fmt"
	"sync"
	"time"

	"github.com/j-veylop/gatling-dashboard-tui/internal/db"
	"github.com/j-veylop/gatling-dashboard-tui/internal/logger"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

// Service compares stored runs and caches the results. Previous-run
// comparisons are keyed by the candidate run ID, explicit ones by both IDs.
type Service struct {
	mu        sync.RWMutex
	db        *db.DB
	threshold float64

	cache map[string]*models.Comparison
}

// New creates a compare service over database. threshold is the
// regression threshold in percent.
func New(database *db.DB, threshold float64) *Service {
	return &Service{
		db:        database,
		threshold: threshold,
		cache:     make(map[string]*models.Comparison),
	}
}

// Threshold returns the regression threshold in percent.
func (s *Service) Threshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// SetThreshold changes the regression threshold and drops cached results.
func (s *Service) SetThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
	s.cache = make(map[string]*models.Comparison)
}

// Compare loads two stored runs and compares the candidate against the
// baseline.
func (s *Service) Compare(baselineID, candidateID string) (*models.Comparison, error) {
	key := baselineID + "|" + candidateID
	if cmp, ok := s.cached(key); ok {
		return cmp, nil
	}

	baseline, err := s.db.GetSnapshot(baselineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline: %w", err)
	}
	candidate, err := s.db.GetSnapshot(candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}

	return s.compareAndCache(key, baseline, candidate), nil
}

// CompareWithPrevious compares a run with the latest earlier run of the
// same simulation. It returns nil when the run is the first one.
func (s *Service) CompareWithPrevious(candidate *models.Snapshot) (*models.Comparison, error) {
	if cmp, ok := s.cached(candidate.Run.ID); ok {
		return cmp, nil
	}

	prev, err := s.db.PreviousRun(candidate.Run.Simulation, candidate.Run.StartedAt)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, nil
	}

	baseline, err := s.db.GetSnapshot(prev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous run: %w", err)
	}

	cmp := s.compareAndCache(candidate.Run.ID, baseline, candidate)
	if cmp.HasRegression() {
		logger.Info("regression detected", "baseline", baseline.Run.ID, "candidate", candidate.Run.ID,
			"requests", len(cmp.Regressions()))
	}
	return cmp, nil
}

// CompareRunWithPrevious is CompareWithPrevious for a stored run ID.
func (s *Service) CompareRunWithPrevious(runID string) (*models.Comparison, error) {
	if cmp, ok := s.cached(runID); ok {
		return cmp, nil
	}
	snap, err := s.db.GetSnapshot(runID)
	if err != nil {
		return nil, err
	}
	return s.CompareWithPrevious(snap)
}

// Invalidate drops every cached comparison involving runID.
func (s *Service) Invalidate(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, cmp := range s.cache {
		if cmp.Baseline.ID == runID || cmp.Candidate.ID == runID {
			delete(s.cache, key)
		}
	}
}

// InvalidateAfter drops the previous-run comparisons of runs of
// simulation that started after t. A run stored late may be their new
// baseline.
func (s *Service) InvalidateAfter(simulation string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, cmp := range s.cache {
		if key != cmp.Candidate.ID {
			continue
		}
		if cmp.Candidate.Simulation == simulation && cmp.Candidate.StartedAt.After(t) {
			delete(s.cache, key)
		}
	}
}

func (s *Service) cached(key string) (*models.Comparison, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cmp, ok := s.cache[key]
	return cmp, ok
}

func (s *Service) compareAndCache(key string, baseline, candidate *models.Snapshot) *models.Comparison {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmp := models.Compare(baseline, candidate, s.threshold)
	s.cache[key] = &cmp
	return &cmp
}
