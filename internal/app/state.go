// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services"
)

// NotificationType selects the colour and prefix of a toast.
type NotificationType int

const (
	NotificationSuccess NotificationType = iota
	NotificationError
	NotificationWarning
	NotificationInfo
	// NotificationLoading shows the spinner instead of a prefix and stays
	// until cleared.
	NotificationLoading
)

// LoadingNotificationID is the fixed ID of the single loading toast.
const LoadingNotificationID = "loading"

// maxNotifications bounds the toast stack. A scan importing many runs
// would otherwise cover the screen.
const maxNotifications = 5

// Notification is one toast.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
	// Count is how many identical toasts were merged into this one.
	Count int
}

// IsExpired reports whether the toast outlived its duration. A zero
// duration never expires.
func (n *Notification) IsExpired() bool {
	return n.Duration > 0 && time.Since(n.CreatedAt) > n.Duration
}

// LoadingState tracks the first run list load and background scans.
type LoadingState struct {
	Initial bool
	Scan    bool
}

// State is the state shared by the model and every tab.
type State struct {
	mu sync.RWMutex

	Runs             []models.StoredRun
	Stats            *services.StatsEvent
	SelectedRunIndex int
	SelectedRunID    string

	Loading LoadingState

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty state with the initial load pending.
func NewState() *State {
	return &State{
		Runs:          make([]models.StoredRun, 0),
		notifications: make([]Notification, 0),
		Loading: LoadingState{
			Initial: true,
		},
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch resource {
	case "initial":
		s.Loading.Initial = loading
	case "scan":
		s.Loading.Scan = loading
	}
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.Loading.Initial || s.Loading.Scan
}

// IsInitialLoading returns true if initial data is still loading.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial
}

// IsScanning returns true while a results scan is running.
func (s *State) IsScanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Scan
}

// SetRuns replaces the run list, newest first, and keeps the selection on
// the same run when it is still present.
func (s *State) SetRuns(runs []models.StoredRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Runs = runs

	for i := range runs {
		if runs[i].ID == s.SelectedRunID {
			s.SelectedRunIndex = i
			return
		}
	}
	s.SelectedRunIndex = max(0, min(s.SelectedRunIndex, len(runs)-1))
	s.SelectedRunID = ""
	if len(runs) > 0 {
		s.SelectedRunID = runs[s.SelectedRunIndex].ID
	}
}

// GetRuns returns a copy of the run list.
func (s *State) GetRuns() []models.StoredRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]models.StoredRun, len(s.Runs))
	copy(runs, s.Runs)
	return runs
}

// GetRunCount returns the number of runs.
func (s *State) GetRunCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Runs)
}

// GetSelectedRun returns the selected run, or nil when there are none.
func (s *State) GetSelectedRun() *models.StoredRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.SelectedRunIndex < 0 || s.SelectedRunIndex >= len(s.Runs) {
		return nil
	}
	run := s.Runs[s.SelectedRunIndex]
	return &run
}

// SetStats updates the statistics.
func (s *State) SetStats(stats services.StatsEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stats = &stats
}

// GetStats returns the current statistics.
func (s *State) GetStats() *services.StatsEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// AddNotification queues a toast and returns its ID. A toast repeating
// the newest one of the same type is merged into it and its timer restarts.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := &s.notifications[i]
		if n.ID == LoadingNotificationID {
			continue
		}
		if n.Type == notifType && n.Message == message && !n.IsExpired() {
			n.Count++
			n.CreatedAt = now
			n.Duration = duration
			return n.ID
		}
		break
	}

	s.notificationSeq++
	id := "n" + strconv.Itoa(s.notificationSeq)
	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: now,
		Duration:  duration,
		Count:     1,
	})
	if over := len(s.notifications) - maxNotifications; over > 0 {
		s.notifications = slices.Delete(s.notifications, 0, over)
	}

	return id
}

// RemoveNotification removes a toast by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = slices.DeleteFunc(s.notifications, func(n Notification) bool { return n.ID == id })
}

// ClearExpiredNotifications drops every expired toast.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = slices.DeleteFunc(s.notifications, func(n Notification) bool { return n.IsExpired() })
}

// GetNotifications returns the live toasts, oldest first.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification shows message in the loading toast, creating it
// if needed.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}
	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
		Count:     1,
	})
}

func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetSelectedRunIndex returns the currently selected run index.
func (s *State) GetSelectedRunIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SelectedRunIndex
}

// SetSelectedRun updates the selected run.
func (s *State) SetSelectedRun(idx int, runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SelectedRunIndex = idx
	s.SelectedRunID = runID
}
