package app

import (
	"time"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
	"github.com/j-veylop/gatling-dashboard-tui/internal/services"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// RunsLoadedMsg contains the stored runs and store totals.
type RunsLoadedMsg struct {
	Runs  []models.StoredRun
	Stats services.StatsEvent
	Error error
}

// ScanRequestedMsg confirms a background results scan was started.
type ScanRequestedMsg struct{}

// DeleteRunMsg requests deletion of a stored run.
type DeleteRunMsg struct {
	RunID string
}

// DeleteRunResultMsg contains the result of a run deletion.
type DeleteRunResultMsg struct {
	RunID   string
	Success bool
	Error   error
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// CopyToClipboardMsg requests copying text to clipboard.
type CopyToClipboardMsg struct {
	Text string
}

// ClipboardResultMsg contains the result of a clipboard operation.
type ClipboardResultMsg struct {
	Success bool
	Error   error
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// SelectedRunChangedMsg signals that the selected run in the UI has changed.
type SelectedRunChangedMsg struct {
	Index int
	RunID string
}
