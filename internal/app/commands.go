package app

import (
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/gatling-dashboard-tui/internal/services"
)

const (
	// tickInterval paces expiry of toasts.
	tickInterval = 2 * time.Second

	// runListLimit caps how many runs the dashboard keeps in memory.
	runListLimit = 500

	infoDuration = 3 * time.Second

	// DefaultNotificationDuration is how long a toast stays up.
	DefaultNotificationDuration = 5 * time.Second
	// LongNotificationDuration keeps errors visible for longer.
	LongNotificationDuration = 10 * time.Second
)

func defaultTickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// loadRunsCmd reads the newest stored runs together with the store totals.
func loadRunsCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		runs, err := mgr.ListRuns("", runListLimit)
		return RunsLoadedMsg{
			Runs:  runs,
			Stats: mgr.GetStats(),
			Error: err,
		}
	}
}

// rescanCmd starts a background results scan. Imported runs arrive later
// as service events, followed by a ScanCompleteEvent.
func rescanCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		mgr.Rescan()
		return ScanRequestedMsg{}
	}
}

func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd blocks for the next service event. A closed
// channel ends the subscription.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

// deleteRunCmd removes a run from the store. Result files stay on disk.
func deleteRunCmd(mgr *services.Manager, runID string) tea.Cmd {
	return func() tea.Msg {
		err := mgr.DeleteRun(runID)
		return DeleteRunResultMsg{RunID: runID, Success: err == nil, Error: err}
	}
}

func copyToClipboardCmd(text string) tea.Cmd {
	return func() tea.Msg {
		err := clipboard.WriteAll(text)
		return ClipboardResultMsg{Success: err == nil, Error: err}
	}
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, DefaultNotificationDuration)
}

func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

func notifyWarningCmd(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message, DefaultNotificationDuration)
}

func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, infoDuration)
}
