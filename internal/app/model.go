// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/gatling-dashboard-tui/internal/services"
	"github.com/j-veylop/gatling-dashboard-tui/internal/ui/styles"
)

// TabID is the position of a tab in the navbar.
type TabID int

const (
	TabRuns TabID = iota
	TabTrends
	TabCompare
	TabInfo

	tabCount = int(TabInfo) + 1
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabRuns:
		return "Runs"
	case TabTrends:
		return "Trends"
	case TabCompare:
		return "Compare"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// KeyMap holds the global keys. Everything else belongs to the active tab.
type KeyMap struct {
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Tab4    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Rescan  key.Binding
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "runs")),
		Tab2:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "trends")),
		Tab3:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "compare")),
		Tab4:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "info")),
		NextTab: key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/→", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("shift+tab/←", "prev tab")),
		Rescan:  key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "rescan results")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Escape:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close help")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Rescan, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4},
		{k.NextTab, k.PrevTab},
		{k.Rescan, k.Help, k.Quit},
	}
}

// Styles are the chrome around the tabs: navbar, notifications, help.
type Styles struct {
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style

	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	Content   lipgloss.Style
	Toast     lipgloss.Style
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
}

func DefaultStyles() Styles {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return Styles{
		TabBar: lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).BorderForeground(styles.Subtle),
		ActiveTab:   fg(styles.Primary).Bold(true).Padding(0, 2),
		InactiveTab: fg(styles.TextSecondary).Padding(0, 2),

		NotificationSuccess: fg(styles.OK).Padding(0, 1),
		NotificationError:   fg(styles.KO).Bold(true).Padding(0, 1),
		NotificationWarning: fg(styles.Warn).Padding(0, 1),
		NotificationInfo:    fg(styles.Info).Padding(0, 1),

		Content:   lipgloss.NewStyle().Padding(1, 2),
		Toast:     styles.ToastStyle,
		Title:     fg(styles.Primary).Bold(true),
		Subtle:    fg(styles.Subtle),
		Highlight: fg(styles.Primary),
	}
}

// Model is the main application model.
type Model struct {
	// Tab management
	activeTab TabID
	tabs      []Tab
	tabNames  []string

	// Shared state
	state    *State
	services *services.Manager
	keymap   KeyMap
	styles   Styles

	// UI components
	spinner spinner.Model

	// Window dimensions
	width  int
	height int

	// UI state
	showHelp bool
	ready    bool

	// Service subscription
	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Model{
		activeTab: TabRuns,
		tabNames:  []string{"Runs", "Trends", "Compare", "Info"},
		// Filled by SetTabs; nil entries render a placeholder.
		tabs:     make([]Tab, tabCount),
		state:    NewState(),
		services: mgr,
		keymap:   DefaultKeyMap(),
		styles:   DefaultStyles(),
		spinner:  s,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	m.state.SetLoadingNotification("Loading runs...")

	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services))
		cmds = append(cmds, loadRunsCmd(m.services))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg, tea.KeyMsg, spinner.TickMsg:
		if cmd := m.handleTeaMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	default:
		if appCmds := m.handleAppMsg(msg); len(appCmds) > 0 {
			cmds = append(cmds, appCmds...)
		}
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleTeaMsg(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case spinner.TickMsg:
		return m.handleSpinnerTick(msg)
	}
	return nil
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		cmds = append(cmds, m.handleTick())
	case SubscriptionEventMsg:
		cmds = append(cmds, m.handleSubscriptionEvent(msg)...)
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEventMsg(msg)...)
	case RunsLoadedMsg:
		cmds = append(cmds, m.handleRunsLoaded(msg)...)
	case ScanRequestedMsg:
		m.state.SetLoading("scan", true)
		m.state.SetLoadingNotification("Scanning results...")
	case SelectedRunChangedMsg:
		m.state.SetSelectedRun(msg.Index, msg.RunID)
	case DeleteRunMsg:
		if m.services != nil {
			cmds = append(cmds, deleteRunCmd(m.services, msg.RunID))
		}
	case DeleteRunResultMsg:
		cmds = append(cmds, m.handleDeleteRunResult(msg)...)
	case CopyToClipboardMsg:
		cmds = append(cmds, copyToClipboardCmd(msg.Text))
	case ClipboardResultMsg:
		cmds = append(cmds, m.handleClipboardResult(msg))
	case AddNotificationMsg:
		cmds = append(cmds, m.handleAddNotification(msg)...)
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()
	}
	return cmds
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

func (m *Model) handleSpinnerTick(msg spinner.TickMsg) tea.Cmd {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return cmd
}

func (m *Model) handleTick() tea.Cmd {
	m.state.ClearExpiredNotifications()
	return defaultTickCmd()
}

func (m *Model) handleSubscriptionEvent(msg SubscriptionEventMsg) []tea.Cmd {
	var cmds []tea.Cmd
	m.eventChannel = msg.Channel
	cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	if m.services != nil {
		cmds = append(cmds, loadRunsCmd(m.services))
	}
	return cmds
}

func (m *Model) handleServiceEventMsg(msg ServiceEventMsg) []tea.Cmd {
	var cmds []tea.Cmd
	if cmd := m.handleServiceEvent(msg.Event); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.eventChannel != nil {
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	}
	return cmds
}

func (m *Model) handleRunsLoaded(msg RunsLoadedMsg) []tea.Cmd {
	m.state.SetLoading("initial", false)
	if msg.Error != nil {
		m.state.ClearLoadingNotification()
		return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("Failed to load runs: %v", msg.Error))}
	}
	m.state.SetRuns(msg.Runs)
	m.state.SetStats(msg.Stats)
	if !m.state.AnyLoading() {
		m.state.ClearLoadingNotification()
	}
	return nil
}

func (m *Model) handleDeleteRunResult(msg DeleteRunResultMsg) []tea.Cmd {
	var cmds []tea.Cmd
	if msg.Success {
		cmds = append(cmds, notifySuccessCmd(fmt.Sprintf("Deleted run %s", msg.RunID)))
		if m.services != nil {
			cmds = append(cmds, loadRunsCmd(m.services))
		}
	} else {
		cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("Failed to delete run: %v", msg.Error)))
	}
	return cmds
}

func (m *Model) handleClipboardResult(msg ClipboardResultMsg) tea.Cmd {
	if msg.Success {
		return notifyInfoCmd("Copied to clipboard")
	}
	return notifyErrorCmd(fmt.Sprintf("Failed to copy: %v", msg.Error))
}

func (m *Model) handleAddNotification(msg AddNotificationMsg) []tea.Cmd {
	var cmds []tea.Cmd
	id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
	if msg.Duration > 0 {
		cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
	}
	return cmds
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateTabSizes() {
	contentHeight := m.height - 5
	contentHeight = max(0, contentHeight)

	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

// quit releases the service subscription and ends the program.
func (m *Model) quit() tea.Cmd {
	if m.eventChannel != nil && m.services != nil {
		m.services.Unsubscribe(m.eventChannel)
		m.eventChannel = nil
	}
	return tea.Quit
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	// A tab prompt owns every key but ctrl+c
	if m.tabCapturesInput() {
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		return nil
	}

	// Global keybindings (work regardless of tab)
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m.quit()

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return nil

	case key.Matches(msg, m.keymap.Tab1):
		return m.switchTab(TabRuns)

	case key.Matches(msg, m.keymap.Tab2):
		return m.switchTab(TabTrends)

	case key.Matches(msg, m.keymap.Tab3):
		return m.switchTab(TabCompare)

	case key.Matches(msg, m.keymap.Tab4):
		return m.switchTab(TabInfo)

	case key.Matches(msg, m.keymap.NextTab):
		if !m.showHelp && !m.tabCapturesInput() {
			return m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs)))
		}
		return nil

	case key.Matches(msg, m.keymap.PrevTab):
		if !m.showHelp && !m.tabCapturesInput() {
			return m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs)))
		}
		return nil

	case key.Matches(msg, m.keymap.Rescan):
		if m.services != nil && !m.state.IsScanning() {
			return rescanCmd(m.services)
		}
		return nil

	case key.Matches(msg, m.keymap.Escape):
		if m.showHelp {
			m.showHelp = false
			return nil
		}
	}

	// Let the tab handle other keys
	return nil
}

// switchTab activates tab and lets the tab react to becoming visible.
func (m *Model) switchTab(tab TabID) tea.Cmd {
	m.activeTab = tab
	m.updateTabSizes()
	return func() tea.Msg { return TabSwitchMsg{Tab: tab} }
}

// InputCapturer is implemented by tabs that can own the keyboard, such as
// while a filter prompt is open.
type InputCapturer interface {
	CapturesInput() bool
}

func (m *Model) tabCapturesInput() bool {
	if int(m.activeTab) >= len(m.tabs) || m.tabs[m.activeTab] == nil {
		return false
	}
	c, ok := m.tabs[m.activeTab].(InputCapturer)
	return ok && c.CapturesInput()
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.RunsChangedEvent:
		m.state.SetRuns(e.Runs)

	case services.ScanCompleteEvent:
		wasScanning := m.state.IsScanning()
		m.state.SetLoading("scan", false)
		if !m.state.AnyLoading() {
			m.state.ClearLoadingNotification()
		}
		if wasScanning && e.Imported == 0 {
			return notifyInfoCmd("No new runs")
		}

	case services.RunImportedEvent:
		cmds := []tea.Cmd{notifySuccessCmd(fmt.Sprintf("Imported %s", e.Run.ID))}
		if len(e.Issues) > 0 {
			cmds = append(cmds, notifyWarningCmd(fmt.Sprintf("%s: %d inconsistent stats", e.Run.ID, len(e.Issues))))
		}
		return tea.Batch(cmds...)

	case services.RegressionEvent:
		regressed := e.Comparison.Regressions()
		return notifyWarningCmd(fmt.Sprintf("%s regressed on %d request(s) vs %s",
			e.Comparison.Candidate.ID, len(regressed), e.Comparison.Baseline.ID))

	case services.AssertionFailedEvent:
		return notifyErrorCmd(fmt.Sprintf("%s failed %d assertion(s)", e.RunID, len(e.Failed)))

	case services.ErrorEvent:
		return notifyErrorCmd(fmt.Sprintf("[%s] %v", e.Service, e.Error))

	case services.StatsEvent:
		m.state.SetStats(e)
	}

	return nil
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	} else {
		b.WriteString(m.renderPlaceholder())
	}

	mainView := b.String()

	if m.showHelp {
		// Render help modal
		helpView := m.renderHelp()
		mainView = m.overlayCentered(mainView, helpView)
	}

	notifications := m.renderNotifications()

	if len(notifications) > 0 {
		return m.overlayToasts(mainView, notifications)
	}

	return mainView
}

// overlayAt draws overlay over base with its top-left corner at (x, y).
// Cells of base left and right of the overlay are kept.
func overlayAt(base, overlay string, x, y int) string {
	baseLines := strings.Split(base, "\n")
	overlayWidth := lipgloss.Width(overlay)

	for i, line := range strings.Split(overlay, "\n") {
		row := y + i
		if row >= len(baseLines) {
			break
		}
		under := baseLines[row]
		left := ansi.Truncate(under, x, "")
		if w := lipgloss.Width(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		baseLines[row] = left + line + ansi.TruncateLeft(under, x+overlayWidth, "")
	}

	return strings.Join(baseLines, "\n")
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	x := max((m.width-lipgloss.Width(overlay))/2, 0)
	y := max((m.height-lipgloss.Height(overlay))/2, 0)
	return overlayAt(mainView, overlay, x, y)
}

func (m *Model) renderNavbar() string {
	tabs := make([]string, 0, len(m.tabNames))
	for i, name := range m.tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	status := m.renderStatus()
	if gap := m.width - lipgloss.Width(bar) - lipgloss.Width(status) - 4; gap > 0 {
		bar += strings.Repeat(" ", gap) + status
	}

	return m.styles.TabBar.Width(m.width).Render(bar)
}

// renderStatus summarises the store on the right of the navbar.
func (m *Model) renderStatus() string {
	runs := len(m.state.GetRuns())
	status := fmt.Sprintf("%d runs", runs)
	if runs == 1 {
		status = "1 run"
	}
	if m.state.IsScanning() {
		return m.spinner.View() + " " + m.styles.Highlight.Render("scanning") + m.styles.Subtle.Render(" | "+status)
	}
	return m.styles.Subtle.Render(status)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	var toasts []string
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		text := fmt.Sprintf("%s %s", prefix, n.Message)
		if n.Count > 1 {
			text += fmt.Sprintf(" (x%d)", n.Count)
		}
		content := style.Render(text)
		toast := m.styles.Toast.Render(content)
		toasts = append(toasts, toast)
	}

	return toasts
}

// overlayToasts stacks toasts in the top right corner, under the navbar.
func (m *Model) overlayToasts(mainView string, toasts []string) string {
	if len(toasts) == 0 {
		return mainView
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	x := max(m.width-lipgloss.Width(stack)-2, 0)
	return overlayAt(mainView, stack, x, 2)
}

func (m *Model) renderHelp() string {
	lines := []string{m.styles.Title.Render("Keyboard Shortcuts"), ""}

	section := func(title string, groups [][]key.Binding) {
		lines = append(lines, m.styles.Highlight.Render(title))
		for _, group := range groups {
			for _, b := range group {
				h := b.Help()
				lines = append(lines, fmt.Sprintf("  %-12s %s", h.Key, h.Desc))
			}
		}
		lines = append(lines, "")
	}

	section("Global", m.keymap.FullHelp())
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		if groups := m.tabs[m.activeTab].FullHelp(); len(groups) > 0 {
			section(m.tabNames[m.activeTab], groups)
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))
	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder() string {
	content := fmt.Sprintf(
		"Tab %d: %s\n\n%s",
		m.activeTab+1,
		m.tabNames[m.activeTab],
		m.styles.Subtle.Render("This tab is not yet implemented."),
	)
	return m.styles.Content.Render(content)
}
