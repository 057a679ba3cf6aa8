package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"storyboard/internal/app/sanitizer"
	"storyboard/internal/client"
	"storyboard/internal/generation"
	"storyboard/internal/logging"
	"storyboard/internal/tracker"
	"storyboard/internal/types"
)

const (
	defaultWidth    = 100
	defaultHeight   = 30
	minDrawerRows   = 3
	panelScrollStep = 3
)

type Model struct {
	ctx        context.Context
	tasks      TaskAPI
	project    ProjectAPI
	generation GenerationAPI
	sync       SyncStatusAPI
	notices    <-chan types.Notice
	projectID  string
	logger     logging.Logger
	now        func() time.Time

	taskCh      <-chan types.Snapshot
	wsCh        <-chan types.WorkingSet
	sessionCh   <-chan types.GenerationSession
	syncCh      <-chan tracker.Status
	unsubscribe []func()

	snapshot   types.Snapshot
	ws         types.WorkingSet
	session    types.GenerationSession
	syncStatus tracker.Status

	width    int
	height   int
	selected int
	loader   spinner.Model
	panel    *ProjectPanel
	confirm  *ConfirmController
	keymap   *types.Keymap

	status     string
	toastText  string
	toastLevel toastLevel
	toastUntil time.Time
}

// NewModel subscribes to every service up front so nothing published
// between construction and Init is lost. Close releases the subscriptions.
func NewModel(ctx context.Context, deps Deps) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	keymap := deps.Keymap
	if keymap == nil {
		keymap = types.DefaultKeymap()
	}
	m := &Model{
		ctx:        ctx,
		keymap:     keymap,
		tasks:      deps.Tasks,
		project:    deps.Project,
		generation: deps.Generation,
		sync:       deps.Sync,
		notices:    deps.Notices,
		projectID:  strings.TrimSpace(deps.ProjectID),
		logger:     logger,
		now:        time.Now,
		width:      defaultWidth,
		height:     defaultHeight,
		loader:     spinner.New(spinner.WithSpinner(spinner.Line), spinner.WithStyle(loadingStyle)),
		confirm:    NewConfirmController(),
	}
	m.panel = NewProjectPanel(m.width, m.panelHeight())
	if m.tasks != nil {
		m.snapshot = m.tasks.List()
		m.taskCh = subscribeTo(m, m.tasks.Subscribe)
	}
	if m.project != nil {
		m.ws = m.project.Snapshot()
		m.panel.SetWorkingSet(m.ws)
		m.wsCh = subscribeTo(m, m.project.Subscribe)
	}
	if m.generation != nil {
		m.session = m.generation.Session()
		m.sessionCh = subscribeTo(m, m.generation.Subscribe)
	}
	if m.sync != nil {
		m.syncStatus = m.sync.Status()
		m.syncCh = subscribeTo(m, m.sync.Subscribe)
	}
	return m
}

func subscribeTo[T any](m *Model, fn func() (<-chan T, func())) <-chan T {
	ch, cancel := fn()
	m.unsubscribe = append(m.unsubscribe, cancel)
	return ch
}

func (m *Model) Close() {
	for _, cancel := range m.unsubscribe {
		if cancel != nil {
			cancel()
		}
	}
	m.unsubscribe = nil
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(),
		m.listenTasks(),
		m.listenWorkingSet(),
		m.listenSession(),
		m.listenSync(),
		m.listenNotices(),
	}
	if m.tasks != nil {
		cmds = append(cmds, refreshCmd(m.ctx, m.tasks, nil))
	}
	if m.projectID != "" && m.project != nil && m.generation != nil {
		cmds = append(cmds, loadProjectCmd(m.ctx, m.generation, m.project, m.projectID))
	}
	return tea.Batch(cmds...)
}

func (m *Model) listenTasks() tea.Cmd {
	return listenCmd(m.taskCh, func(s types.Snapshot) tea.Msg { return tasksUpdatedMsg(s) })
}

func (m *Model) listenWorkingSet() tea.Cmd {
	return listenCmd(m.wsCh, func(ws types.WorkingSet) tea.Msg { return workingSetMsg(ws) })
}

func (m *Model) listenSession() tea.Cmd {
	return listenCmd(m.sessionCh, func(s types.GenerationSession) tea.Msg { return sessionMsg(s) })
}

func (m *Model) listenSync() tea.Cmd {
	return listenCmd(m.syncCh, func(s tracker.Status) tea.Msg { return syncStatusMsg(s) })
}

func (m *Model) listenNotices() tea.Cmd {
	return listenCmd(m.notices, func(n types.Notice) tea.Msg { return noticeMsg(n) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	case tickMsg:
		m.handleTick(msg)
		return m, tickCmd()
	case spinner.TickMsg:
		if !m.session.Active {
			return m, nil
		}
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		return m, cmd
	case tasksUpdatedMsg:
		m.applySnapshot(types.Snapshot(msg))
		return m, m.listenTasks()
	case workingSetMsg:
		m.ws = types.WorkingSet(msg)
		m.panel.SetWorkingSet(m.ws)
		return m, m.listenWorkingSet()
	case sessionMsg:
		wasActive := m.session.Active
		m.session = types.GenerationSession(msg)
		cmds := []tea.Cmd{m.listenSession()}
		if m.session.Active && !wasActive {
			cmds = append(cmds, m.loader.Tick)
		}
		return m, tea.Batch(cmds...)
	case syncStatusMsg:
		m.syncStatus = tracker.Status(msg)
		return m, m.listenSync()
	case noticeMsg:
		m.showNotice(types.Notice(msg))
		return m, m.listenNotices()
	case taskClearedMsg:
		if msg.err != nil {
			m.status = "clear failed: " + client.UserMessage(msg.err)
			return m, nil
		}
		m.setStatusInfo("cleared task " + msg.id)
		return m, nil
	case refreshDoneMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + client.UserMessage(msg.err)
		}
		return m, nil
	case projectLoadedMsg:
		m.handleProjectLoaded(msg)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleTick(msg tickMsg) {
	if m.toastText != "" && !m.toastActive(time.Time(msg)) {
		m.clearToast()
	}
}

func (m *Model) handleProjectLoaded(msg projectLoadedMsg) {
	switch {
	case msg.err == nil:
		m.status = "project " + msg.projectID + " loaded"
	case errors.Is(msg.err, generation.ErrCancelledByUser):
		m.setStatusWarning("project load cancelled")
	case errors.Is(msg.err, generation.ErrSuperseded):
		// a newer load owns the overlay now
	default:
		m.status = "project load failed: " + client.UserMessage(msg.err)
	}
}

func (m *Model) applySnapshot(snapshot types.Snapshot) {
	m.snapshot = snapshot
	if m.selected >= len(snapshot) {
		m.selected = len(snapshot) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit
	}
	if m.session.Active {
		// The overlay is modal; only Esc gets through.
		if key == "esc" && m.generation != nil {
			m.generation.Cancel()
		}
		return nil
	}
	if m.confirm.IsOpen() {
		return m.handleConfirmKey(msg)
	}
	action, ok := m.keymap.Action(key)
	if !ok {
		return nil
	}
	switch action {
	case types.KeyActionQuit:
		return tea.Quit
	case types.KeyActionMoveUp:
		if m.selected > 0 {
			m.selected--
		}
	case types.KeyActionMoveDown:
		if m.selected < len(m.snapshot)-1 {
			m.selected++
		}
	case types.KeyActionScrollUp:
		m.panel.ScrollUp(panelScrollStep)
	case types.KeyActionScrollDown:
		m.panel.ScrollDown(panelScrollStep)
	case types.KeyActionRefresh:
		if m.tasks == nil {
			return nil
		}
		m.status = "refreshing…"
		return refreshCmd(m.ctx, m.tasks, m.project)
	case types.KeyActionReloadProject:
		return m.reloadProject()
	case types.KeyActionClearTask:
		m.requestClear()
	case types.KeyActionCopyTaskID:
		if task := m.selectedTask(); task != nil {
			m.copyWithStatus(task.ID, "copied task id "+task.ID)
		}
	}
	return nil
}

func (m *Model) handleConfirmKey(msg tea.KeyPressMsg) tea.Cmd {
	_, choice := m.confirm.HandleKey(msg)
	switch choice {
	case confirmChoiceConfirm:
		id := m.confirm.Subject()
		m.confirm.Close()
		if id == "" || m.tasks == nil {
			return nil
		}
		m.status = "clearing " + id + "…"
		return clearTaskCmd(m.ctx, m.tasks, id)
	case confirmChoiceCancel:
		m.confirm.Close()
	}
	return nil
}

func (m *Model) requestClear() {
	task := m.selectedTask()
	if task == nil {
		return
	}
	if !task.Status.Terminal() {
		m.setStatusWarning("task " + task.ID + " is still " + string(task.Status))
		return
	}
	message := fmt.Sprintf("Clear %s task %s?", task.Status, task.ID)
	if desc := sanitizer.Line(task.Desc); desc != "" {
		message += " " + desc
	}
	m.confirm.Open("Clear task", message, "Clear", "Keep", task.ID)
}

func (m *Model) reloadProject() tea.Cmd {
	projectID := m.projectID
	if m.ws.ProjectID != "" {
		projectID = m.ws.ProjectID
	}
	if projectID == "" || m.project == nil || m.generation == nil {
		m.setStatusWarning("no project to reload")
		return nil
	}
	return loadProjectCmd(m.ctx, m.generation, m.project, projectID)
}

func (m *Model) selectedTask() *types.Task {
	if m.selected < 0 || m.selected >= len(m.snapshot) {
		return nil
	}
	return m.snapshot[m.selected]
}

func (m *Model) resize(width, height int) {
	m.width = max(20, width)
	m.height = max(10, height)
	m.panel.Resize(m.width, m.panelHeight())
	m.panel.SetWorkingSet(m.ws)
}

// panelHeight leaves room for the header, the drawer and the footer.
func (m *Model) panelHeight() int {
	return max(3, m.height-m.drawerRows()-6)
}

func (m *Model) drawerRows() int {
	return max(minDrawerRows, m.height/3)
}

func (m *Model) View() tea.View {
	view := tea.NewView(m.render())
	view.AltScreen = true
	return view
}

func (m *Model) render() string {
	if m.session.Active {
		return m.renderOverlay()
	}
	body := strings.Join([]string{
		m.renderHeader(),
		m.renderDrawer(),
		dividerStyle.Render(strings.Repeat("─", m.width)),
		m.panel.View(),
	}, "\n")
	if m.confirm.IsOpen() {
		dialog, _ := m.confirm.View(m.width, m.height)
		body = body + "\n" + dialog
	}
	return body + "\n" + m.renderFooter()
}

func (m *Model) renderHeader() string {
	left := headerStyle.Render("storyboard")
	if m.ws.Project != nil && m.ws.Project.Name != "" {
		left += " " + statusStyle.Render(sanitizer.Line(m.ws.Project.Name))
	}
	inFlight := m.snapshot.InFlightCount()
	right := fmt.Sprintf("%d in flight", inFlight)
	if inFlight > 0 {
		right = taskProcessingStyle.Render(right)
	} else {
		right = statusStyle.Render(right)
	}
	if m.sync != nil {
		right += "  " + m.renderSyncStatus()
	}
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderSyncStatus() string {
	if m.syncStatus.Connected {
		return connectedStyle.Render("● live")
	}
	label := "○ polling"
	if m.syncStatus.Reconnects > 0 {
		label = fmt.Sprintf("○ reconnecting (%d)", m.syncStatus.Reconnects)
	}
	return disconnectedStyle.Render(label)
}

func (m *Model) renderDrawer() string {
	rows := m.drawerRows()
	lines := []string{sectionStyle.Render(renderTaskHeader(m.width))}
	if len(m.snapshot) == 0 {
		lines = append(lines, statusStyle.Render("no tasks"))
		return strings.Join(lines, "\n")
	}
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	end := min(len(m.snapshot), start+rows)
	for i := start; i < end; i++ {
		task := m.snapshot[i]
		if task == nil {
			continue
		}
		row := renderTaskRow(task, m.width)
		if i == m.selected {
			row = selectedStyle.Render(row)
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderOverlay() string {
	elapsed := ""
	if !m.session.StartedAt.IsZero() {
		elapsed = " " + m.now().Sub(m.session.StartedAt).Truncate(time.Second).String()
	}
	title := m.session.Title
	if title == "" {
		title = "Working"
	}
	lines := []string{overlayTitleStyle.Render(m.loader.View() + " " + title + elapsed)}
	if sub := sanitizer.Line(m.session.SubText); sub != "" {
		lines = append(lines, overlaySubStyle.Render(truncateToWidth(sub, max(1, m.width-12))))
	}
	lines = append(lines, "", helpStyle.Render("esc to cancel"))
	box := overlayBorderStyle.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderFooter() string {
	help := helpStyle.Render(truncateToWidth(m.helpLine(), m.width))
	lines := []string{}
	if toast := m.toastLine(m.width); toast != "" {
		lines = append(lines, toast)
	} else if m.status != "" {
		lines = append(lines, statusStyle.Render(truncateToWidth(m.status, m.width)))
	}
	lines = append(lines, help)
	return strings.Join(lines, "\n")
}

var helpEntries = []struct {
	action string
	label  string
}{
	{types.KeyActionClearTask, "clear"},
	{types.KeyActionCopyTaskID, "copy id"},
	{types.KeyActionRefresh, "refresh"},
	{types.KeyActionReloadProject, "reload"},
	{types.KeyActionScrollDown, "scroll"},
	{types.KeyActionQuit, "quit"},
}

func (m *Model) helpLine() string {
	parts := []string{"↑/↓ select"}
	for _, entry := range helpEntries {
		if key := m.keymap.Key(entry.action); key != "" {
			parts = append(parts, key+" "+entry.label)
		}
	}
	return strings.Join(parts, "  ")
}
