package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	xansi "github.com/charmbracelet/x/ansi"

	"storyboard/internal/generation"
	"storyboard/internal/hub"
	"storyboard/internal/types"
)

type fakeTasks struct {
	mu       sync.Mutex
	snapshot types.Snapshot
	removed  []string
	fetches  int
	hub      *hub.Hub[types.Snapshot]
}

func newFakeTasks(snapshot types.Snapshot) *fakeTasks {
	return &fakeTasks{snapshot: snapshot, hub: hub.New[types.Snapshot](4)}
}

func (f *fakeTasks) List() types.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.CloneSnapshot(f.snapshot)
}

func (f *fakeTasks) Subscribe() (<-chan types.Snapshot, func()) { return f.hub.Add() }

func (f *fakeTasks) FetchAll(context.Context) (types.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return types.CloneSnapshot(f.snapshot), nil
}

func (f *fakeTasks) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

type blockingProject struct {
	ws      types.WorkingSet
	hub     *hub.Hub[types.WorkingSet]
	started chan struct{}
}

func newBlockingProject() *blockingProject {
	return &blockingProject{hub: hub.New[types.WorkingSet](4), started: make(chan struct{}, 1)}
}

func (p *blockingProject) Snapshot() types.WorkingSet                    { return p.ws }
func (p *blockingProject) Subscribe() (<-chan types.WorkingSet, func()) { return p.hub.Add() }
func (p *blockingProject) RefreshAll(context.Context)                    {}

func (p *blockingProject) InitProject(ctx context.Context, _ string) {
	p.started <- struct{}{}
	<-ctx.Done()
}

func key(text string) tea.KeyPressMsg {
	r := []rune(text)
	return tea.KeyPressMsg{Code: r[0], Text: text}
}

func plainView(m *Model) string {
	return xansi.Strip(fmt.Sprint(m.View().Content))
}

func sampleSnapshot() types.Snapshot {
	return types.Snapshot{
		{ID: "t-run", Status: types.TaskStatusProcessing, Kind: "scene_image", Desc: "shot 1"},
		{ID: "t-done", Status: types.TaskStatusSuccess, Kind: "fusion_video", Desc: "fusion 2"},
	}
}

func TestViewShowsTaskDrawerAndInFlightCount(t *testing.T) {
	m := NewModel(context.Background(), Deps{Tasks: newFakeTasks(sampleSnapshot())})
	defer m.Close()
	m.resize(120, 30)

	plain := plainView(m)
	for _, want := range []string{"1 in flight", "t-run", "t-done", "processing", "No project open"} {
		if !strings.Contains(plain, want) {
			t.Fatalf("expected %q in view: %q", want, plain)
		}
	}
}

func TestTaskUpdatesClampSelection(t *testing.T) {
	tasks := newFakeTasks(sampleSnapshot())
	m := NewModel(context.Background(), Deps{Tasks: tasks})
	defer m.Close()

	m.Update(key("j"))
	if m.selected != 1 {
		t.Fatalf("expected selection 1, got %d", m.selected)
	}
	_, cmd := m.Update(tasksUpdatedMsg(types.Snapshot{{ID: "only", Status: types.TaskStatusPending}}))
	if m.selected != 0 {
		t.Fatalf("expected selection clamped to 0, got %d", m.selected)
	}
	if cmd == nil {
		t.Fatalf("expected the task subscription to be re-armed")
	}
}

func TestClearRefusesInFlightTask(t *testing.T) {
	tasks := newFakeTasks(sampleSnapshot())
	m := NewModel(context.Background(), Deps{Tasks: tasks})
	defer m.Close()

	m.Update(key("d"))
	if m.confirm.IsOpen() {
		t.Fatalf("expected no confirm dialog for a processing task")
	}
	if m.toastLevel != toastLevelWarning || !strings.Contains(m.toastText, "still processing") {
		t.Fatalf("expected warning toast, got %v %q", m.toastLevel, m.toastText)
	}
}

func TestClearFinishedTaskAfterConfirm(t *testing.T) {
	tasks := newFakeTasks(sampleSnapshot())
	m := NewModel(context.Background(), Deps{Tasks: tasks})
	defer m.Close()

	m.Update(key("j"))
	m.Update(key("d"))
	if !m.confirm.IsOpen() || m.confirm.Subject() != "t-done" {
		t.Fatalf("expected confirm dialog for t-done")
	}
	if plain := plainView(m); !strings.Contains(plain, "Clear task") {
		t.Fatalf("expected dialog in view: %q", plain)
	}
	_, cmd := m.Update(key("y"))
	if cmd == nil {
		t.Fatalf("expected clear command")
	}
	msg := cmd()
	m.Update(msg)
	if len(tasks.removed) != 1 || tasks.removed[0] != "t-done" {
		t.Fatalf("expected t-done removed, got %v", tasks.removed)
	}
	if m.confirm.IsOpen() {
		t.Fatalf("expected dialog closed")
	}
	if !strings.Contains(m.toastText, "cleared task t-done") {
		t.Fatalf("expected cleared toast, got %q", m.toastText)
	}
}

func TestNoticeBecomesToast(t *testing.T) {
	notices := make(chan types.Notice, 1)
	m := NewModel(context.Background(), Deps{Notices: notices})
	defer m.Close()
	m.resize(120, 30)

	_, cmd := m.Update(noticeMsg(types.Notice{
		Level:   types.NotificationLevelSuccess,
		Title:   "Task completed",
		Message: "Background tasks finished, data refreshed",
	}))
	if cmd == nil {
		t.Fatalf("expected notice subscription to be re-armed")
	}
	if plain := plainView(m); !strings.Contains(plain, "Task completed: Background tasks finished") {
		t.Fatalf("expected toast in view: %q", plain)
	}

	m.Update(noticeMsg(types.Notice{Level: types.NotificationLevelError, Title: "Request failed", Message: "quota exceeded"}))
	if m.toastLevel != toastLevelError {
		t.Fatalf("expected error toast, got %v", m.toastLevel)
	}
}

func TestHandleTickClearsExpiredToast(t *testing.T) {
	m := NewModel(context.Background(), Deps{})
	defer m.Close()
	m.setStatusWarning("task t1 is still pending")

	m.handleTick(tickMsg(time.Now().Add(toastDuration + time.Millisecond)))
	if m.toastText != "" {
		t.Fatalf("expected toast to clear after expiry, got %q", m.toastText)
	}
	if m.status == "" {
		t.Fatalf("expected status line to outlive the toast")
	}
}

func TestCopyTaskID(t *testing.T) {
	origWriteAll := clipboardWriteAll
	t.Cleanup(func() { clipboardWriteAll = origWriteAll })
	var copied string
	clipboardWriteAll = func(text string) error {
		copied = text
		return nil
	}

	m := NewModel(context.Background(), Deps{Tasks: newFakeTasks(sampleSnapshot())})
	defer m.Close()
	m.Update(key("y"))
	if copied != "t-run" {
		t.Fatalf("expected t-run copied, got %q", copied)
	}
}

func TestOverlayIsModalAndEscCancels(t *testing.T) {
	gen := generation.NewController(nil)
	project := newBlockingProject()
	m := NewModel(context.Background(), Deps{
		Tasks:      newFakeTasks(sampleSnapshot()),
		Project:    project,
		Generation: gen,
	})
	defer m.Close()
	m.resize(100, 24)

	cmd := m.reloadProject()
	if cmd != nil {
		t.Fatalf("expected no reload without a project id")
	}

	m.projectID = "p1"
	done := make(chan tea.Msg, 1)
	go func() { done <- loadProjectCmd(context.Background(), gen, project, "p1")() }()
	<-project.started

	m.Update(sessionMsg(gen.Session()))
	if !m.session.Active {
		t.Fatalf("expected overlay active")
	}
	plain := plainView(m)
	if !strings.Contains(plain, "Loading project") || !strings.Contains(plain, "esc to cancel") {
		t.Fatalf("expected overlay in view: %q", plain)
	}

	m.Update(key("d"))
	if m.confirm.IsOpen() {
		t.Fatalf("expected keys other than esc to be swallowed by the overlay")
	}

	m.Update(tea.KeyPressMsg{Code: tea.KeyEsc})
	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected load to end after cancel")
	}
	loaded, ok := msg.(projectLoadedMsg)
	if !ok || !errors.Is(loaded.err, generation.ErrCancelledByUser) {
		t.Fatalf("expected user cancellation, got %#v", msg)
	}
	if gen.Active() {
		t.Fatalf("expected controller idle after cancel")
	}
	m.Update(sessionMsg(gen.Session()))
	m.Update(loaded)
	if m.session.Active || !strings.Contains(m.toastText, "cancelled") {
		t.Fatalf("expected overlay hidden and cancel toast, got active=%v toast=%q", m.session.Active, m.toastText)
	}
}

func TestRefreshKeyPullsTasks(t *testing.T) {
	tasks := newFakeTasks(nil)
	m := NewModel(context.Background(), Deps{Tasks: tasks})
	defer m.Close()

	_, cmd := m.Update(key("r"))
	if cmd == nil {
		t.Fatalf("expected refresh command")
	}
	if _, ok := cmd().(refreshDoneMsg); !ok {
		t.Fatalf("expected refreshDoneMsg")
	}
	if tasks.fetches != 1 {
		t.Fatalf("expected one fetch, got %d", tasks.fetches)
	}
}

func TestCustomKeymapRebindsActions(t *testing.T) {
	keymap, err := types.DefaultKeymap().WithOverrides(map[string]string{types.KeyActionClearTask: "x"})
	if err != nil {
		t.Fatalf("WithOverrides: %v", err)
	}
	m := NewModel(context.Background(), Deps{Tasks: newFakeTasks(sampleSnapshot()), Keymap: keymap})
	defer m.Close()
	m.resize(160, 30)

	m.Update(key("j"))
	m.Update(key("d"))
	if m.confirm.IsOpen() {
		t.Fatalf("expected d to be unbound")
	}
	m.Update(key("x"))
	if !m.confirm.IsOpen() {
		t.Fatalf("expected x to open the clear dialog")
	}
	if !strings.Contains(m.helpLine(), "x clear") {
		t.Fatalf("expected help to follow the keymap: %q", m.helpLine())
	}
}
