package app

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"

	"storyboard/internal/tracker"
	"storyboard/internal/types"
)

const tickInterval = 250 * time.Millisecond

type tickMsg time.Time

type tasksUpdatedMsg types.Snapshot

type workingSetMsg types.WorkingSet

type sessionMsg types.GenerationSession

type syncStatusMsg tracker.Status

type noticeMsg types.Notice

type taskClearedMsg struct {
	id  string
	err error
}

type refreshDoneMsg struct {
	err error
}

type projectLoadedMsg struct {
	projectID string
	err       error
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listenCmd waits for the next value on a subscription. It returns nil once
// the channel closes so the loop ends with it.
func listenCmd[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		value, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(value)
	}
}

func clearTaskCmd(ctx context.Context, api TaskAPI, id string) tea.Cmd {
	return func() tea.Msg {
		return taskClearedMsg{id: id, err: api.Remove(ctx, id)}
	}
}

func refreshCmd(ctx context.Context, tasks TaskAPI, project ProjectAPI) tea.Cmd {
	return func() tea.Msg {
		_, err := tasks.FetchAll(ctx)
		if project != nil {
			project.RefreshAll(ctx)
		}
		return refreshDoneMsg{err: err}
	}
}

// loadProjectCmd runs InitProject under the generation controller so the
// overlay shows while it loads and Esc aborts the pulls.
func loadProjectCmd(ctx context.Context, gen GenerationAPI, project ProjectAPI, projectID string) tea.Cmd {
	return func() tea.Msg {
		err := gen.Run(ctx, "Loading project", projectID, func(token context.Context) error {
			project.InitProject(token, projectID)
			return context.Cause(token)
		})
		return projectLoadedMsg{projectID: projectID, err: err}
	}
}
