// Package app is the terminal UI: the task drawer, the open project's
// working set, toasts for notices, and the generation overlay.
package app

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"

	"storyboard/internal/logging"
	"storyboard/internal/tracker"
	"storyboard/internal/types"
)

type TaskAPI interface {
	List() types.Snapshot
	Subscribe() (<-chan types.Snapshot, func())
	FetchAll(ctx context.Context) (types.Snapshot, error)
	Remove(ctx context.Context, id string) error
}

type ProjectAPI interface {
	Snapshot() types.WorkingSet
	Subscribe() (<-chan types.WorkingSet, func())
	InitProject(ctx context.Context, projectID string)
	RefreshAll(ctx context.Context)
}

type GenerationAPI interface {
	Session() types.GenerationSession
	Subscribe() (<-chan types.GenerationSession, func())
	Run(ctx context.Context, title, subText string, fn func(context.Context) error) error
	Cancel()
}

type SyncStatusAPI interface {
	Status() tracker.Status
	Subscribe() (<-chan tracker.Status, func())
}

// Deps are the long-lived services the UI renders and drives. Sync and
// Notices are optional.
type Deps struct {
	Tasks      TaskAPI
	Project    ProjectAPI
	Generation GenerationAPI
	Sync       SyncStatusAPI
	Notices    <-chan types.Notice
	ProjectID  string
	Keymap     *types.Keymap
	Logger     logging.Logger
}

func Run(ctx context.Context, deps Deps) error {
	model := NewModel(ctx, deps)
	defer model.Close()
	p := tea.NewProgram(model, tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
