// Package tasks mirrors the backend's task list and turns status changes
// into notices and data refreshes.
package tasks

import (
	"context"
	"sync"

	"storyboard/internal/hub"
	"storyboard/internal/logging"
	"storyboard/internal/notify"
	"storyboard/internal/types"
)

// Gateway is the slice of the backend client the registry needs.
type Gateway interface {
	ListTasks(ctx context.Context) (types.Snapshot, error)
	DeleteTask(ctx context.Context, id string) error
}

// Refresher reloads derived project data after background work lands.
type Refresher interface {
	RefreshAll(ctx context.Context)
}

type Registry struct {
	api     Gateway
	emitter notify.Emitter
	logger  logging.Logger

	mu        sync.RWMutex
	snapshot  types.Snapshot
	version   uint64
	refresher Refresher

	pubMu sync.Mutex
	hub   *hub.Hub[types.Snapshot]
}

type Option func(*Registry)

func WithEmitter(emitter notify.Emitter) Option {
	return func(r *Registry) {
		if emitter != nil {
			r.emitter = emitter
		}
	}
}

func WithRefresher(refresher Refresher) Option {
	return func(r *Registry) {
		r.refresher = refresher
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRegistry(api Gateway, opts ...Option) *Registry {
	r := &Registry{
		api:      api,
		emitter:  notify.Nop(),
		logger:   logging.Nop(),
		snapshot: types.Snapshot{},
		hub:      hub.New[types.Snapshot](8),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// SetRefresher wires the cascade target after construction.
func (r *Registry) SetRefresher(refresher Refresher) {
	r.mu.Lock()
	r.refresher = refresher
	r.mu.Unlock()
}

// FetchAll pulls the full task list and applies it. A pull that started
// before a newer snapshot was applied is discarded and the live snapshot is
// returned instead.
func (r *Registry) FetchAll(ctx context.Context) (types.Snapshot, error) {
	r.mu.RLock()
	startedAt := r.version
	r.mu.RUnlock()

	snapshot, err := r.api.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	if !r.apply(ctx, snapshot, &startedAt, "pull") {
		r.logger.Debug("tasks_stale_pull_discarded", logging.F("started_at", startedAt))
	}
	return r.List(), nil
}

// OnPush applies a snapshot delivered by the push channel. The snapshot
// replaces the stored one wholesale.
func (r *Registry) OnPush(ctx context.Context, snapshot types.Snapshot) {
	r.apply(ctx, snapshot, nil, "push")
}

// Remove deletes a finished task record and re-pulls the list. A record the
// backend no longer has counts as removed.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if err := r.api.DeleteTask(ctx, id); err != nil {
		return err
	}
	if _, err := r.FetchAll(ctx); err != nil {
		r.logger.Warn("tasks_repull_failed", logging.F("task_id", id), logging.Err(err))
	}
	return nil
}

func (r *Registry) List() types.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return types.CloneSnapshot(r.snapshot)
}

// ProcessingCount is the number of tasks still pending or processing.
func (r *Registry) ProcessingCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.InFlightCount()
}

// Subscribe delivers a copy of every applied snapshot.
func (r *Registry) Subscribe() (<-chan types.Snapshot, func()) {
	return r.hub.Add()
}

// apply diffs, swaps and then notifies outside the lock. guard, when set,
// is the version observed before fetching; the snapshot is dropped if
// anything was applied since.
func (r *Registry) apply(ctx context.Context, snapshot types.Snapshot, guard *uint64, source string) bool {
	next := types.CloneSnapshot(snapshot)

	r.mu.Lock()
	if guard != nil && r.version != *guard {
		r.mu.Unlock()
		return false
	}
	transitions := DetectTransitions(r.snapshot, next)
	r.snapshot = next
	r.version++
	refresher := r.refresher
	inFlight := next.InFlightCount()
	r.pubMu.Lock()
	r.mu.Unlock()
	r.hub.Broadcast(types.CloneSnapshot(next))
	r.pubMu.Unlock()

	r.logger.Debug("tasks_applied",
		logging.F("source", source),
		logging.F("tasks", len(next)),
		logging.F("in_flight", inFlight),
		logging.F("completed", len(transitions)),
	)

	if len(transitions) == 0 {
		return true
	}
	r.emitter.Emit(ctx, completedNotice(transitions))
	if refresher != nil {
		refresher.RefreshAll(ctx)
	}
	return true
}
