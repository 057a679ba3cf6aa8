// Package project caches the working set of the currently open project.
package project

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"storyboard/internal/hub"
	"storyboard/internal/logging"
	"storyboard/internal/store"
	"storyboard/internal/types"
)

// Gateway is the slice of the backend client the cache reads from.
type Gateway interface {
	GetProject(ctx context.Context, projectID string) (*types.Project, error)
	ListCharacters(ctx context.Context, projectID string) ([]*types.Character, error)
	ListShots(ctx context.Context, projectID string) ([]*types.Shot, error)
	ListFusions(ctx context.Context, projectID string) ([]*types.Fusion, error)
}

// Cache holds the one working set. Every write goes through its methods and
// is followed by a broadcast of the new state.
type Cache struct {
	api         Gateway
	options     store.GenOptionsStore
	lastProject store.LastProjectStore
	defaults    types.GenOptions
	logger      logging.Logger

	mu      sync.RWMutex
	ws      types.WorkingSet
	loading map[types.Collection]int

	saveMu sync.Mutex
	pubMu  sync.Mutex
	hub    *hub.Hub[types.WorkingSet]
}

type Option func(*Cache)

func WithLogger(logger logging.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDefaults sets the gen options used when nothing is stored.
func WithDefaults(defaults types.GenOptions) Option {
	return func(c *Cache) {
		c.defaults = defaults
	}
}

// WithLastProject remembers each opened project id.
func WithLastProject(lastProject store.LastProjectStore) Option {
	return func(c *Cache) {
		c.lastProject = lastProject
	}
}

func New(api Gateway, options store.GenOptionsStore, opts ...Option) *Cache {
	c := &Cache{
		api:      api,
		options:  options,
		defaults: types.DefaultGenOptions(),
		logger:   logging.Nop(),
		loading:  map[types.Collection]int{},
		hub:      hub.New[types.WorkingSet](8),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.ws = types.WorkingSet{
		Characters: []*types.Character{},
		Shots:      []*types.Shot{},
		Fusions:    []*types.Fusion{},
		GenOptions: c.defaults,
	}
	return c
}

// InitProject opens projectID: the id is swapped first, then project detail
// and the three collections are pulled in one concurrent fan-out and
// assigned together. A failed pull leaves that part empty, or unchanged when
// the same project was already open. Failures are logged; the gateway has
// already reported them to the user.
func (c *Cache) InitProject(ctx context.Context, projectID string) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return
	}

	c.mu.Lock()
	if c.ws.ProjectID != projectID {
		c.ws.ProjectID = projectID
		c.ws.Project = nil
		c.ws.Characters = []*types.Character{}
		c.ws.Shots = []*types.Shot{}
		c.ws.Fusions = []*types.Fusion{}
	}
	c.beginLoadingLocked(types.CollectionProject)
	c.publishLocked()

	var (
		project    *types.Project
		characters []*types.Character
		shots      []*types.Shot
		fusions    []*types.Fusion
		errs       [4]error
	)
	var g errgroup.Group
	g.Go(func() error {
		project, errs[0] = c.api.GetProject(ctx, projectID)
		return errs[0]
	})
	g.Go(func() error {
		characters, errs[1] = c.api.ListCharacters(ctx, projectID)
		return errs[1]
	})
	g.Go(func() error {
		shots, errs[2] = c.api.ListShots(ctx, projectID)
		return errs[2]
	})
	g.Go(func() error {
		fusions, errs[3] = c.api.ListFusions(ctx, projectID)
		return errs[3]
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("project_init_partial",
			logging.F("project_id", projectID),
			logging.F("project_err", errs[0]),
			logging.F("characters_err", errs[1]),
			logging.F("shots_err", errs[2]),
			logging.F("fusions_err", errs[3]),
		)
	}

	options := c.loadGenOptions(ctx)

	c.mu.Lock()
	if c.ws.ProjectID == projectID {
		if errs[0] == nil && project != nil {
			c.ws.Project = project
		}
		if errs[1] == nil {
			c.ws.Characters = nonNil(characters)
		}
		if errs[2] == nil {
			c.ws.Shots = nonNil(shots)
		}
		if errs[3] == nil {
			c.ws.Fusions = nonNil(fusions)
		}
	} else {
		c.logger.Info("project_init_superseded", logging.F("project_id", projectID))
	}
	c.ws.GenOptions = options
	c.endLoadingLocked(types.CollectionProject)
	c.publishLocked()

	if c.lastProject != nil {
		if err := c.lastProject.Save(ctx, projectID); err != nil {
			c.logger.Warn("last_project_save_failed", logging.Err(err))
		}
	}
}

func (c *Cache) FetchCharacters(ctx context.Context) error {
	return fetchCollection(c, ctx, types.CollectionCharacters, c.api.ListCharacters,
		func(ws *types.WorkingSet, items []*types.Character) { ws.Characters = items })
}

func (c *Cache) FetchShots(ctx context.Context) error {
	return fetchCollection(c, ctx, types.CollectionShots, c.api.ListShots,
		func(ws *types.WorkingSet, items []*types.Shot) { ws.Shots = items })
}

func (c *Cache) FetchFusions(ctx context.Context) error {
	return fetchCollection(c, ctx, types.CollectionFusions, c.api.ListFusions,
		func(ws *types.WorkingSet, items []*types.Fusion) { ws.Fusions = items })
}

// RefreshAll re-pulls the three collections concurrently. It is the cascade
// target for completed background tasks.
func (c *Cache) RefreshAll(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { return c.FetchCharacters(ctx) })
	g.Go(func() error { return c.FetchShots(ctx) })
	g.Go(func() error { return c.FetchFusions(ctx) })
	if err := g.Wait(); err != nil {
		c.logger.Warn("project_refresh_failed", logging.F("project_id", c.CurrentProjectID()), logging.Err(err))
	}
}

// UpdateGenOptions merges patch over the current options and persists the
// result. The in-memory value is updated even when the save fails.
func (c *Cache) UpdateGenOptions(ctx context.Context, patch types.GenOptionsPatch) (types.GenOptions, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	merged := c.ws.GenOptions.Merge(patch)
	c.ws.GenOptions = merged
	c.publishLocked()

	if c.options == nil {
		return merged, nil
	}
	if err := c.options.Save(ctx, merged); err != nil {
		c.logger.Warn("gen_options_save_failed", logging.Err(err))
		return merged, err
	}
	return merged, nil
}

// LoadGenOptions reads the stored options into the working set.
func (c *Cache) LoadGenOptions(ctx context.Context) types.GenOptions {
	options := c.loadGenOptions(ctx)
	c.mu.Lock()
	c.ws.GenOptions = options
	c.publishLocked()
	return options
}

func (c *Cache) loadGenOptions(ctx context.Context) types.GenOptions {
	if c.options == nil {
		return c.defaults
	}
	options, err := c.options.Load(ctx)
	switch {
	case err == nil:
		return options
	case errors.Is(err, store.ErrStorageCorrupt):
		c.logger.Warn("gen_options_corrupt", logging.Err(err))
	default:
		c.logger.Warn("gen_options_load_failed", logging.Err(err))
	}
	return c.defaults
}

func (c *Cache) Snapshot() types.WorkingSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.CloneWorkingSet(c.ws)
}

func (c *Cache) CurrentProjectID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ws.ProjectID
}

// Subscribe delivers a copy of the working set after every write.
func (c *Cache) Subscribe() (<-chan types.WorkingSet, func()) {
	return c.hub.Add()
}

// fetchCollection pulls one collection for the current project. The result
// is dropped if another project was opened meanwhile; the loading flag is
// released on every path.
func fetchCollection[T any](
	c *Cache,
	ctx context.Context,
	collection types.Collection,
	pull func(context.Context, string) ([]*T, error),
	assign func(*types.WorkingSet, []*T),
) error {
	c.mu.Lock()
	projectID := c.ws.ProjectID
	if projectID == "" {
		c.mu.Unlock()
		return nil
	}
	c.beginLoadingLocked(collection)
	c.publishLocked()

	items, err := pull(ctx, projectID)

	c.mu.Lock()
	if err == nil && c.ws.ProjectID == projectID {
		assign(&c.ws, nonNil(items))
	}
	c.endLoadingLocked(collection)
	c.publishLocked()
	return err
}

func (c *Cache) beginLoadingLocked(collection types.Collection) {
	c.loading[collection]++
	c.ws.Loading.Set(collection, true)
}

func (c *Cache) endLoadingLocked(collection types.Collection) {
	if c.loading[collection] > 0 {
		c.loading[collection]--
	}
	c.ws.Loading.Set(collection, c.loading[collection] > 0)
}

// publishLocked copies the working set, releases c.mu and broadcasts.
// pubMu is taken before c.mu is released so broadcasts keep write order.
func (c *Cache) publishLocked() {
	snapshot := types.CloneWorkingSet(c.ws)
	c.pubMu.Lock()
	c.mu.Unlock()
	c.hub.Broadcast(snapshot)
	c.pubMu.Unlock()
}

func nonNil[T any](items []*T) []*T {
	if items == nil {
		return []*T{}
	}
	return items
}
