// Package tracker keeps the task registry in sync with the backend through
// the push channel, with periodic full pulls as a fallback.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storyboard/internal/client"
	"storyboard/internal/hub"
	"storyboard/internal/logging"
	"storyboard/internal/notify"
	"storyboard/internal/types"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultReconnectMin = 500 * time.Millisecond
	defaultReconnectMax = 30 * time.Second
)

// PushSource opens the push channel. The returned channel closes when the
// connection drops.
type PushSource interface {
	TaskStream(ctx context.Context) (<-chan types.Snapshot, func(), error)
}

// Registry receives every snapshot the engine observes.
type Registry interface {
	FetchAll(ctx context.Context) (types.Snapshot, error)
	OnPush(ctx context.Context, snapshot types.Snapshot)
}

type Config struct {
	PushEnabled  bool
	PollInterval time.Duration
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Status is the engine's view of the push channel.
type Status struct {
	Connected  bool
	Reconnects int
	LastSync   time.Time
	LastError  string
}

type Engine struct {
	push     PushSource
	registry Registry
	cfg      Config
	emitter  notify.Emitter
	logger   logging.Logger
	now      func() time.Time

	mu     sync.Mutex
	status Status
	pubMu  sync.Mutex
	hub    *hub.Hub[Status]
}

type Option func(*Engine)

func WithEmitter(emitter notify.Emitter) Option {
	return func(e *Engine) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(push PushSource, registry Registry, cfg Config, opts ...Option) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = defaultReconnectMin
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = defaultReconnectMax
		if cfg.ReconnectMax < cfg.ReconnectMin {
			cfg.ReconnectMax = cfg.ReconnectMin
		}
	}
	e := &Engine{
		push:     push,
		registry: registry,
		cfg:      cfg,
		emitter:  notify.Nop(),
		logger:   logging.Nop(),
		now:      time.Now,
		hub:      hub.New[Status](4),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Run blocks until ctx is cancelled. Background pulls are quiet: their
// failures are logged, not shown to the user.
func (e *Engine) Run(ctx context.Context) error {
	ctx = client.QuietContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.pollLoop(gctx)
		return nil
	})
	if e.cfg.PushEnabled && e.push != nil {
		g.Go(func() error {
			e.pushLoop(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) Subscribe() (<-chan Status, func()) {
	return e.hub.Add()
}

func (e *Engine) pollLoop(ctx context.Context) {
	e.pull(ctx, "startup")
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.pull(ctx, "poll")
		}
	}
}

func (e *Engine) pushLoop(ctx context.Context) {
	backoff := e.cfg.ReconnectMin
	for ctx.Err() == nil {
		stream, stop, err := e.push.TaskStream(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.Warn("push_connect_failed", logging.Err(err), logging.F("retry_in", backoff))
			e.update(func(s *Status) { s.LastError = err.Error() })
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, e.cfg.ReconnectMax)
			continue
		}

		backoff = e.cfg.ReconnectMin
		e.update(func(s *Status) {
			s.Connected = true
			s.LastError = ""
		})
		// Events may have been missed while disconnected.
		e.pull(ctx, "connect")
		for snapshot := range stream {
			e.registry.OnPush(ctx, snapshot)
			e.update(func(s *Status) { s.LastSync = e.now().UTC() })
		}
		stop()
		if ctx.Err() != nil {
			e.update(func(s *Status) { s.Connected = false })
			return
		}

		err = fmt.Errorf("%w: stream closed", client.ErrPushDisconnected)
		e.logger.Warn("push_disconnected", logging.Err(err), logging.F("retry_in", backoff))
		e.update(func(s *Status) {
			s.Connected = false
			s.Reconnects++
			s.LastError = err.Error()
		})
		e.emitter.Emit(ctx, types.Notice{
			Trigger: types.NotificationTriggerPushLost,
			Level:   types.NotificationLevelWarning,
			Title:   "Live updates interrupted",
			Message: "Reconnecting; task status is refreshed by polling meanwhile",
		})
		if !sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, e.cfg.ReconnectMax)
	}
}

func (e *Engine) pull(ctx context.Context, reason string) {
	if _, err := e.registry.FetchAll(ctx); err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("tasks_pull_failed", logging.F("reason", reason), logging.Err(err))
		}
		return
	}
	e.update(func(s *Status) { s.LastSync = e.now().UTC() })
}

func (e *Engine) update(fn func(*Status)) {
	e.mu.Lock()
	fn(&e.status)
	status := e.status
	e.pubMu.Lock()
	e.mu.Unlock()
	e.hub.Broadcast(status)
	e.pubMu.Unlock()
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
