// Package generation owns the cancellation token of the one blocking
// operation the user is waiting on.
package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"storyboard/internal/hub"
	"storyboard/internal/logging"
	"storyboard/internal/types"
)

var (
	// ErrCancelledByUser is the cause attached when the user aborts the
	// operation from the overlay.
	ErrCancelledByUser = errors.New("cancelled by user")
	// ErrSuperseded is the cause attached to a token replaced by a newer Start.
	ErrSuperseded = errors.New("superseded by a newer operation")

	errReleased = errors.New("operation finished")
)

type Controller struct {
	mu      sync.Mutex
	session types.GenerationSession
	cancel  context.CancelCauseFunc
	seq     uint64

	pubMu  sync.Mutex
	hub    *hub.Hub[types.GenerationSession]
	logger logging.Logger
	now    func() time.Time
}

func NewController(logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Controller{
		hub:    hub.New[types.GenerationSession](8),
		logger: logger,
		now:    time.Now,
	}
}

// Start closes any previous overlay, then opens a new one and returns the
// token to thread into the guarded gateway call.
func (c *Controller) Start(parent context.Context, title, subText string) context.Context {
	ctx, _ := c.start(parent, title, subText)
	return ctx
}

func (c *Controller) start(parent context.Context, title, subText string) (context.Context, uint64) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)

	c.mu.Lock()
	previous := c.cancel
	superseded := c.session.Active
	c.seq++
	c.cancel = cancel
	c.session = types.GenerationSession{
		Active:    true,
		Title:     strings.TrimSpace(title),
		SubText:   strings.TrimSpace(subText),
		StartedAt: c.now().UTC(),
		Seq:       c.seq,
	}
	session := c.session
	c.publishLocked(session)

	if previous != nil {
		previous(ErrSuperseded)
		if superseded {
			c.logger.Info("generation_superseded", logging.F("seq", session.Seq-1))
		}
	}
	c.logger.Info("generation_started",
		logging.F("seq", session.Seq),
		logging.F("title", session.Title),
	)
	return ctx, session.Seq
}

// Cancel aborts the current operation, if any, and hides the overlay. The
// guarded call fails with a cancellation error at the gateway.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	seq := c.seq
	if cancel == nil {
		c.mu.Unlock()
		return
	}
	cancel(ErrCancelledByUser)
	c.stopLocked()
	c.logger.Info("generation_cancelled", logging.F("seq", seq))
}

// Stop hides the overlay and releases the token. Safe to call while idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopLocked()
}

// stopLocked releases the token and unlocks c.mu before broadcasting.
func (c *Controller) stopLocked() {
	cancel := c.cancel
	wasActive := c.session.Active
	c.cancel = nil
	c.session = types.GenerationSession{Seq: c.seq}
	if wasActive {
		c.publishLocked(c.session)
	} else {
		c.mu.Unlock()
	}

	if cancel != nil {
		cancel(errReleased)
	}
}

// publishLocked releases c.mu and broadcasts session, keeping broadcasts in
// the order the state changed.
func (c *Controller) publishLocked(session types.GenerationSession) {
	c.pubMu.Lock()
	c.mu.Unlock()
	c.hub.Broadcast(session)
	c.pubMu.Unlock()
}

// stopIfCurrent stops only when seq still names the current operation, so a
// superseded Run does not close its successor's overlay.
func (c *Controller) stopIfCurrent(seq uint64) {
	c.mu.Lock()
	if c.seq != seq {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
}

func (c *Controller) Session() types.GenerationSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Controller) Active() bool {
	return c.Session().Active
}

// Run brackets fn with Start and Stop.
func (c *Controller) Run(ctx context.Context, title, subText string, fn func(context.Context) error) error {
	token, seq := c.start(ctx, title, subText)
	defer c.stopIfCurrent(seq)
	return fn(token)
}

// Subscribe delivers every overlay change.
func (c *Controller) Subscribe() (<-chan types.GenerationSession, func()) {
	return c.hub.Add()
}
