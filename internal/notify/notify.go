// Package notify surfaces user-visible notices through configured sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storyboard/internal/logging"
	"storyboard/internal/types"
)

// Emitter surfaces one notice to the user. Emit never fails from the
// caller's point of view; delivery problems are logged.
type Emitter interface {
	Emit(ctx context.Context, notice types.Notice)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, notice types.Notice)

func (f EmitterFunc) Emit(ctx context.Context, notice types.Notice) {
	if f != nil {
		f(ctx, notice)
	}
}

// Nop discards every notice.
func Nop() Emitter {
	return EmitterFunc(func(context.Context, types.Notice) {})
}

// Sink handles one notification method.
type Sink interface {
	Method() types.NotificationMethod
	Notify(ctx context.Context, notice types.Notice) error
}

type Dispatcher struct {
	settings types.NotificationSettings
	sinks    map[types.NotificationMethod]Sink
	logger   logging.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewDispatcher(settings types.NotificationSettings, sinks []Sink, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	byMethod := map[types.NotificationMethod]Sink{}
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		byMethod[sink.Method()] = sink
	}
	return &Dispatcher{
		settings: types.NormalizeNotificationSettings(settings),
		sinks:    byMethod,
		logger:   logger,
		now:      time.Now,
		lastSent: map[string]time.Time{},
	}
}

// AddSink registers or replaces the sink for its method.
func (d *Dispatcher) AddSink(sink Sink) {
	if sink == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[sink.Method()] = sink
}

func (d *Dispatcher) Emit(ctx context.Context, notice types.Notice) {
	if !d.settings.Enabled {
		return
	}
	if notice.OccurredAt.IsZero() {
		notice.OccurredAt = d.now()
	}
	if d.shouldSuppress(notice) {
		d.logger.Debug("notice_suppressed", logging.F("trigger", notice.Trigger), logging.F("title", notice.Title))
		return
	}
	if err := d.dispatch(ctx, notice); err != nil {
		d.logger.Warn("notice_dispatch_failed",
			logging.F("trigger", notice.Trigger),
			logging.F("title", notice.Title),
			logging.Err(err),
		)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, notice types.Notice) error {
	var dispatchErr error
	delivered := false
	for _, method := range d.settings.Methods {
		ok, err := d.dispatchMethod(ctx, method, notice)
		if err != nil {
			dispatchErr = errors.Join(dispatchErr, err)
			continue
		}
		delivered = delivered || ok
	}
	if delivered {
		return nil
	}
	return dispatchErr
}

func (d *Dispatcher) dispatchMethod(ctx context.Context, method types.NotificationMethod, notice types.Notice) (bool, error) {
	if method == types.NotificationMethodAuto {
		for _, fallback := range []types.NotificationMethod{
			types.NotificationMethodToast,
			types.NotificationMethodDunstify,
			types.NotificationMethodNotifySend,
			types.NotificationMethodBell,
			types.NotificationMethodLog,
		} {
			sink, ok := d.sink(fallback)
			if !ok {
				continue
			}
			if err := sink.Notify(ctx, notice); err == nil {
				return true, nil
			}
		}
		return false, errors.New("no notification sink available for auto")
	}
	sink, ok := d.sink(method)
	if !ok {
		return false, fmt.Errorf("unknown notification method: %s", method)
	}
	if err := sink.Notify(ctx, notice); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Dispatcher) sink(method types.NotificationMethod) (Sink, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sink, ok := d.sinks[method]
	return sink, ok && sink != nil
}

func (d *Dispatcher) shouldSuppress(notice types.Notice) bool {
	window := time.Duration(d.settings.DedupeWindowSeconds) * time.Second
	if window <= 0 {
		return false
	}
	key := notice.DedupeKey()
	at := notice.OccurredAt

	d.mu.Lock()
	defer d.mu.Unlock()
	for k, sent := range d.lastSent {
		if at.Sub(sent) > window {
			delete(d.lastSent, k)
		}
	}
	if sent, ok := d.lastSent[key]; ok && at.Sub(sent) <= window {
		return true
	}
	d.lastSent[key] = at
	return false
}
