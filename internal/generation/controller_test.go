package generation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storyboard/internal/client"
	"storyboard/internal/types"
)

func TestStartThenCancelResolvesCallAsCancelled(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	notices := 0
	api := client.New(server.URL, client.WithEmitter(emitterFunc(func(types.Notice) { notices++ })))
	defer api.Close()

	ctrl := NewController(nil)
	token := ctrl.Start(context.Background(), "Generating views", "this can take a while")
	if !ctrl.Active() {
		t.Fatalf("expected overlay to be visible after Start")
	}

	done := make(chan error, 1)
	go func() {
		done <- api.Call(token, http.MethodPost, "/async/generate/character_views", map[string]string{}, nil)
	}()
	<-started
	ctrl.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, client.ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
		if !errors.Is(err, ErrCancelledByUser) {
			t.Fatalf("expected user cancellation cause, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("guarded call left pending after cancel")
	}
	if ctrl.Active() {
		t.Fatalf("expected overlay hidden after cancel")
	}
	if notices != 0 {
		t.Fatalf("cancellation must not notify, got %d notices", notices)
	}
}

func TestCancelImmediatelyAfterStart(t *testing.T) {
	ctrl := NewController(nil)
	token := ctrl.Start(context.Background(), "t", "")
	ctrl.Cancel()
	if token.Err() == nil {
		t.Fatalf("expected token to be cancelled")
	}
	if !errors.Is(context.Cause(token), ErrCancelledByUser) {
		t.Fatalf("unexpected cause %v", context.Cause(token))
	}
	if ctrl.Active() {
		t.Fatalf("expected overlay hidden")
	}
}

func TestStopAndCancelAreIdempotentWhileIdle(t *testing.T) {
	ctrl := NewController(nil)
	ctrl.Stop()
	ctrl.Cancel()
	ctrl.Stop()
	if ctrl.Active() {
		t.Fatalf("expected idle controller")
	}
}

func TestStartSupersedesPreviousToken(t *testing.T) {
	ctrl := NewController(nil)
	first := ctrl.Start(context.Background(), "first", "")
	second := ctrl.Start(context.Background(), "second", "")

	if !errors.Is(context.Cause(first), ErrSuperseded) {
		t.Fatalf("expected first token superseded, got %v", context.Cause(first))
	}
	if second.Err() != nil {
		t.Fatalf("second token should be live")
	}
	session := ctrl.Session()
	if !session.Active || session.Title != "second" || session.Seq != 2 {
		t.Fatalf("unexpected session: %#v", session)
	}
}

func TestRunStopsAfterCompletion(t *testing.T) {
	ctrl := NewController(nil)
	var sawActive bool
	err := ctrl.Run(context.Background(), "work", "", func(ctx context.Context) error {
		sawActive = ctrl.Active()
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sawActive || ctrl.Active() {
		t.Fatalf("expected active during run and idle after, active=%v", ctrl.Active())
	}
}

func TestSupersededRunDoesNotCloseSuccessorOverlay(t *testing.T) {
	ctrl := NewController(nil)
	_ = ctrl.Run(context.Background(), "old", "", func(ctx context.Context) error {
		ctrl.Start(context.Background(), "new", "")
		return nil
	})
	if session := ctrl.Session(); !session.Active || session.Title != "new" {
		t.Fatalf("expected successor overlay to stay visible, got %#v", session)
	}
}

func TestSubscribeSeesShowAndHide(t *testing.T) {
	ctrl := NewController(nil)
	ch, cancel := ctrl.Subscribe()
	defer cancel()

	ctrl.Start(context.Background(), "show", "")
	ctrl.Stop()

	first := <-ch
	second := <-ch
	if !first.Active || first.Title != "show" {
		t.Fatalf("unexpected first update %#v", first)
	}
	if second.Active {
		t.Fatalf("expected hide update, got %#v", second)
	}
}

type emitterFunc func(types.Notice)

func (f emitterFunc) Emit(_ context.Context, notice types.Notice) {
	f(notice)
}
