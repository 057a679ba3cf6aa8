package tasks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"storyboard/internal/client"
	"storyboard/internal/types"
)

type recordingEmitter struct {
	mu      sync.Mutex
	notices []types.Notice
}

func (r *recordingEmitter) Emit(_ context.Context, notice types.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

type countingRefresher struct {
	calls atomic.Int32
}

func (c *countingRefresher) RefreshAll(context.Context) {
	c.calls.Add(1)
}

type fakeGateway struct {
	mu        sync.Mutex
	snapshot  types.Snapshot
	listErr   error
	deleted   []string
	beforeRet func()
}

func (f *fakeGateway) ListTasks(context.Context) (types.Snapshot, error) {
	f.mu.Lock()
	snapshot, err, hook := f.snapshot, f.listErr, f.beforeRet
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return types.CloneSnapshot(snapshot), nil
}

func (f *fakeGateway) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func TestPushCompletionNotifiesOnceAndCascades(t *testing.T) {
	emitter := &recordingEmitter{}
	refresher := &countingRefresher{}
	gw := &fakeGateway{snapshot: snap("1", "processing")}
	reg := NewRegistry(gw, WithEmitter(emitter), WithRefresher(refresher))
	ctx := context.Background()

	if _, err := reg.FetchAll(ctx); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if emitter.count() != 0 {
		t.Fatalf("initial pull must not notify")
	}

	reg.OnPush(ctx, snap("1", "success", "2", "pending"))

	if emitter.count() != 1 {
		t.Fatalf("expected one notice, got %d", emitter.count())
	}
	if reg.ProcessingCount() != 1 {
		t.Fatalf("expected processing count 1, got %d", reg.ProcessingCount())
	}
	if refresher.calls.Load() != 1 {
		t.Fatalf("expected one cascade refresh, got %d", refresher.calls.Load())
	}
}

func TestPushWithoutTransitionIsSilent(t *testing.T) {
	emitter := &recordingEmitter{}
	refresher := &countingRefresher{}
	reg := NewRegistry(&fakeGateway{}, WithEmitter(emitter), WithRefresher(refresher))
	ctx := context.Background()

	reg.OnPush(ctx, snap("1", "pending"))
	reg.OnPush(ctx, snap("1", "processing"))
	reg.OnPush(ctx, snap("1", "failed"))
	reg.OnPush(ctx, snap("1", "failed", "2", "success"))

	if emitter.count() != 0 || refresher.calls.Load() != 0 {
		t.Fatalf("expected silence, got %d notices %d refreshes", emitter.count(), refresher.calls.Load())
	}
}

func TestPullAlsoDetectsCompletions(t *testing.T) {
	emitter := &recordingEmitter{}
	gw := &fakeGateway{}
	reg := NewRegistry(gw, WithEmitter(emitter))
	ctx := context.Background()

	reg.OnPush(ctx, snap("7", "processing"))
	gw.mu.Lock()
	gw.snapshot = snap("7", "success")
	gw.mu.Unlock()
	if _, err := reg.FetchAll(ctx); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if emitter.count() != 1 {
		t.Fatalf("expected pull to notify, got %d", emitter.count())
	}
}

func TestStalePullIsDiscarded(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{snapshot: snap("1", "processing")}
	reg := NewRegistry(gw)
	gw.beforeRet = func() {
		// A push lands while the pull is in flight.
		reg.OnPush(ctx, snap("1", "success", "2", "pending"))
	}

	got, err := reg.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected the pushed snapshot to survive, got %#v", got)
	}
	if task, _ := reg.List().Find("1"); task.Status != types.TaskStatusSuccess {
		t.Fatalf("stale pull overwrote newer push: %#v", task)
	}
}

func TestFetchAllErrorKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	reg := NewRegistry(gw)
	reg.OnPush(ctx, snap("1", "processing"))
	gw.listErr = errors.New("boom")
	if _, err := reg.FetchAll(ctx); err == nil {
		t.Fatalf("expected error")
	}
	if len(reg.List()) != 1 {
		t.Fatalf("failed pull must keep the last snapshot")
	}
}

func TestRemoveTwiceNeverErrors(t *testing.T) {
	var deletes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/tasks/t1":
			if deletes.Add(1) > 1 {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"Task not found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/tasks":
			_, _ = w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	emitter := &recordingEmitter{}
	api := client.New(server.URL, client.WithEmitter(emitter))
	defer api.Close()
	reg := NewRegistry(api, WithEmitter(emitter))
	ctx := context.Background()
	reg.OnPush(ctx, snap("t1", "success"))

	if err := reg.Remove(ctx, "t1"); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	if err := reg.Remove(ctx, "t1"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if len(reg.List()) != 0 {
		t.Fatalf("expected empty list after re-pull")
	}
	if emitter.count() != 0 {
		t.Fatalf("idempotent delete must not notify, got %d", emitter.count())
	}
}

func TestConcurrentPushesPublishWholeSnapshots(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(&fakeGateway{})
	a := snap("a1", "pending", "a2", "pending")
	b := snap("b1", "processing", "b2", "processing", "b3", "processing")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	var torn atomic.Bool
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				list := reg.List()
				if len(list) == 0 {
					continue
				}
				prefix := list[0].ID[:1]
				for _, task := range list {
					if task.ID[:1] != prefix {
						torn.Store(true)
					}
				}
				if (prefix == "a" && len(list) != 2) || (prefix == "b" && len(list) != 3) {
					torn.Store(true)
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		reg.OnPush(ctx, a)
		reg.OnPush(ctx, b)
	}
	close(stop)
	wg.Wait()

	if torn.Load() {
		t.Fatalf("reader observed a partially applied snapshot")
	}
	if got := reg.List(); len(got) != 3 || got[0].ID != "b1" {
		t.Fatalf("expected latest snapshot to win, got %#v", got)
	}
}

func TestSubscribeReceivesAppliedSnapshots(t *testing.T) {
	reg := NewRegistry(&fakeGateway{})
	ch, cancel := reg.Subscribe()
	defer cancel()

	reg.OnPush(context.Background(), snap("1", "pending"))
	got := <-ch
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("unexpected snapshot %#v", got)
	}
}

func TestListReturnsCopy(t *testing.T) {
	reg := NewRegistry(&fakeGateway{})
	reg.OnPush(context.Background(), snap("1", "pending"))
	list := reg.List()
	list[0].Status = types.TaskStatusSuccess
	if reg.ProcessingCount() != 1 {
		t.Fatalf("mutating a copy changed the registry")
	}
}
