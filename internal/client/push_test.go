package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"storyboard/internal/types"
)

func pushServer(t *testing.T, frames []string, hold bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.CloseNow()
		for _, frame := range frames {
			if err := conn.Write(r.Context(), websocket.MessageText, []byte(frame)); err != nil {
				return
			}
		}
		if hold {
			for {
				if _, _, err := conn.Read(context.Background()); err != nil {
					return
				}
			}
		}
		_ = conn.Close(websocket.StatusGoingAway, "bye")
	}))
	t.Cleanup(server.Close)
	return server
}

func pushClient(server *httptest.Server) *Client {
	return New(server.URL+"/api", WithPushURL("ws"+strings.TrimPrefix(server.URL, "http")+"/ws"))
}

func TestTaskStreamDeliversTaskUpdates(t *testing.T) {
	server := pushServer(t, []string{
		`{"type":"hello","payload":{}}`,
		`{"type":"task_update","payload":[{"id":"t1","status":"processing"}]}`,
	}, true)
	c := pushClient(server)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ch, stop, err := c.TaskStream(ctx)
	if err != nil {
		t.Fatalf("TaskStream: %v", err)
	}
	defer stop()

	select {
	case snapshot := <-ch:
		if len(snapshot) != 1 || snapshot[0].ID != "t1" {
			t.Fatalf("unexpected snapshot: %#v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for task update")
	}
}

func TestTaskStreamAcceptsEventArrays(t *testing.T) {
	server := pushServer(t, []string{
		`["task_update",[{"id":"t2","status":"success"}]]`,
	}, true)
	c := pushClient(server)
	defer c.Close()

	ch, stop, err := c.TaskStream(context.Background())
	if err != nil {
		t.Fatalf("TaskStream: %v", err)
	}
	defer stop()

	select {
	case snapshot := <-ch:
		if len(snapshot) != 1 || snapshot[0].ID != "t2" {
			t.Fatalf("unexpected snapshot: %#v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for task update")
	}
}

func TestTaskStreamClosesWhenServerHangsUp(t *testing.T) {
	server := pushServer(t, []string{`{"type":"task_update","payload":[]}`}, false)
	c := pushClient(server)
	defer c.Close()

	ch, stop, err := c.TaskStream(context.Background())
	if err != nil {
		t.Fatalf("TaskStream: %v", err)
	}
	defer stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("expected stream to close after hang up")
		}
	}
}

func TestTaskStreamDialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	c := pushClient(server)
	defer c.Close()

	if _, _, err := c.TaskStream(context.Background()); err == nil {
		t.Fatalf("expected dial error")
	}
}

// socketIOServer speaks the Engine.IO v4 websocket transport the way a
// Flask-SocketIO backend does, recording the frames the client sends.
func socketIOServer(t *testing.T, events []string) (*httptest.Server, <-chan string) {
	t.Helper()
	received := make(chan string, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/socket.io/" || r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()
		read := func() string {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return ""
			}
			received <- string(data)
			return string(data)
		}
		write := func(frame string) bool {
			return conn.Write(ctx, websocket.MessageText, []byte(frame)) == nil
		}

		if !write(`0{"sid":"eio-1","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`) {
			return
		}
		if got := read(); got != "40" {
			t.Errorf("expected namespace connect 40, got %q", got)
			return
		}
		if !write(`40{"sid":"sio-1"}`) || !write("2") {
			return
		}
		if got := read(); got != "3" {
			t.Errorf("expected pong 3, got %q", got)
			return
		}
		for _, frame := range events {
			if !write(frame) {
				return
			}
		}
		for read() != "" {
		}
	}))
	t.Cleanup(server.Close)
	return server, received
}

func TestTaskStreamSpeaksSocketIO(t *testing.T) {
	server, received := socketIOServer(t, []string{
		`42["progress",{"id":"t9"}]`,
		`42["task_update",[{"id":"t9","status":"success"}]]`,
	})
	c := New(server.URL + "/api")
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ch, stop, err := c.TaskStream(ctx)
	if err != nil {
		t.Fatalf("TaskStream: %v", err)
	}
	defer stop()

	select {
	case snapshot := <-ch:
		if len(snapshot) != 1 || snapshot[0].ID != "t9" || snapshot[0].Status != types.TaskStatusSuccess {
			t.Fatalf("unexpected snapshot: %#v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatalf("socket.io task_update frame never delivered")
	}
	if got := <-received; got != "40" {
		t.Fatalf("expected connect frame first, got %q", got)
	}
}

func TestTaskStreamEndsOnSocketIODisconnect(t *testing.T) {
	server, _ := socketIOServer(t, []string{`41`})
	c := New(server.URL + "/api")
	defer c.Close()

	ch, stop, err := c.TaskStream(context.Background())
	if err != nil {
		t.Fatalf("TaskStream: %v", err)
	}
	defer stop()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected no snapshot before disconnect")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected stream to close on socket.io disconnect")
	}
}

func TestDecodePushFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		event string
		reply string
		err   bool
	}{
		{name: "open", frame: `0{"sid":"x"}`, reply: "40"},
		{name: "ping", frame: "2", reply: "3"},
		{name: "ping probe", frame: "2probe", reply: "3probe"},
		{name: "pong", frame: "3"},
		{name: "connect ack", frame: `40{"sid":"y"}`},
		{name: "event", frame: `42["task_update",[]]`, event: "task_update"},
		{name: "event with ack id", frame: `4217["task_update",[]]`, event: "task_update"},
		{name: "namespaced event", frame: `42/tasks,["task_update",[]]`, event: "task_update"},
		{name: "plain envelope", frame: `{"type":"task_update","payload":[]}`, event: "task_update"},
		{name: "engine close", frame: "1", err: true},
		{name: "socket disconnect", frame: "41", err: true},
		{name: "connect error", frame: `44{"message":"unauthorized"}`, err: true},
		{name: "garbage", frame: "x", err: true},
	}
	for _, tt := range tests {
		msg, reply, err := decodePushFrame([]byte(tt.frame))
		if (err != nil) != tt.err {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if msg.Type != tt.event || reply != tt.reply {
			t.Fatalf("%s: expected (%q, %q), got (%q, %q)", tt.name, tt.event, tt.reply, msg.Type, reply)
		}
	}
}

func TestDecodePushMessage(t *testing.T) {
	msg, err := decodePushMessage([]byte(` {"type":"task_update","payload":[1]} `))
	if err != nil || msg.Type != PushEventTaskUpdate || string(msg.Payload) != "[1]" {
		t.Fatalf("unexpected envelope decode: %#v %v", msg, err)
	}
	if _, err := decodePushMessage([]byte("   ")); err == nil {
		t.Fatalf("expected empty message error")
	}
	if _, err := decodePushMessage([]byte("[]")); err == nil {
		t.Fatalf("expected empty event error")
	}
}

func TestDeliverLatestKeepsNewest(t *testing.T) {
	ch := make(chan types.Snapshot, 1)
	deliverLatest(ch, types.Snapshot{{ID: "old"}})
	deliverLatest(ch, types.Snapshot{{ID: "new"}})
	if got := <-ch; got[0].ID != "new" {
		t.Fatalf("expected newest snapshot, got %#v", got)
	}
}
