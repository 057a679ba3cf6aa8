package types

import (
	"strings"
	"testing"
)

func TestKeymapAction(t *testing.T) {
	t.Parallel()

	keymap := DefaultKeymap()
	tests := []struct {
		key    string
		action string
		ok     bool
	}{
		{key: "q", action: KeyActionQuit, ok: true},
		{key: "up", action: KeyActionMoveUp, ok: true},
		{key: "R", action: KeyActionReloadProject, ok: true},
		{key: "shift+r", action: KeyActionReloadProject, ok: true},
		{key: "pgdown", action: KeyActionScrollDown, ok: true},
		{key: "z", ok: false},
	}
	for _, tt := range tests {
		got, ok := keymap.Action(tt.key)
		if ok != tt.ok || got != tt.action {
			t.Fatalf("%q: expected (%q, %v), got (%q, %v)", tt.key, tt.action, tt.ok, got, ok)
		}
	}
}

func TestKeymapWithOverrides(t *testing.T) {
	t.Parallel()

	base := DefaultKeymap()
	keymap, err := base.WithOverrides(map[string]string{" Clear_Task ": "x"})
	if err != nil {
		t.Fatalf("WithOverrides: %v", err)
	}
	if action, _ := keymap.Action("x"); action != KeyActionClearTask {
		t.Fatalf("expected x to clear, got %q", action)
	}
	if _, ok := keymap.Action("d"); ok {
		t.Fatalf("expected old binding dropped")
	}
	if base.Key(KeyActionClearTask) != "d" {
		t.Fatalf("expected base keymap untouched")
	}

	if _, err := base.WithOverrides(map[string]string{"explode": "e"}); err == nil {
		t.Fatalf("expected unknown action error")
	}
	if _, err := base.WithOverrides(map[string]string{KeyActionRefresh: " "}); err == nil {
		t.Fatalf("expected empty key error")
	}
	_, err = base.WithOverrides(map[string]string{KeyActionRefresh: "q"})
	if err == nil || !strings.Contains(err.Error(), "bound to both") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}
