package types

import (
	"fmt"
	"sort"
	"strings"
)

const (
	KeyActionQuit          = "quit"
	KeyActionMoveUp        = "move_up"
	KeyActionMoveDown      = "move_down"
	KeyActionScrollUp      = "scroll_up"
	KeyActionScrollDown    = "scroll_down"
	KeyActionRefresh       = "refresh"
	KeyActionReloadProject = "reload_project"
	KeyActionClearTask     = "clear_task"
	KeyActionCopyTaskID    = "copy_task_id"
)

// Keymap binds TUI actions to key strings as bubbletea prints them
// ("q", "ctrl+r", "pgdown").
type Keymap struct {
	Bindings map[string]string `json:"bindings"`
}

// Arrow keys always move the selection, whatever move_up/move_down are
// bound to.
var keymapAliases = map[string]string{
	"up":   KeyActionMoveUp,
	"down": KeyActionMoveDown,
}

func DefaultKeymap() *Keymap {
	return &Keymap{
		Bindings: map[string]string{
			KeyActionQuit:          "q",
			KeyActionMoveUp:        "k",
			KeyActionMoveDown:      "j",
			KeyActionScrollUp:      "pgup",
			KeyActionScrollDown:    "pgdown",
			KeyActionRefresh:       "r",
			KeyActionReloadProject: "R",
			KeyActionClearTask:     "d",
			KeyActionCopyTaskID:    "y",
		},
	}
}

// WithOverrides returns a copy with the given action bindings replaced.
// Unknown actions, empty keys and keys bound twice are rejected.
func (k *Keymap) WithOverrides(overrides map[string]string) (*Keymap, error) {
	out := &Keymap{Bindings: map[string]string{}}
	if k != nil {
		for action, key := range k.Bindings {
			out.Bindings[action] = key
		}
	}
	for action, key := range overrides {
		action = strings.ToLower(strings.TrimSpace(action))
		key = strings.TrimSpace(key)
		if _, ok := out.Bindings[action]; !ok {
			return nil, fmt.Errorf("unknown key action %q", action)
		}
		if key == "" {
			return nil, fmt.Errorf("key for %s is empty", action)
		}
		out.Bindings[action] = key
	}
	seen := map[string]string{}
	for _, action := range out.Actions() {
		key := out.Bindings[action]
		if other, ok := seen[key]; ok {
			return nil, fmt.Errorf("key %q bound to both %s and %s", key, other, action)
		}
		seen[key] = action
	}
	return out, nil
}

// Action resolves a pressed key. A shifted letter also matches its upper
// case binding, since terminals report it either way.
func (k *Keymap) Action(key string) (string, bool) {
	if action, ok := keymapAliases[key]; ok {
		return action, true
	}
	if k == nil {
		return "", false
	}
	candidates := []string{key}
	if letter, ok := strings.CutPrefix(key, "shift+"); ok && len(letter) == 1 {
		candidates = append(candidates, strings.ToUpper(letter))
	}
	for _, candidate := range candidates {
		for action, bound := range k.Bindings {
			if bound == candidate {
				return action, true
			}
		}
	}
	return "", false
}

func (k *Keymap) Key(action string) string {
	if k == nil {
		return ""
	}
	return k.Bindings[action]
}

func (k *Keymap) Actions() []string {
	if k == nil {
		return nil
	}
	out := make([]string, 0, len(k.Bindings))
	for action := range k.Bindings {
		out = append(out, action)
	}
	sort.Strings(out)
	return out
}
