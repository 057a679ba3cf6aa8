package types

import (
	"strings"
	"time"
)

type NotificationTrigger string

const (
	NotificationTriggerTasksCompleted NotificationTrigger = "tasks.completed"
	NotificationTriggerRequestFailed  NotificationTrigger = "request.failed"
	NotificationTriggerPushLost       NotificationTrigger = "push.disconnected"
)

type NotificationLevel string

const (
	NotificationLevelInfo    NotificationLevel = "info"
	NotificationLevelSuccess NotificationLevel = "success"
	NotificationLevelWarning NotificationLevel = "warning"
	NotificationLevelError   NotificationLevel = "error"
)

type NotificationMethod string

const (
	NotificationMethodAuto       NotificationMethod = "auto"
	NotificationMethodNotifySend NotificationMethod = "notify-send"
	NotificationMethodDunstify   NotificationMethod = "dunstify"
	NotificationMethodBell       NotificationMethod = "bell"
	NotificationMethodLog        NotificationMethod = "log"
	NotificationMethodToast      NotificationMethod = "toast"
)

type NotificationSettings struct {
	Enabled             bool                 `json:"enabled" toml:"enabled"`
	Methods             []NotificationMethod `json:"methods,omitempty" toml:"methods"`
	DedupeWindowSeconds int                  `json:"dedupe_window_seconds,omitempty" toml:"dedupe_window_seconds"`
}

// Notice is one user-visible notification.
type Notice struct {
	Trigger    NotificationTrigger `json:"trigger"`
	Level      NotificationLevel   `json:"level"`
	Title      string              `json:"title"`
	Message    string              `json:"message"`
	TaskIDs    []string            `json:"task_ids,omitempty"`
	RequestID  string              `json:"request_id,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// DedupeKey identifies repeats of the same notice. Notices from different
// requests or different task batches never share a key.
func (n Notice) DedupeKey() string {
	return string(n.Trigger) + "|" + n.RequestID + "|" + n.Title + "|" + n.Message + "|" + strings.Join(n.TaskIDs, ",")
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Enabled:             true,
		Methods:             []NotificationMethod{NotificationMethodLog},
		DedupeWindowSeconds: 2,
	}
}

func CloneNotificationSettings(in NotificationSettings) NotificationSettings {
	out := in
	if in.Methods != nil {
		out.Methods = append([]NotificationMethod{}, in.Methods...)
	}
	return out
}

func NormalizeNotificationSettings(in NotificationSettings) NotificationSettings {
	out := CloneNotificationSettings(in)
	out.Methods = normalizeNotificationMethods(in.Methods)
	if len(out.Methods) == 0 {
		out.Methods = append([]NotificationMethod{}, DefaultNotificationSettings().Methods...)
	}
	if out.DedupeWindowSeconds < 0 {
		out.DedupeWindowSeconds = 0
	}
	return out
}

func normalizeNotificationMethods(values []NotificationMethod) []NotificationMethod {
	if len(values) == 0 {
		return nil
	}
	seen := map[NotificationMethod]struct{}{}
	out := make([]NotificationMethod, 0, len(values))
	for _, value := range values {
		normalized, ok := NormalizeNotificationMethod(string(value))
		if !ok {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func NormalizeNotificationMethod(raw string) (NotificationMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "auto":
		return NotificationMethodAuto, true
	case "notify-send", "notify_send", "notifysend":
		return NotificationMethodNotifySend, true
	case "dunstify":
		return NotificationMethodDunstify, true
	case "bell", "terminal-bell", "terminal_bell":
		return NotificationMethodBell, true
	case "log", "stderr":
		return NotificationMethodLog, true
	case "toast", "ui":
		return NotificationMethodToast, true
	default:
		return "", false
	}
}
