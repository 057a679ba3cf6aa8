package types

import "testing"

func TestNormalizeNotificationSettingsFallsBackToDefaults(t *testing.T) {
	got := NormalizeNotificationSettings(NotificationSettings{
		Enabled: true,
		Methods: []NotificationMethod{"unknown"},
	})
	if len(got.Methods) != 1 || got.Methods[0] != NotificationMethodLog {
		t.Fatalf("expected fallback method log, got %#v", got.Methods)
	}
}

func TestNormalizeNotificationSettingsDedupesMethods(t *testing.T) {
	got := NormalizeNotificationSettings(NotificationSettings{
		Methods:             []NotificationMethod{"notify_send", "notify-send", "UI", "bell"},
		DedupeWindowSeconds: -3,
	})
	want := []NotificationMethod{NotificationMethodNotifySend, NotificationMethodToast, NotificationMethodBell}
	if len(got.Methods) != len(want) {
		t.Fatalf("unexpected methods: %#v", got.Methods)
	}
	for i := range want {
		if got.Methods[i] != want[i] {
			t.Fatalf("method %d: expected %q, got %q", i, want[i], got.Methods[i])
		}
	}
	if got.DedupeWindowSeconds != 0 {
		t.Fatalf("expected negative window clamped to 0, got %d", got.DedupeWindowSeconds)
	}
}

func TestNoticeDedupeKeyIncludesTaskIDs(t *testing.T) {
	a := Notice{Trigger: NotificationTriggerTasksCompleted, Title: "done", TaskIDs: []string{"1"}}
	b := Notice{Trigger: NotificationTriggerTasksCompleted, Title: "done", TaskIDs: []string{"2"}}
	if a.DedupeKey() == b.DedupeKey() {
		t.Fatalf("expected different keys for different task ids")
	}
}

func TestNoticeDedupeKeyIncludesRequestID(t *testing.T) {
	a := Notice{Trigger: NotificationTriggerRequestFailed, Message: "request failed", RequestID: "r1"}
	b := Notice{Trigger: NotificationTriggerRequestFailed, Message: "request failed", RequestID: "r2"}
	if a.DedupeKey() == b.DedupeKey() {
		t.Fatalf("expected different keys for different requests")
	}
}
