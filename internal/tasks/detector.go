package tasks

import (
	"fmt"
	"strings"

	"storyboard/internal/types"
)

const (
	completedNoticeTitle   = "Task completed"
	completedNoticeMessage = "Background tasks finished, data refreshed"
)

// Transition is one task observed moving into success between two
// snapshots.
type Transition struct {
	ID   string
	From types.TaskStatus
	Task *types.Task
}

// DetectTransitions reports every task of next whose id was present in prev
// with a status other than success and is now success. Ids absent from prev
// never fire, so a job that starts and finishes between two observations
// stays silent.
func DetectTransitions(prev, next types.Snapshot) []Transition {
	if len(next) == 0 || len(prev) == 0 {
		return nil
	}
	before := prev.Index()
	var out []Transition
	for _, task := range next {
		if task == nil || task.Status != types.TaskStatusSuccess {
			continue
		}
		old, ok := before[task.ID]
		if !ok || old.Status == types.TaskStatusSuccess {
			continue
		}
		out = append(out, Transition{ID: task.ID, From: old.Status, Task: task})
	}
	return out
}

// completedNotice folds a batch of transitions into the single aggregate
// notice shown for it.
func completedNotice(transitions []Transition) types.Notice {
	ids := make([]string, 0, len(transitions))
	descs := make([]string, 0, len(transitions))
	for _, tr := range transitions {
		ids = append(ids, tr.ID)
		if desc := strings.TrimSpace(tr.Task.Desc); desc != "" {
			descs = append(descs, desc)
		}
	}
	message := completedNoticeMessage
	if len(transitions) > 1 {
		message = fmt.Sprintf("%s (%d tasks)", message, len(transitions))
	}
	if len(descs) > 0 {
		message += ": " + strings.Join(descs, ", ")
	}
	return types.Notice{
		Trigger: types.NotificationTriggerTasksCompleted,
		Level:   types.NotificationLevelSuccess,
		Title:   completedNoticeTitle,
		Message: message,
		TaskIDs: ids,
	}
}
