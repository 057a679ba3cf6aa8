package types

import "strings"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusSuccess    TaskStatus = "success"
	TaskStatusFailed     TaskStatus = "failed"
)

// Known reports whether the status is one the backend is documented to send.
// Unknown values are kept as-is and treated as non-terminal.
func (s TaskStatus) Known() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusSuccess, TaskStatusFailed:
		return true
	default:
		return false
	}
}

func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed
}

func (s TaskStatus) InFlight() bool {
	return s == TaskStatusPending || s == TaskStatusProcessing
}

func NormalizeTaskStatus(raw string) TaskStatus {
	return TaskStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// Task is a backend job record. The client never mutates these; it only
// reads them and asks the backend to delete finished ones.
type Task struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	Kind      string     `json:"kind,omitempty"`
	Desc      string     `json:"desc,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
	Progress  int        `json:"progress,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Snapshot is the full task list at one observation instant.
type Snapshot []*Task

func CloneTask(in *Task) *Task {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

func CloneSnapshot(in Snapshot) Snapshot {
	out := make(Snapshot, 0, len(in))
	for _, task := range in {
		if task == nil {
			continue
		}
		out = append(out, CloneTask(task))
	}
	return out
}

// Index maps task id to task. Later duplicates win.
func (s Snapshot) Index() map[string]*Task {
	out := make(map[string]*Task, len(s))
	for _, task := range s {
		if task == nil || task.ID == "" {
			continue
		}
		out[task.ID] = task
	}
	return out
}

func (s Snapshot) InFlightCount() int {
	count := 0
	for _, task := range s {
		if task != nil && task.Status.InFlight() {
			count++
		}
	}
	return count
}

func (s Snapshot) Find(id string) (*Task, bool) {
	for _, task := range s {
		if task != nil && task.ID == id {
			return task, true
		}
	}
	return nil, false
}
