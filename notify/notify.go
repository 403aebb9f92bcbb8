// Package notify schedules device notifications for due tasks. A Scheduler
// decides, per task, whether a notification fires immediately, is re-checked
// at the due instant, or is dropped; a Notifier delivers the outcome.
package notify

import (
	"context"
	"time"

	"pocketplan/domain"
)

// Notification is a device notification addressed by numeric id.
type Notification struct {
	ID    uint32    `json:"id"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}

// Notifier delivers notifications to the device shell.
type Notifier interface {
	Schedule(ctx context.Context, n Notification) error
	Cancel(ctx context.Context, id uint32) error
}

// TaskSource returns the current state of a task if it is still present.
// Deferred due-time checks consult it instead of trusting the snapshot that
// armed them.
type TaskSource interface {
	Task(id string) (domain.Task, bool)
}

// NumericID derives the 32-bit notification id for a task id with a rolling
// hash, h = h*31 + codepoint, truncated to 32 bits. Notification channels
// address notifications by integer id while task ids are strings.
func NumericID(taskID string) uint32 {
	var h uint32
	for _, r := range taskID {
		h = h*31 + uint32(r)
	}
	return h
}
