// Package tasklist owns the in-memory task collection and keeps it
// synchronized with a backing store.
package tasklist

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"pocketplan/backend"
	"pocketplan/domain"
)

// Reminder receives notification-evaluation work from the controller. It is
// satisfied by *notify.Scheduler.
type Reminder interface {
	EvaluateAll(ctx context.Context, tasks []domain.Task)
	Forget(taskID string)
}

// Controller mediates between callers and the backing store. Mutations apply
// optimistically: memory changes first, then the store; when the store
// rejects the change the user is alerted and the collection reloaded so
// memory matches the store again.
type Controller struct {
	store backend.Backend
	alert func(string)
	newID func() string

	mu       sync.Mutex
	tasks    []domain.Task
	reminder Reminder
}

// New creates a controller over store. alert is invoked with a user-facing
// message when a persistence failure forced a recovery; it may be nil.
func New(store backend.Backend, alert func(string)) *Controller {
	if alert == nil {
		alert = func(string) {}
	}
	return &Controller{
		store: store,
		alert: alert,
		newID: uuid.NewString,
	}
}

// AttachReminder wires the notification scheduler. The controller doubles as
// the scheduler's task source, so wiring happens after construction.
func (c *Controller) AttachReminder(r Reminder) {
	c.mu.Lock()
	c.reminder = r
	c.mu.Unlock()
}

// Load fetches the collection from the backing store, replaces the in-memory
// state and then evaluates notifications for every task. The returned slice
// is a snapshot the caller may keep.
func (c *Controller) Load(ctx context.Context) ([]domain.Task, error) {
	tasks, err := c.store.List(ctx)
	if err != nil {
		log.WithError(err).Error("load tasks")
		c.alert("Could not load your tasks.")
		return nil, err
	}

	c.mu.Lock()
	c.tasks = tasks
	reminder := c.reminder
	c.mu.Unlock()

	snap := c.snapshot()
	if reminder != nil {
		reminder.EvaluateAll(ctx, snap)
	}
	return snap, nil
}

// Create validates the task, assigns it a fresh unique id and persists it.
// The task appears in the in-memory collection immediately.
func (c *Controller) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	if err := t.Validate(); err != nil {
		log.WithError(err).WithField("label", t.Label).Warn("rejecting task")
		return domain.Task{}, err
	}

	c.mu.Lock()
	t.ID = c.uniqueIDLocked()
	c.tasks = append(c.tasks, t)
	domain.Sort(c.tasks)
	c.mu.Unlock()

	saved, err := c.store.Create(ctx, t)
	if err != nil {
		c.reloadAfterFailure(ctx, "save", err)
		return domain.Task{}, err
	}

	c.adopt(saved)
	return saved, nil
}

// Update replaces the task with the same id, in memory first, then in the
// backing store.
func (c *Controller) Update(ctx context.Context, t domain.Task) (domain.Task, error) {
	if err := t.Validate(); err != nil {
		log.WithError(err).WithField("task", t.ID).Warn("rejecting task update")
		return domain.Task{}, err
	}

	c.mu.Lock()
	found := false
	for i := range c.tasks {
		if c.tasks[i].ID == t.ID {
			c.tasks[i] = t
			found = true
			break
		}
	}
	if found {
		domain.Sort(c.tasks)
	}
	c.mu.Unlock()
	if !found {
		return domain.Task{}, fmt.Errorf("update task %s: %w", t.ID, domain.ErrTaskNotFound)
	}

	saved, err := c.store.Update(ctx, t)
	if err != nil {
		c.reloadAfterFailure(ctx, "save", err)
		return domain.Task{}, err
	}

	c.adopt(saved)
	return saved, nil
}

// Delete removes the task, in memory first, then in the backing store. A
// successful delete also drops the task's pending notification check.
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	kept := c.tasks[:0]
	found := false
	for _, t := range c.tasks {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	c.tasks = kept
	reminder := c.reminder
	c.mu.Unlock()
	if !found {
		return fmt.Errorf("delete task %s: %w", id, domain.ErrTaskNotFound)
	}

	if err := c.store.Delete(ctx, id); err != nil {
		c.reloadAfterFailure(ctx, "delete", err)
		return err
	}

	if reminder != nil {
		reminder.Forget(id)
	}
	return nil
}

// Tasks returns a sorted snapshot of the in-memory collection.
func (c *Controller) Tasks() []domain.Task {
	return c.snapshot()
}

// Task returns the current state of a single task. It serves the scheduler's
// deferred due-time checks.
func (c *Controller) Task(id string) (domain.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// uniqueIDLocked generates an id that does not collide with any task already
// in memory. Collisions are retried silently.
func (c *Controller) uniqueIDLocked() string {
	inUse := make(map[string]struct{}, len(c.tasks))
	for _, t := range c.tasks {
		inUse[t.ID] = struct{}{}
	}
	for {
		id := c.newID()
		if _, taken := inUse[id]; !taken {
			return id
		}
	}
}

// reloadAfterFailure is the single recovery path for persistence failures:
// alert the user, then reload from the backing store so the optimistic
// in-memory change is reconciled with what the store really holds.
func (c *Controller) reloadAfterFailure(ctx context.Context, op string, err error) {
	log.WithError(err).Errorf("%s task", op)
	c.alert("Could not " + op + " your task. The list was reloaded.")

	tasks, lerr := c.store.List(ctx)
	if lerr != nil {
		log.WithError(lerr).Error("reload tasks after failure")
		return
	}

	c.mu.Lock()
	c.tasks = tasks
	reminder := c.reminder
	c.mu.Unlock()

	if reminder != nil {
		reminder.EvaluateAll(ctx, c.snapshot())
	}
}

// adopt swaps in the stored version of a task after a successful write.
func (c *Controller) adopt(saved domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.tasks {
		if c.tasks[i].ID == saved.ID {
			c.tasks[i] = saved
			break
		}
	}
	domain.Sort(c.tasks)
}

func (c *Controller) snapshot() []domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}
