package notify

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"pocketplan/domain"
)

// DefaultDueSoonWindow is how far ahead of the due instant a task counts as
// due soon.
const DefaultDueSoonWindow = time.Hour

const notificationTitle = "Task due"

// Scheduler turns task state into notification activity. Evaluating a task
// first drops any deferred check already pending for it, so repeated
// evaluation cycles replace timers instead of accumulating them.
type Scheduler struct {
	notifier Notifier
	source   TaskSource
	window   time.Duration
	now      func() time.Time

	mu     sync.Mutex
	timers map[uint32]*time.Timer
}

// NewScheduler creates a scheduler delivering through notifier and reading
// current task state from source. A window of zero or less selects
// DefaultDueSoonWindow.
func NewScheduler(notifier Notifier, source TaskSource, window time.Duration) *Scheduler {
	if window <= 0 {
		window = DefaultDueSoonWindow
	}
	return &Scheduler{
		notifier: notifier,
		source:   source,
		window:   window,
		now:      time.Now,
		timers:   make(map[uint32]*time.Timer),
	}
}

// Evaluate applies the notification policy for a single task:
//
//   - done: nothing fires, a pending deferred check is dropped
//   - overdue (due at or before now): the task's notification is canceled and
//     re-scheduled to fire immediately
//   - due within the window: a deferred check is armed for the due instant
//     and re-evaluates the task's current state when it fires
//   - due beyond the window: nothing fires, a pending deferred check is dropped
//
// Notifier failures are logged, not propagated; delivery is best effort.
func (s *Scheduler) Evaluate(ctx context.Context, t domain.Task) {
	id := NumericID(t.ID)
	s.dropTimer(id)
	if t.Done {
		return
	}

	now := s.now()
	due := t.Due.Time
	switch {
	case !due.After(now):
		s.fire(ctx, t, now)
	case due.Sub(now) <= s.window:
		s.armCheck(id, t.ID, due.Sub(now))
	}
}

// EvaluateAll applies Evaluate to every task in the collection.
func (s *Scheduler) EvaluateAll(ctx context.Context, tasks []domain.Task) {
	for _, t := range tasks {
		s.Evaluate(ctx, t)
	}
}

// Forget drops any pending deferred check for a deleted task.
func (s *Scheduler) Forget(taskID string) {
	s.dropTimer(NumericID(taskID))
}

// Stop drops every pending deferred check.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) fire(ctx context.Context, t domain.Task, at time.Time) {
	id := NumericID(t.ID)
	if err := s.notifier.Cancel(ctx, id); err != nil {
		log.WithError(err).WithField("task", t.ID).Warn("cancel notification")
	}
	n := Notification{ID: id, Title: notificationTitle, Body: t.Label, At: at}
	if err := s.notifier.Schedule(ctx, n); err != nil {
		log.WithError(err).WithField("task", t.ID).Warn("schedule notification")
	}
}

func (s *Scheduler) armCheck(id uint32, taskID string, wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
	}
	s.timers[id] = time.AfterFunc(wait, func() { s.recheck(id, taskID) })
}

// recheck runs at the due instant of a task that was due soon when last
// evaluated. Only a task that is still present, still not done and now
// overdue produces a notification.
func (s *Scheduler) recheck(id uint32, taskID string) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()

	if s.source == nil {
		return
	}
	t, ok := s.source.Task(taskID)
	if !ok || t.Done {
		return
	}
	now := s.now()
	if !t.Due.After(now) {
		s.fire(context.Background(), t, now)
	}
}

func (s *Scheduler) dropTimer(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}
