package tasklist

import (
	"context"
	"errors"
	"sync"

	"pocketplan/domain"
)

// fakeBackend keeps tasks in a map and can be told to fail specific
// operations. Every mutation records how often it was called.
type fakeBackend struct {
	mu    sync.Mutex
	tasks map[string]domain.Task

	failList   bool
	failCreate bool
	failUpdate bool
	failDelete bool

	listCalls   int
	createCalls int
	updateCalls int
	deleteCalls int
}

func newFakeBackend(seed ...domain.Task) *fakeBackend {
	fb := &fakeBackend{tasks: make(map[string]domain.Task)}
	for _, t := range seed {
		fb.tasks[t.ID] = t
	}
	return fb
}

func (f *fakeBackend) List(ctx context.Context) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList {
		return nil, errors.New("list failed")
	}
	out := make([]domain.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	domain.Sort(out)
	return out, nil
}

func (f *fakeBackend) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate {
		return domain.Task{}, errors.New("create failed")
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeBackend) Update(ctx context.Context, t domain.Task) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdate {
		return domain.Task{}, errors.New("update failed")
	}
	if _, ok := f.tasks[t.ID]; !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeBackend) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete {
		return errors.New("delete failed")
	}
	delete(f.tasks, id)
	return nil
}

// fakeReminder records which task ids were evaluated and forgotten.
type fakeReminder struct {
	mu        sync.Mutex
	evaluated [][]string
	forgotten []string
}

func (f *fakeReminder) EvaluateAll(ctx context.Context, tasks []domain.Task) {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	f.mu.Lock()
	f.evaluated = append(f.evaluated, ids)
	f.mu.Unlock()
}

func (f *fakeReminder) Forget(taskID string) {
	f.mu.Lock()
	f.forgotten = append(f.forgotten, taskID)
	f.mu.Unlock()
}
