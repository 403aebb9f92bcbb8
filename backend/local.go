package backend

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"pocketplan/domain"
)

// DefaultKey is the single key the whole task collection is stored under.
const DefaultKey = "tasks"

// Local is the on-device store: the entire collection serialized as one JSON
// blob under a single Redis key. Mutations rewrite the whole blob; there is
// no per-task granularity.
type Local struct {
	redis *redis.Client
	key   string
}

// NewLocal creates a device-local store on client. An empty key selects
// DefaultKey.
func NewLocal(client *redis.Client, key string) *Local {
	if key == "" {
		key = DefaultKey
	}
	return &Local{redis: client, key: key}
}

// List loads the stored collection. A missing key is an empty collection,
// never an error. Dates are normalized during decoding and the result is
// sorted like the remote list.
func (l *Local) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	err := withRetry("load tasks", func() error {
		data, err := l.redis.Get(ctx, l.key).Bytes()
		if err == redis.Nil {
			tasks = []domain.Task{}
			return nil
		}
		if err != nil {
			return err
		}
		var stored []domain.Task
		if err := sonic.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("decode stored tasks: %w", err)
		}
		tasks = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	domain.Sort(tasks)
	return tasks, nil
}

// Save overwrites the stored collection with a single SET.
func (l *Local) Save(ctx context.Context, tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	return withRetry("save tasks", func() error {
		return l.redis.Set(ctx, l.key, data, 0).Err()
	})
}

// Create appends the task and rewrites the blob.
func (l *Local) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	tasks, err := l.List(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	for _, existing := range tasks {
		if existing.ID == t.ID {
			return domain.Task{}, fmt.Errorf("create task %s: %w", t.ID, domain.ErrTaskExists)
		}
	}
	tasks = append(tasks, t)
	if err := l.Save(ctx, tasks); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// Update replaces the stored task with the same id and rewrites the blob.
func (l *Local) Update(ctx context.Context, t domain.Task) (domain.Task, error) {
	tasks, err := l.List(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	replaced := false
	for i := range tasks {
		if tasks[i].ID == t.ID {
			tasks[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		return domain.Task{}, fmt.Errorf("update task %s: %w", t.ID, domain.ErrTaskNotFound)
	}
	if err := l.Save(ctx, tasks); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// Delete drops the stored task with the given id and rewrites the blob.
func (l *Local) Delete(ctx context.Context, id string) error {
	tasks, err := l.List(ctx)
	if err != nil {
		return err
	}
	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tasks) {
		return fmt.Errorf("delete task %s: %w", id, domain.ErrTaskNotFound)
	}
	return l.Save(ctx, kept)
}
