package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"pocketplan/domain"
)

// Remote is the HTTP client for the tasks REST service. Request lifetimes are
// governed by the caller's context; the client imposes no deadline of its own.
type Remote struct {
	base   string
	client *http.Client
}

// NewRemote creates a client for the tasks service at baseURL, for example
// "http://localhost:8080".
func NewRemote(baseURL string) *Remote {
	return &Remote{
		base:   strings.TrimRight(baseURL, "/"),
		client: http.DefaultClient,
	}
}

// List fetches the whole collection. Dates are normalized during decoding and
// the result is sorted: incomplete tasks first, then ascending due date.
func (r *Remote) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	err := withRetry("list tasks", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/tasks", nil)
		if err != nil {
			return err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if !is2xx(resp.StatusCode) {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		var fetched []domain.Task
		if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&fetched); err != nil {
			return fmt.Errorf("decode task list: %w", err)
		}
		tasks = fetched
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

// Create persists a new task and returns the stored version.
func (r *Remote) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	return r.send(ctx, "create task", http.MethodPost, r.base+"/tasks", t)
}

// Update replaces the task with the same id and returns the stored version.
func (r *Remote) Update(ctx context.Context, t domain.Task) (domain.Task, error) {
	return r.send(ctx, "update task", http.MethodPut, r.taskURL(t.ID), t)
}

// Delete removes the task with the given id.
func (r *Remote) Delete(ctx context.Context, id string) error {
	return withRetry("delete task", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.taskURL(id), nil)
		if err != nil {
			return err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if !is2xx(resp.StatusCode) {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	})
}

func (r *Remote) send(ctx context.Context, name, method, target string, t domain.Task) (domain.Task, error) {
	body, err := sonic.Marshal(t)
	if err != nil {
		return domain.Task{}, fmt.Errorf("%s: %w", name, err)
	}
	var saved domain.Task
	err = withRetry(name, func() error {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if !is2xx(resp.StatusCode) {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		saved = domain.Task{}
		return sonic.ConfigStd.NewDecoder(resp.Body).Decode(&saved)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return saved, nil
}

func (r *Remote) taskURL(id string) string {
	return r.base + "/tasks/" + url.PathEscape(id)
}

func is2xx(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
