package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"pocketplan/domain"
)

// tableClient is the slice of aztables.Client the store depends on.
type tableClient interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(listOptions *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// Store persists tasks in an Azure Storage table. All tasks of a deployment
// share one partition; the row key is the task id.
type Store struct {
	table     tableClient
	partition string
	breaker   *gobreaker.CircuitBreaker
}

// New creates a Store from the given connection string.
func New(connStr, table, partition string) (*Store, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	return &Store{
		table:     svc.NewClient(table),
		partition: partition,
		breaker:   newTableBreaker(),
	}, nil
}

func newTableBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "task-table",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s changed from %s to %s", name, from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			// Conflicts and misses are caller mistakes, not table outages.
			return err == nil || errors.Is(err, domain.ErrTaskExists) || errors.Is(err, domain.ErrTaskNotFound)
		},
	})
}

type taskEntity struct {
	aztables.Entity
	Label string      `json:"Label"`
	Done  bool        `json:"Done"`
	Due   domain.Time `json:"Due"`
}

func newTaskEntity(partition string, t domain.Task) taskEntity {
	return taskEntity{
		Entity: aztables.Entity{PartitionKey: partition, RowKey: t.ID},
		Label:  t.Label,
		Done:   t.Done,
		Due:    t.Due,
	}
}

func (e taskEntity) task() domain.Task {
	return domain.Task{ID: e.RowKey, Label: e.Label, Done: e.Done, Due: e.Due}
}

// ListTasks retrieves every task in the store's partition.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		filter := "PartitionKey eq '" + s.partition + "'"
		pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
		tasks := []domain.Task{}
		for pager.More() {
			resp, err := pager.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			for _, raw := range resp.Entities {
				var ent taskEntity
				if err := json.Unmarshal(raw, &ent); err != nil {
					return nil, err
				}
				tasks = append(tasks, ent.task())
			}
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.Task), nil
}

// CreateTask inserts a new row for the task. A task with the same id must not
// already exist.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		data, err := json.Marshal(newTaskEntity(s.partition, t))
		if err != nil {
			return nil, err
		}
		if _, err := s.table.AddEntity(ctx, data, nil); err != nil {
			return nil, mapEntityError(err, t.ID)
		}
		return nil, nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// UpdateTask replaces the stored row for the task's id.
func (s *Store) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		data, err := json.Marshal(newTaskEntity(s.partition, t))
		if err != nil {
			return nil, err
		}
		opts := &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace}
		if _, err := s.table.UpdateEntity(ctx, data, opts); err != nil {
			return nil, mapEntityError(err, t.ID)
		}
		return nil, nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask removes the row for the given id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		if _, err := s.table.DeleteEntity(ctx, s.partition, id, nil); err != nil {
			return nil, mapEntityError(err, id)
		}
		return nil, nil
	})
	return err
}

func mapEntityError(err error, id string) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	switch respErr.StatusCode {
	case http.StatusConflict:
		return fmt.Errorf("task %s: %w", id, domain.ErrTaskExists)
	case http.StatusNotFound:
		return fmt.Errorf("task %s: %w", id, domain.ErrTaskNotFound)
	}
	return err
}
