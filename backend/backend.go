// Package backend provides the backing-store clients the task list is
// synchronized against: a remote tasks REST service and a device-local Redis
// store. Both present the same contract and the same failure behavior, so the
// controller never knows which one it drives.
package backend

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"pocketplan/domain"
)

// Backend is the persistence contract for a task collection.
type Backend interface {
	List(ctx context.Context) ([]domain.Task, error)
	Create(ctx context.Context, t domain.Task) (domain.Task, error)
	Update(ctx context.Context, t domain.Task) (domain.Task, error)
	Delete(ctx context.Context, id string) error
}

// maxAttempts is the total number of tries for every store operation.
// Retries fire immediately, with no backoff and no per-attempt deadline.
const maxAttempts = 3

// withRetry runs op up to maxAttempts times and wraps the terminal failure
// with the operation name and attempt count.
func withRetry(name string, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		log.WithError(err).WithField("op", name).Debugf("attempt %d/%d failed", attempt, maxAttempts)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, maxAttempts, err)
}
