package domain

import (
	"sort"
	"strings"
)

// Task is a single to-do item in the task list.
type Task struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
	Done  bool   `json:"done"`
	Due   Time   `json:"date"`
}

// Validate rejects tasks that must not reach a backing store: a blank label
// or a missing due date.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Label) == "" {
		return ErrEmptyLabel
	}
	if t.Due.IsZero() {
		return ErrMissingDue
	}
	return nil
}

// Sort orders a collection for display: incomplete tasks before completed
// ones, ascending due date within each group. The sort is stable.
func Sort(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Done != tasks[j].Done {
			return !tasks[i].Done
		}
		return tasks[i].Due.Before(tasks[j].Due.Time)
	})
}
