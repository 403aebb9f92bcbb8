package domain

import "errors"

// ErrEmptyLabel rejects a task whose label is blank.
var ErrEmptyLabel = errors.New("task label is empty")

// ErrMissingDue rejects a task without a due date.
var ErrMissingDue = errors.New("task due date is missing")

// ErrTaskNotFound indicates the referenced task is not in the stored collection.
var ErrTaskNotFound = errors.New("task not found")

// ErrTaskExists indicates an insert collided with an already stored task id.
var ErrTaskExists = errors.New("task already exists")
