// Package service is the seam between commands and the task store, the
// location cache and the durable backend.
package service

import (
	"context"

	"geotask/internal/location"
	"geotask/internal/task"
)

// Service defines the operations available to commands.
// Commands never touch storage or the location provider directly.
type Service interface {
	// Tasks returns all tasks in insertion order.
	Tasks(ctx context.Context) ([]task.Task, error)

	// Task returns one task by id, or ErrTaskNotFound.
	Task(ctx context.Context, id string) (task.Task, error)

	// AddTask creates a task and makes it durable.
	AddTask(ctx context.Context, in task.Input) (task.Task, error)

	// UpdateTask merges p into a task and returns the result.
	UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error)

	// CompleteTask marks a task complete, stamping the completion time.
	CompleteTask(ctx context.Context, id string) (task.Task, error)

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id string) error

	// Location returns the last known position without querying the device.
	Location(ctx context.Context) (location.Reading, bool)

	// Where performs one refresh attempt and fits a map region around the
	// user and every task zone.
	Where(ctx context.Context) (Where, error)

	// RequestPermissions asks for foreground then background access.
	RequestPermissions(ctx context.Context) (location.Permissions, error)

	// Watch polls the location until ctx is done, calling fn on each change.
	Watch(ctx context.Context, fn func(location.Reading)) error

	// Close flushes pending writes and releases the backend.
	Close() error
}
