// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"geotask/internal/geo"
	"geotask/internal/location"
	"geotask/internal/service"
	"geotask/internal/task"
)

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu      sync.RWMutex
	tasks   []task.Task
	nextID  int
	now     int64
	reading location.Reading
	known   bool
	perms   location.Permissions
	watch   []location.Reading
	closed  bool

	// Error injection for testing
	TasksErr       error
	AddTaskErr     error
	UpdateTaskErr  error
	CompleteErr    error
	DeleteTaskErr  error
	WhereErr       error
	PermissionsErr error
	WatchErr       error
	CloseErr       error

	// WhereSource is reported by Where.
	WhereSource location.Source
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{now: 1_700_000_000_000, WhereSource: location.SourceLive}
}

// Seed adds a task with a predictable id ("task-1", "task-2", ...).
func (f *FakeService) Seed(in task.Input) task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.add(in)
}

func (f *FakeService) add(in task.Input) task.Task {
	f.nextID++
	f.now++
	t := task.Task{
		ID:          fmt.Sprintf("task-%d", f.nextID),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Location:    in.Location,
		TriggerTime: in.TriggerTime,
		IsRecurring: in.IsRecurring,
		CreatedAt:   f.now,
	}
	f.tasks = append(f.tasks, t)
	return t
}

// SetLocation sets the value reported by Location and Where.
func (f *FakeService) SetLocation(r location.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = r
	f.known = true
}

// SetPermissions sets the value reported by RequestPermissions.
func (f *FakeService) SetPermissions(p location.Permissions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perms = p
}

// SetWatchReadings sets the readings Watch reports before returning.
func (f *FakeService) SetWatchReadings(rs ...location.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watch = rs
}

// Closed reports whether Close was called.
func (f *FakeService) Closed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}

// Tasks implements service.Service.
func (f *FakeService) Tasks(ctx context.Context) ([]task.Task, error) {
	if f.TasksErr != nil {
		return nil, f.TasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]task.Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

// Task implements service.Service.
func (f *FakeService) Task(ctx context.Context, id string) (task.Task, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if i := f.indexOf(id); i >= 0 {
		return f.tasks[i], nil
	}
	return task.Task{}, fmt.Errorf("%w: %s", service.ErrTaskNotFound, id)
}

// AddTask implements service.Service.
func (f *FakeService) AddTask(ctx context.Context, in task.Input) (task.Task, error) {
	if f.AddTaskErr != nil {
		return task.Task{}, f.AddTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.add(in), nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	if f.UpdateTaskErr != nil {
		return task.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("%w: %s", service.ErrTaskNotFound, id)
	}
	t := &f.tasks[i]
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.TriggerTime != nil {
		t.TriggerTime = *p.TriggerTime
	}
	if p.IsRecurring != nil {
		t.IsRecurring = *p.IsRecurring
	}
	if p.IsComplete != nil {
		t.IsComplete = *p.IsComplete
	}
	if p.ClearCompletedAt {
		t.CompletedAt = nil
	}
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		t.CompletedAt = &at
	}
	return *t, nil
}

// CompleteTask implements service.Service.
func (f *FakeService) CompleteTask(ctx context.Context, id string) (task.Task, error) {
	if f.CompleteErr != nil {
		return task.Task{}, f.CompleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("%w: %s", service.ErrTaskNotFound, id)
	}
	f.now++
	at := f.now
	f.tasks[i].IsComplete = true
	f.tasks[i].CompletedAt = &at
	return f.tasks[i], nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", service.ErrTaskNotFound, id)
	}
	f.tasks = append(f.tasks[:i:i], f.tasks[i+1:]...)
	return nil
}

// Location implements service.Service.
func (f *FakeService) Location(ctx context.Context) (location.Reading, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.reading, f.known
}

// Where implements service.Service.
func (f *FakeService) Where(ctx context.Context) (service.Where, error) {
	if f.WhereErr != nil {
		return service.Where{}, f.WhereErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	w := service.Where{
		Attempt: location.Attempt{Source: f.WhereSource},
		Reading: f.reading,
		Known:   f.known,
	}
	if f.WhereSource == location.SourceLive || f.WhereSource == location.SourceStored {
		w.Attempt.Reading = f.reading
	}
	if f.known {
		var zones []geo.Point
		for _, t := range f.tasks {
			zones = append(zones, geo.Point{Latitude: t.Location.Latitude, Longitude: t.Location.Longitude})
		}
		w.Region = geo.Fit(geo.Point{Latitude: f.reading.Coords.Latitude, Longitude: f.reading.Coords.Longitude}, zones)
	}
	return w, nil
}

// RequestPermissions implements service.Service.
func (f *FakeService) RequestPermissions(ctx context.Context) (location.Permissions, error) {
	if f.PermissionsErr != nil {
		return location.Permissions{}, f.PermissionsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.perms, nil
}

// Watch implements service.Service. It reports the configured readings and
// returns without waiting for ctx.
func (f *FakeService) Watch(ctx context.Context, fn func(location.Reading)) error {
	if f.WatchErr != nil {
		return f.WatchErr
	}
	f.mu.RLock()
	readings := append([]location.Reading(nil), f.watch...)
	f.mu.RUnlock()
	for _, r := range readings {
		fn(r)
	}
	return nil
}

// Close implements service.Service.
func (f *FakeService) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.CloseErr
}

func (f *FakeService) indexOf(id string) int {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
