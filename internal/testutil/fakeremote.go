package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"geotask/internal/mirror"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = errors.New("not found")

// FakeRemote is an in-memory implementation of mirror.Remote for testing.
type FakeRemote struct {
	mu     sync.Mutex
	lists  map[string]string // title -> id
	tasks  map[string][]mirror.RemoteTask
	nextID int

	// Error injection for testing
	EnsureListErr error
	ListTasksErr  error
	InsertErr     error
	PatchErr      error
	DeleteErr     error
}

// NewFakeRemote creates an empty FakeRemote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		lists: make(map[string]string),
		tasks: make(map[string][]mirror.RemoteTask),
	}
}

// AddList adds a list and returns its id.
func (f *FakeRemote) AddList(title string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addList(title)
}

func (f *FakeRemote) addList(title string) string {
	f.nextID++
	id := fmt.Sprintf("list-%d", f.nextID)
	f.lists[title] = id
	return id
}

// AddTask adds an entry to a list and returns its id.
func (f *FakeRemote) AddTask(listID string, t mirror.RemoteTask) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addTask(listID, t)
}

func (f *FakeRemote) addTask(listID string, t mirror.RemoteTask) string {
	f.nextID++
	t.ID = fmt.Sprintf("remote-%d", f.nextID)
	f.tasks[listID] = append(f.tasks[listID], t)
	return t.ID
}

// Entries returns the entries of a list.
func (f *FakeRemote) Entries(listID string) []mirror.RemoteTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mirror.RemoteTask(nil), f.tasks[listID]...)
}

// ListID returns the id of a list by title.
func (f *FakeRemote) ListID(title string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.lists[title]
	return id, ok
}

// EnsureList implements mirror.Remote.
func (f *FakeRemote) EnsureList(ctx context.Context, name string) (string, error) {
	if f.EnsureListErr != nil {
		return "", f.EnsureListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for title, id := range f.lists {
		if strings.EqualFold(strings.TrimSpace(title), strings.TrimSpace(name)) {
			return id, nil
		}
	}
	return f.addList(name), nil
}

// ListTasks implements mirror.Remote.
func (f *FakeRemote) ListTasks(ctx context.Context, listID string) ([]mirror.RemoteTask, error) {
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	return f.Entries(listID), nil
}

// InsertTask implements mirror.Remote.
func (f *FakeRemote) InsertTask(ctx context.Context, listID string, t mirror.RemoteTask) error {
	if f.InsertErr != nil {
		return f.InsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addTask(listID, t)
	return nil
}

// PatchTask implements mirror.Remote.
func (f *FakeRemote) PatchTask(ctx context.Context, listID string, t mirror.RemoteTask) error {
	if f.PatchErr != nil {
		return f.PatchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks[listID] {
		if f.tasks[listID][i].ID == t.ID {
			f.tasks[listID][i] = t
			return nil
		}
	}
	return ErrNotFound
}

// DeleteTask implements mirror.Remote.
func (f *FakeRemote) DeleteTask(ctx context.Context, listID, taskID string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.tasks[listID]
	for i := range entries {
		if entries[i].ID == taskID {
			f.tasks[listID] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
