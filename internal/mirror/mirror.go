// Package mirror pushes the local task collection into a remote task list.
//
// Local tasks are the source of truth. Remote entries created by a push carry
// a marker line in their notes naming the local id; entries without the
// marker belong to the user and are never touched.
package mirror

import (
	"context"
	"fmt"
	"strings"

	"geotask/internal/task"
)

// Marker prefixes the notes line that links a remote entry to a local task.
const Marker = "geotask-id:"

// Remote task statuses.
const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

// RemoteTask is one entry of a remote list.
type RemoteTask struct {
	ID     string
	Title  string
	Notes  string
	Status string
}

// LocalID returns the linked local id, if the entry carries the marker.
func (r RemoteTask) LocalID() (string, bool) {
	for _, line := range strings.Split(r.Notes, "\n") {
		if id, ok := strings.CutPrefix(strings.TrimSpace(line), Marker); ok {
			id = strings.TrimSpace(id)
			return id, id != ""
		}
	}
	return "", false
}

// Remote is a task list service.
type Remote interface {
	// EnsureList returns the id of the list named name, creating it if needed.
	EnsureList(ctx context.Context, name string) (string, error)

	// ListTasks returns every entry of a list, completed ones included.
	ListTasks(ctx context.Context, listID string) ([]RemoteTask, error)

	// InsertTask creates an entry.
	InsertTask(ctx context.Context, listID string, t RemoteTask) error

	// PatchTask overwrites title, notes and status of an entry.
	PatchTask(ctx context.Context, listID string, t RemoteTask) error

	// DeleteTask removes an entry.
	DeleteTask(ctx context.Context, listID, taskID string) error
}

// Plan is the set of remote changes that makes a list match local tasks.
type Plan struct {
	Insert    []RemoteTask
	Patch     []RemoteTask
	Delete    []string
	Unchanged int
}

// Result summarizes a push.
type Result struct {
	Inserted  int
	Updated   int
	Deleted   int
	Unchanged int
}

// Notes renders the notes of the remote entry for t.
func Notes(t task.Task) string {
	var b strings.Builder
	if t.Description != "" {
		b.WriteString(t.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Location: %.6f,%.6f (radius %dm)\n", t.Location.Latitude, t.Location.Longitude, t.Location.Radius)
	fmt.Fprintf(&b, "Priority: %s\n", t.Priority)
	if t.TriggerTime != "" {
		fmt.Fprintf(&b, "At: %s\n", t.TriggerTime)
	}
	if t.IsRecurring {
		b.WriteString("Recurring\n")
	}
	b.WriteString(Marker + " " + t.ID)
	return b.String()
}

func toRemote(t task.Task) RemoteTask {
	status := StatusNeedsAction
	if t.IsComplete {
		status = StatusCompleted
	}
	return RemoteTask{Title: t.Title, Notes: Notes(t), Status: status}
}

// Diff computes the plan for making remote match local. Entries linked to the
// same local id more than once are reduced to the first.
func Diff(local []task.Task, remote []RemoteTask) Plan {
	var p Plan

	linked := make(map[string]RemoteTask)
	for _, r := range remote {
		id, ok := r.LocalID()
		if !ok {
			continue
		}
		if _, dup := linked[id]; dup {
			p.Delete = append(p.Delete, r.ID)
			continue
		}
		linked[id] = r
	}

	seen := make(map[string]bool, len(local))
	for _, t := range local {
		seen[t.ID] = true
		want := toRemote(t)
		have, ok := linked[t.ID]
		if !ok {
			p.Insert = append(p.Insert, want)
			continue
		}
		if have.Title == want.Title && have.Notes == want.Notes && have.Status == want.Status {
			p.Unchanged++
			continue
		}
		want.ID = have.ID
		p.Patch = append(p.Patch, want)
	}

	for _, r := range remote {
		id, ok := r.LocalID()
		if !ok || seen[id] {
			continue
		}
		if linked[id].ID == r.ID {
			p.Delete = append(p.Delete, r.ID)
		}
	}
	return p
}

// Push makes the list named listName match local. It stops at the first
// remote failure; changes applied before it stay applied.
func Push(ctx context.Context, r Remote, listName string, local []task.Task) (Result, error) {
	var res Result

	listID, err := r.EnsureList(ctx, listName)
	if err != nil {
		return res, fmt.Errorf("resolve list %q: %w", listName, err)
	}
	remote, err := r.ListTasks(ctx, listID)
	if err != nil {
		return res, fmt.Errorf("list remote tasks: %w", err)
	}

	plan := Diff(local, remote)
	res.Unchanged = plan.Unchanged

	for _, t := range plan.Insert {
		if err := r.InsertTask(ctx, listID, t); err != nil {
			return res, fmt.Errorf("insert %q: %w", t.Title, err)
		}
		res.Inserted++
	}
	for _, t := range plan.Patch {
		if err := r.PatchTask(ctx, listID, t); err != nil {
			return res, fmt.Errorf("update %q: %w", t.Title, err)
		}
		res.Updated++
	}
	for _, id := range plan.Delete {
		if err := r.DeleteTask(ctx, listID, id); err != nil {
			return res, fmt.Errorf("delete %s: %w", id, err)
		}
		res.Deleted++
	}
	return res, nil
}
