// Package task owns the canonical task collection and mirrors it to durable storage.
package task

import (
	"fmt"
	"strings"
)

// Priority is the user-assigned importance of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority parses a priority name (case-insensitive, trimmed).
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %s", s)
	}
	return p, nil
}

// Location is the circular zone a task is bound to.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Radius    int     `json:"radius" yaml:"radius"` // meters
}

// Task is a reminder bound to a geographic zone.
type Task struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Priority    Priority `json:"priority" yaml:"priority"`
	Location    Location `json:"location" yaml:"location"`
	TriggerTime string   `json:"triggerTime,omitempty" yaml:"triggerTime,omitempty"` // "HH:MM", not validated
	IsComplete  bool     `json:"isComplete" yaml:"isComplete"`
	IsRecurring bool     `json:"isRecurring" yaml:"isRecurring"`
	CreatedAt   int64    `json:"createdAt" yaml:"createdAt"`                         // epoch ms
	CompletedAt *int64   `json:"completedAt,omitempty" yaml:"completedAt,omitempty"` // epoch ms
}

func (t Task) clone() Task {
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		t.CompletedAt = &v
	}
	return t
}

// Input is the caller-supplied part of a new task.
// The store assigns ID, CreatedAt and IsComplete.
type Input struct {
	Title       string
	Description string
	Priority    Priority
	Location    Location
	TriggerTime string
	IsRecurring bool
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Location    *Location
	TriggerTime *string
	IsRecurring *bool
	IsComplete  *bool
	CompletedAt *int64

	// ClearCompletedAt removes the completion time. CompletedAt wins if
	// both are set.
	ClearCompletedAt bool
}

// IsEmpty reports whether the patch sets no field.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Location == nil && p.TriggerTime == nil && p.IsRecurring == nil &&
		p.IsComplete == nil && p.CompletedAt == nil && !p.ClearCompletedAt
}

func (p Patch) apply(t *Task) {
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
		v := *p.CompletedAt
		t.CompletedAt = &v
	}
}

// Ptr returns a pointer to v. Handy for building a Patch.
func Ptr[T any](v T) *T {
	return &v
}
