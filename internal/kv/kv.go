// Package kv defines the durable key/value slots the task store and location
// cache persist into. Each slot holds one serialized value.
package kv

import (
	"context"
	"errors"
)

// Slot keys.
const (
	// TasksKey holds the serialized task collection.
	TasksKey = "@tasks"

	// TasksCorruptKey holds the raw bytes of a task collection that could not be parsed.
	TasksCorruptKey = "@tasks.corrupt"

	// LocationKey holds the last successful location reading.
	LocationKey = "@userLocation"
)

// ErrNotFound is returned by Get when a slot has never been written.
var ErrNotFound = errors.New("slot not found")

// ErrStorage marks failures of the underlying storage medium.
var ErrStorage = errors.New("storage failure")

// Store is a durable key/value store of named slots.
// Backends in this module: bolt (file), sqlite and Memory.
type Store interface {
	// Get returns the value of a slot, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value of a slot.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases the backend.
	Close() error
}
