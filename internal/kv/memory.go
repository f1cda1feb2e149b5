package kv

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It is used by tests and by the memory backend.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
	sets  int

	// Error injection for testing
	GetErr error
	SetErr error
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.slots[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.slots[key] = v
	m.sets++
	return nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

// SetFailures replaces the injected errors under the store lock.
func (m *Memory) SetFailures(getErr, setErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetErr = getErr
	m.SetErr = setErr
}

// Writes returns the number of successful Set calls.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}
