// Package fixed implements location.Provider for hosts without a positioning
// device: the position comes from configuration.
package fixed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"geotask/internal/location"
)

// Provider reports a configured position. Without one, every permission
// request is denied.
type Provider struct {
	coords *location.Coords
	now    func() time.Time

	mu    sync.Mutex
	tasks map[string]*background
}

type background struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a provider. coords may be nil.
func New(coords *location.Coords) *Provider {
	return &Provider{
		coords: coords,
		now:    time.Now,
		tasks:  make(map[string]*background),
	}
}

// NewWithClock creates a provider with a custom time source (for testing).
func NewWithClock(coords *location.Coords, now func() time.Time) *Provider {
	p := New(coords)
	p.now = now
	return p
}

func (p *Provider) status() location.PermissionStatus {
	if p.coords == nil {
		return location.PermissionDenied
	}
	return location.PermissionGranted
}

// RequestForegroundPermission implements location.Provider.
func (p *Provider) RequestForegroundPermission(ctx context.Context) (location.PermissionStatus, error) {
	return p.status(), nil
}

// RequestBackgroundPermission implements location.Provider.
func (p *Provider) RequestBackgroundPermission(ctx context.Context) (location.PermissionStatus, error) {
	return p.status(), nil
}

// CurrentPosition implements location.Provider.
func (p *Provider) CurrentPosition(ctx context.Context) (location.Reading, error) {
	if err := ctx.Err(); err != nil {
		return location.Reading{}, err
	}
	if p.coords == nil {
		return location.Reading{}, location.ErrPermissionDenied
	}
	return p.reading(), nil
}

func (p *Provider) reading() location.Reading {
	return location.Reading{Coords: *p.coords, Timestamp: p.now().UnixMilli()}
}

// StartUpdates re-emits the configured position every opts.TimeInterval.
func (p *Provider) StartUpdates(ctx context.Context, name string, opts location.UpdateOptions, sink chan<- location.Update) error {
	if p.coords == nil {
		return location.ErrPermissionDenied
	}
	interval := opts.TimeInterval
	if interval <= 0 {
		interval = location.DefaultInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tasks[name]; ok {
		return fmt.Errorf("task already registered: %s", name)
	}

	// registration outlives the request that made it
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	bg := &background{cancel: cancel, done: make(chan struct{})}
	p.tasks[name] = bg

	go func() {
		defer close(bg.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-taskCtx.Done():
				return
			case <-ticker.C:
				select {
				case sink <- location.Update{Locations: []location.Reading{p.reading()}}:
				case <-taskCtx.Done():
					return
				}
			}
		}
	}()
	return nil
}

// IsRegistered implements location.Provider.
func (p *Provider) IsRegistered(ctx context.Context, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tasks[name]
	return ok, nil
}

// StopUpdates implements location.Provider.
func (p *Provider) StopUpdates(ctx context.Context, name string) error {
	p.mu.Lock()
	bg, ok := p.tasks[name]
	delete(p.tasks, name)
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("task not registered: %s", name)
	}
	bg.cancel()
	select {
	case <-bg.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
