package testutil

import (
	"context"
	"errors"
	"sync"

	"geotask/internal/location"
)

// FakeProvider is a scriptable location.Provider.
type FakeProvider struct {
	mu         sync.Mutex
	foreground location.PermissionStatus
	background location.PermissionStatus
	position   location.Reading
	sinks      map[string]chan<- location.Update

	foregroundCalls int
	backgroundCalls int
	positionCalls   int
	stopCalls       int

	// Error injection for testing
	ForegroundErr error
	BackgroundErr error
	PositionErr   error
	StartErr      error
}

// NewFakeProvider creates a provider that grants both permissions.
func NewFakeProvider(position location.Reading) *FakeProvider {
	return &FakeProvider{
		foreground: location.PermissionGranted,
		background: location.PermissionGranted,
		position:   position,
		sinks:      make(map[string]chan<- location.Update),
	}
}

// SetPermissions changes the answers to permission requests.
func (f *FakeProvider) SetPermissions(foreground, background location.PermissionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.foreground = foreground
	f.background = background
}

// SetPosition changes the live query result.
func (f *FakeProvider) SetPosition(r location.Reading, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = r
	f.PositionErr = err
}

// RequestForegroundPermission implements location.Provider.
func (f *FakeProvider) RequestForegroundPermission(ctx context.Context) (location.PermissionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.foregroundCalls++
	if f.ForegroundErr != nil {
		return location.PermissionUndetermined, f.ForegroundErr
	}
	return f.foreground, nil
}

// RequestBackgroundPermission implements location.Provider.
func (f *FakeProvider) RequestBackgroundPermission(ctx context.Context) (location.PermissionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backgroundCalls++
	if f.BackgroundErr != nil {
		return location.PermissionUndetermined, f.BackgroundErr
	}
	return f.background, nil
}

// CurrentPosition implements location.Provider.
func (f *FakeProvider) CurrentPosition(ctx context.Context) (location.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positionCalls++
	if f.PositionErr != nil {
		return location.Reading{}, f.PositionErr
	}
	return f.position, nil
}

// StartUpdates implements location.Provider.
func (f *FakeProvider) StartUpdates(ctx context.Context, name string, opts location.UpdateOptions, sink chan<- location.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	f.sinks[name] = sink
	return nil
}

// IsRegistered implements location.Provider.
func (f *FakeProvider) IsRegistered(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sinks[name]
	return ok, nil
}

// StopUpdates implements location.Provider.
func (f *FakeProvider) StopUpdates(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sinks[name]; !ok {
		return errors.New("task not registered")
	}
	delete(f.sinks, name)
	f.stopCalls++
	return nil
}

// Deliver sends an update to a registered background task.
// Returns false if no task is registered under name.
func (f *FakeProvider) Deliver(name string, u location.Update) bool {
	f.mu.Lock()
	sink, ok := f.sinks[name]
	f.mu.Unlock()
	if !ok {
		return false
	}
	sink <- u
	return true
}

// ForegroundCalls returns the number of foreground permission requests.
func (f *FakeProvider) ForegroundCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.foregroundCalls
}

// BackgroundCalls returns the number of background permission requests.
func (f *FakeProvider) BackgroundCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backgroundCalls
}

// PositionCalls returns the number of live queries.
func (f *FakeProvider) PositionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positionCalls
}

// StopCalls returns the number of successful StopUpdates calls.
func (f *FakeProvider) StopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

// FakeConnectivity is a switchable location.Connectivity.
type FakeConnectivity struct {
	mu     sync.Mutex
	online bool
	err    error
}

// NewFakeConnectivity creates a checker reporting online.
func NewFakeConnectivity(online bool) *FakeConnectivity {
	return &FakeConnectivity{online: online}
}

// Set changes the reported state.
func (f *FakeConnectivity) Set(online bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = online
	f.err = err
}

// IsConnected implements location.Connectivity.
func (f *FakeConnectivity) IsConnected(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online, f.err
}

// Reading builds a reading at the given position and time.
func Reading(lat, lng float64, ts int64) location.Reading {
	return location.Reading{
		Coords:    location.Coords{Latitude: lat, Longitude: lng},
		Timestamp: ts,
	}
}
