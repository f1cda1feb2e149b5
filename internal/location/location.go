// Package location keeps a best-effort current device position that survives
// restarts, missing permission and lost connectivity.
//
// The platform is reached only through the Provider and Connectivity
// interfaces; geofence evaluation stays with the platform.
package location

import (
	"context"
	"errors"
	"time"
)

// BackgroundTaskName is the name background updates are registered under.
const BackgroundTaskName = "background-location-task"

// DefaultInterval is the polling period of a Cache.
const DefaultInterval = 60 * time.Second

var (
	// ErrPermissionDenied is reported when the user refused location access.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrOffline is reported when no network is available for a live query.
	ErrOffline = errors.New("no internet connection")
)

// Coords is the position part of a reading. Optional values are nil when the
// platform did not report them.
type Coords struct {
	Latitude         float64  `json:"latitude" yaml:"latitude"`
	Longitude        float64  `json:"longitude" yaml:"longitude"`
	Altitude         *float64 `json:"altitude" yaml:"altitude,omitempty"`
	Accuracy         *float64 `json:"accuracy" yaml:"accuracy,omitempty"`
	AltitudeAccuracy *float64 `json:"altitudeAccuracy" yaml:"altitudeAccuracy,omitempty"`
	Heading          *float64 `json:"heading" yaml:"heading,omitempty"`
	Speed            *float64 `json:"speed" yaml:"speed,omitempty"`
}

// Reading is one device position capture.
type Reading struct {
	Coords    Coords `json:"coords" yaml:"coords"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"` // epoch ms, platform supplied
}

// Time returns the capture time.
func (r Reading) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// PermissionStatus is the platform's answer to a permission request.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// Update is a batch of positions delivered by the platform to a registered
// background task.
type Update struct {
	Locations []Reading
	Err       error
}

// UpdateOptions describes how often background updates are wanted.
type UpdateOptions struct {
	Accuracy                string
	TimeInterval            time.Duration
	DistanceInterval        float64 // meters
	DeferredUpdatesInterval time.Duration
	DeferredUpdatesDistance float64 // meters
	NotificationTitle       string
	NotificationBody        string
}

// DefaultUpdateOptions returns the settings used for task reminders.
func DefaultUpdateOptions() UpdateOptions {
	return UpdateOptions{
		Accuracy:                "balanced",
		TimeInterval:            time.Minute,
		DistanceInterval:        10,
		DeferredUpdatesInterval: time.Minute,
		DeferredUpdatesDistance: 10,
		NotificationTitle:       "Location Tracking",
		NotificationBody:        "Tracking your location for task reminders",
	}
}

// Provider is the platform location service.
type Provider interface {
	// RequestForegroundPermission asks for access while the app is in use.
	RequestForegroundPermission(ctx context.Context) (PermissionStatus, error)

	// RequestBackgroundPermission asks for access while the app is in the background.
	RequestBackgroundPermission(ctx context.Context) (PermissionStatus, error)

	// CurrentPosition performs a live query.
	CurrentPosition(ctx context.Context) (Reading, error)

	// StartUpdates registers a named background task. The platform delivers
	// updates to sink until StopUpdates is called.
	StartUpdates(ctx context.Context, name string, opts UpdateOptions, sink chan<- Update) error

	// IsRegistered reports whether a named background task is active.
	IsRegistered(ctx context.Context, name string) (bool, error)

	// StopUpdates unregisters a named background task.
	StopUpdates(ctx context.Context, name string) error
}

// Connectivity reports whether the network is reachable.
type Connectivity interface {
	IsConnected(ctx context.Context) (bool, error)
}
