package service

import (
	"errors"

	"geotask/internal/geo"
	"geotask/internal/location"
)

// ErrTaskNotFound is returned for ids that name no task.
var ErrTaskNotFound = errors.New("task not found")

// Where is the result of a location refresh.
type Where struct {
	// Attempt is the outcome of the refresh itself.
	Attempt location.Attempt

	// Reading is the current value after the attempt; valid if Known.
	Reading location.Reading
	Known   bool

	// Region fits the user and all task zones; valid if Known.
	Region geo.Region
}
