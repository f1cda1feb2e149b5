// Package geo computes the map region that shows the user and task zones.
package geo

import "math"

const (
	// DefaultLatitudeDelta is the span shown around a lone point.
	DefaultLatitudeDelta = 0.0922

	// DefaultLongitudeDelta is the span shown around a lone point.
	DefaultLongitudeDelta = 0.0421

	// Padding widens a fitted bounding box.
	Padding = 1.2
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Region is a map viewport: a center and the span in degrees.
type Region struct {
	Latitude       float64
	Longitude      float64
	LatitudeDelta  float64
	LongitudeDelta float64
}

// Fit returns the region centered on the bounding box of user and points,
// widened by Padding. With no points the region is centered on user with the
// default span. A collapsed axis also falls back to the default span.
func Fit(user Point, points []Point) Region {
	if len(points) == 0 {
		return Region{
			Latitude:       user.Latitude,
			Longitude:      user.Longitude,
			LatitudeDelta:  DefaultLatitudeDelta,
			LongitudeDelta: DefaultLongitudeDelta,
		}
	}

	minLat, maxLat := user.Latitude, user.Latitude
	minLng, maxLng := user.Longitude, user.Longitude
	for _, p := range points {
		minLat = math.Min(minLat, p.Latitude)
		maxLat = math.Max(maxLat, p.Latitude)
		minLng = math.Min(minLng, p.Longitude)
		maxLng = math.Max(maxLng, p.Longitude)
	}

	r := Region{
		Latitude:       (minLat + maxLat) / 2,
		Longitude:      (minLng + maxLng) / 2,
		LatitudeDelta:  (maxLat - minLat) * Padding,
		LongitudeDelta: (maxLng - minLng) * Padding,
	}
	if r.LatitudeDelta == 0 {
		r.LatitudeDelta = DefaultLatitudeDelta
	}
	if r.LongitudeDelta == 0 {
		r.LongitudeDelta = DefaultLongitudeDelta
	}
	return r
}
