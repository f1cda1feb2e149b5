package geo

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFitUserOnly(t *testing.T) {
	r := Fit(Point{Latitude: 37.78825, Longitude: -122.4324}, nil)
	want := Region{Latitude: 37.78825, Longitude: -122.4324, LatitudeDelta: DefaultLatitudeDelta, LongitudeDelta: DefaultLongitudeDelta}
	if r != want {
		t.Fatalf("expected %+v, got %+v", want, r)
	}
}

func TestFitBoundingBox(t *testing.T) {
	r := Fit(Point{Latitude: 0, Longitude: 0}, []Point{
		{Latitude: 2, Longitude: -1},
		{Latitude: 1, Longitude: 3},
	})

	if !approx(r.Latitude, 1) || !approx(r.Longitude, 1) {
		t.Errorf("unexpected center %v,%v", r.Latitude, r.Longitude)
	}
	if !approx(r.LatitudeDelta, 2*Padding) || !approx(r.LongitudeDelta, 4*Padding) {
		t.Errorf("unexpected deltas %v,%v", r.LatitudeDelta, r.LongitudeDelta)
	}
}

func TestFitCollapsedAxis(t *testing.T) {
	r := Fit(Point{Latitude: 5, Longitude: 5}, []Point{{Latitude: 5, Longitude: 6}})
	if r.LatitudeDelta != DefaultLatitudeDelta {
		t.Errorf("expected default latitude delta, got %v", r.LatitudeDelta)
	}
	if !approx(r.LongitudeDelta, Padding) {
		t.Errorf("expected padded longitude delta, got %v", r.LongitudeDelta)
	}
}
