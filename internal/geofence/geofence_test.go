package geofence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	// Job site used across the clock-in scenarios.
	siteSF = Point{Lat: 37.7793, Lng: -122.4193}
)

func ptr(v float64) *float64 { return &v }

func TestDistance_SymmetricAndZero(t *testing.T) {
	a := Point{Lat: 37.7793, Lng: -122.4193}
	b := Point{Lat: 37.7812, Lng: -122.4110}

	dAB, err := Distance(a, b)
	assert.NoError(t, err)
	dBA, err := Distance(b, a)
	assert.NoError(t, err)
	assert.Equal(t, dAB, dBA)

	dAA, err := Distance(a, a)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, dAA)
}

func TestDistance_RejectsBadCoordinates(t *testing.T) {
	_, err := Distance(Point{Lat: 91, Lng: 0}, siteSF)
	assert.ErrorIs(t, err, ErrInvalidLatitude)

	_, err = Distance(siteSF, Point{Lat: 0, Lng: -181})
	assert.ErrorIs(t, err, ErrInvalidLongitude)

	_, err = Distance(Point{Lat: -90.0001, Lng: 0}, siteSF)
	assert.ErrorIs(t, err, ErrInvalidLatitude)
}

func TestEffectiveRadius(t *testing.T) {
	// Default base 100 + minimum buffer 15.
	assert.Equal(t, 115.0, EffectiveRadius(nil, nil))

	// Accuracy below the 15m floor does not narrow the tolerance.
	assert.Equal(t, 115.0, EffectiveRadius(nil, ptr(10)))

	// Accuracy above the floor widens it.
	assert.Equal(t, 130.0, EffectiveRadius(nil, ptr(30)))

	// Base radius clamped into [75, 250].
	assert.Equal(t, 75.0+15.0, EffectiveRadius(ptr(10), nil))
	assert.Equal(t, 250.0+15.0, EffectiveRadius(ptr(5000), nil))
	assert.Equal(t, 200.0+15.0, EffectiveRadius(ptr(200), nil))
}

func TestWithinTolerance_BoundaryInclusive(t *testing.T) {
	assert.True(t, withinTolerance(115.0, 115.0))
	assert.False(t, withinTolerance(115.0000001, 115.0))
	assert.True(t, withinTolerance(0, 75))
}

func TestEvaluate_WorkerNearSite(t *testing.T) {
	// ~42m east of the site, 10m accuracy: effective radius 115m, valid.
	worker := Point{Lat: 37.7793, Lng: -122.41882}

	res, err := Evaluate(Fence{Center: siteSF, RadiusMeters: ptr(100)}, worker, ptr(10))
	assert.NoError(t, err)
	assert.InDelta(t, 42.0, res.DistanceMeters, 2.0)
	assert.Equal(t, 115.0, res.EffectiveRadiusMeters)
	assert.True(t, res.Valid)
}

func TestEvaluate_WorkerFarFromSite(t *testing.T) {
	// ~300m east of the site: invalid, and the failure message cites both the
	// measured distance and the threshold.
	worker := Point{Lat: 37.7793, Lng: -122.41589}

	res, err := Evaluate(Fence{Center: siteSF, RadiusMeters: ptr(100)}, worker, ptr(10))
	assert.NoError(t, err)
	assert.InDelta(t, 300.0, res.DistanceMeters, 3.0)
	assert.False(t, res.Valid)
	assert.Contains(t, res.FailureMessage(), "115.0m")
}

func TestCheckAccuracy(t *testing.T) {
	assert.NoError(t, CheckAccuracy(nil, 50))
	assert.NoError(t, CheckAccuracy(ptr(50), 50))
	assert.Error(t, CheckAccuracy(ptr(50.1), 50))
	// Ceiling disabled.
	assert.NoError(t, CheckAccuracy(ptr(9999), 0))
}
