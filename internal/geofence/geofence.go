package geofence

import (
	"fmt"
	"math"
	"net/http"

	"go-timeclock/internal/shared/apperror"
)

const (
	earthRadiusMeters = 6371000.0

	// Job geofence radii are clamped to a sane band regardless of what was
	// configured on the job document.
	DefaultRadiusMeters = 100.0
	MinRadiusMeters     = 75.0
	MaxRadiusMeters     = 250.0

	// Reported GPS accuracy below this is treated as this, so a suspiciously
	// precise fix never narrows the tolerance.
	MinAccuracyBufferMeters = 15.0
)

var (
	ErrInvalidLatitude = apperror.New(
		apperror.CodeInvalidInput,
		"latitude must be between -90 and 90",
		http.StatusBadRequest,
	)
	ErrInvalidLongitude = apperror.New(
		apperror.CodeInvalidInput,
		"longitude must be between -180 and 180",
		http.StatusBadRequest,
	)
)

type Point struct {
	Lat float64
	Lng float64
}

// Fence is a circular tolerance zone around a job site.
type Fence struct {
	Center       Point
	RadiusMeters *float64
}

// Result is the evaluation of a single clock event against a fence.
type Result struct {
	DistanceMeters        float64
	EffectiveRadiusMeters float64
	Valid                 bool
}

func validatePoint(p Point) error {
	if p.Lat < -90 || p.Lat > 90 || math.IsNaN(p.Lat) {
		return ErrInvalidLatitude
	}
	if p.Lng < -180 || p.Lng > 180 || math.IsNaN(p.Lng) {
		return ErrInvalidLongitude
	}
	return nil
}

// Distance returns the haversine great-circle distance between two points in
// meters. Symmetric, and zero for identical points.
func Distance(a, b Point) (float64, error) {
	if err := validatePoint(a); err != nil {
		return 0, err
	}
	if err := validatePoint(b); err != nil {
		return 0, err
	}

	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c, nil
}

// EffectiveRadius widens the clamped base radius by a GPS-accuracy buffer.
// This is the actual pass/fail threshold.
func EffectiveRadius(radiusMeters *float64, accuracyMeters *float64) float64 {
	base := DefaultRadiusMeters
	if radiusMeters != nil {
		base = *radiusMeters
	}
	base = math.Min(math.Max(base, MinRadiusMeters), MaxRadiusMeters)

	buffer := MinAccuracyBufferMeters
	if accuracyMeters != nil && *accuracyMeters > buffer {
		buffer = *accuracyMeters
	}

	return base + buffer
}

// Evaluate checks a clock event position against a fence. The boundary is
// inclusive: distance == effective radius is valid.
func Evaluate(fence Fence, at Point, accuracyMeters *float64) (Result, error) {
	dist, err := Distance(fence.Center, at)
	if err != nil {
		return Result{}, err
	}

	radius := EffectiveRadius(fence.RadiusMeters, accuracyMeters)
	return Result{
		DistanceMeters:        dist,
		EffectiveRadiusMeters: radius,
		Valid:                 withinTolerance(dist, radius),
	}, nil
}

func withinTolerance(distanceMeters, effectiveRadiusMeters float64) bool {
	return distanceMeters <= effectiveRadiusMeters
}

// CheckAccuracy rejects fixes whose reported accuracy exceeds the configured
// ceiling. Independent of distance; only applied at clock-in.
func CheckAccuracy(accuracyMeters *float64, ceilingMeters float64) error {
	if ceilingMeters <= 0 || accuracyMeters == nil {
		return nil
	}
	if *accuracyMeters > ceilingMeters {
		return apperror.New(
			apperror.CodeFailedPrecondition,
			fmt.Sprintf("GPS accuracy %.1fm exceeds the %.1fm maximum, move to open sky and retry", *accuracyMeters, ceilingMeters),
			http.StatusConflict,
		)
	}
	return nil
}

// FailureMessage cites the measured distance against the threshold, e.g.
// "you are 300.0m from the job site, maximum allowed is 115.0m".
func (r Result) FailureMessage() string {
	return fmt.Sprintf("you are %.1fm from the job site, maximum allowed is %.1fm", r.DistanceMeters, r.EffectiveRadiusMeters)
}
