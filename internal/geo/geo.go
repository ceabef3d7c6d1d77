// Package geo evaluates check-in coordinates against a session geofence.
// All functions are pure: they never touch the database or the clock, so
// the same inputs always produce the same evaluation.
package geo

import (
	"fmt"
	"math"
)

// earthRadiusM is the mean Earth radius used by the haversine formula.
const earthRadiusM = 6371000.0

// Evaluation is the outcome of checking reported coordinates against a
// geofence.  DistanceM is nil when no coordinates were reported.  Reason
// is empty unless Flagged is true.
type Evaluation struct {
	DistanceM *float64
	Flagged   bool
	Reason    string
}

// Distance returns the great-circle distance in meters between two
// coordinates given in decimal degrees, computed with the haversine
// formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Evaluate classifies a check-in against the geofence centered at
// (centerLat, centerLng) with the given radius in meters.  Missing
// coordinates are never rejected: the check-in is flagged with a fixed
// reason so it still lands in the attendance table for manual review.
func Evaluate(centerLat, centerLng, radiusM float64, lat, lng *float64) Evaluation {
	if lat == nil || lng == nil {
		return Evaluation{Flagged: true, Reason: "no location reported"}
	}
	d := Distance(centerLat, centerLng, *lat, *lng)
	if d > radiusM {
		return Evaluation{
			DistanceM: &d,
			Flagged:   true,
			Reason:    fmt.Sprintf("check-in %.0fm outside %.0fm geofence", d, radiusM),
		}
	}
	return Evaluation{DistanceM: &d}
}

// ValidCoordinates reports whether the reported coordinates are inside
// the WGS84 domain.  Nil coordinates are valid (the device simply did not
// report a location); out-of-range values indicate a malformed request.
func ValidCoordinates(lat, lng *float64) bool {
	if lat == nil && lng == nil {
		return true
	}
	if lat == nil || lng == nil {
		return false
	}
	return *lat >= -90 && *lat <= 90 && *lng >= -180 && *lng <= 180
}
