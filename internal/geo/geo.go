// Package geo implements the spherical-earth math behind proximity gating.
package geo

import (
	"math"

	"quizwalk/internal/domain"
)

const (
	// EarthRadius is the mean Earth radius in meters.
	EarthRadius = 6371e3
	// DefaultRadius is how close, in meters, a player must be to reveal a gated question.
	DefaultRadius = 15.0
)

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the great-circle distance in meters using the haversine formula.
func Distance(a, b domain.Coordinate) float64 {
	if a == b {
		return 0
	}
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lng - a.Lng)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// Bearing returns the initial bearing from one point to another in degrees, in [0,360).
// The value is meaningless when the points coincide.
func Bearing(from, to domain.Coordinate) float64 {
	phi1 := radians(from.Lat)
	phi2 := radians(to.Lat)
	dLambda := radians(to.Lng - from.Lng)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	deg := math.Atan2(y, x) * 180 / math.Pi
	deg = math.Mod(deg+360, 360)
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// IsWithinRadius reports whether current is at most radius meters from target.
func IsWithinRadius(current, target domain.Coordinate, radius float64) bool {
	return Distance(current, target) <= radius
}

// ProximityBonus awards up to 40 points for answering within 20 meters of the target.
func ProximityBonus(distance float64) float64 {
	return math.Max(0, 20-distance) * 2
}

// Score rates a correct answer: 100 points, minus half a point per second past the
// first minute, plus the proximity bonus. Never negative.
func Score(timeSpentSeconds, distance float64) int {
	score := 100.0
	score -= math.Max(0, timeSpentSeconds-60) * 0.5
	score += ProximityBonus(distance)
	return int(math.Max(0, math.Round(score)))
}
