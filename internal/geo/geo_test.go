package geo

import (
	"math"
	"testing"

	"quizwalk/internal/domain"
)

func TestDistanceIdentityAndSymmetry(t *testing.T) {
	points := []domain.Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: 52.5200, Lng: 13.4050},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 89.9, Lng: -179.9},
	}
	for _, a := range points {
		if d := Distance(a, a); d != 0 {
			t.Fatalf("expected zero distance for %+v, got %f", a, d)
		}
		for _, b := range points {
			if Distance(a, b) != Distance(b, a) {
				t.Fatalf("distance not symmetric for %+v and %+v", a, b)
			}
		}
	}
}

func TestDistanceOneDegreeAtEquator(t *testing.T) {
	d := Distance(domain.Coordinate{Lat: 0, Lng: 0}, domain.Coordinate{Lat: 0, Lng: 1})
	if math.Abs(d-111195) > 111195*0.01 {
		t.Fatalf("expected ~111195m, got %f", d)
	}
}

func TestBearingCardinalDirections(t *testing.T) {
	origin := domain.Coordinate{Lat: 0, Lng: 0}
	cases := []struct {
		name string
		to   domain.Coordinate
		want float64
	}{
		{"north", domain.Coordinate{Lat: 1, Lng: 0}, 0},
		{"east", domain.Coordinate{Lat: 0, Lng: 1}, 90},
		{"south", domain.Coordinate{Lat: -1, Lng: 0}, 180},
		{"west", domain.Coordinate{Lat: 0, Lng: -1}, 270},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Bearing(origin, tc.to)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("expected %f, got %f", tc.want, got)
			}
			if got < 0 || got >= 360 {
				t.Fatalf("bearing out of range: %f", got)
			}
		})
	}
}

func TestIsWithinRadiusBoundary(t *testing.T) {
	target := domain.Coordinate{Lat: 0, Lng: 0}
	// One meter of latitude at the equator, in degrees.
	perMeter := 1 / (EarthRadius * math.Pi / 180)

	inside := domain.Coordinate{Lat: 14 * perMeter, Lng: 0}
	outside := domain.Coordinate{Lat: 16 * perMeter, Lng: 0}

	if !IsWithinRadius(inside, target, DefaultRadius) {
		t.Fatalf("expected 14m to be within radius")
	}
	if IsWithinRadius(outside, target, DefaultRadius) {
		t.Fatalf("expected 16m to be outside radius")
	}

	at := Distance(inside, target)
	if !IsWithinRadius(inside, target, at) {
		t.Fatalf("expected distance equal to radius to be within")
	}
	if IsWithinRadius(inside, target, at-0.01) {
		t.Fatalf("expected radius just below distance to be outside")
	}
}

func TestScore(t *testing.T) {
	cases := []struct {
		name     string
		seconds  float64
		distance float64
		want     int
	}{
		{"fast and on target", 10, 0, 140},
		{"fast at radius", 30, 15, 110},
		{"slow and far", 120, 50, 70},
		{"never negative", 1000, 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.seconds, tc.distance); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
