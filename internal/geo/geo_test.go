package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters_SamePoint(t *testing.T) {
	d := DistanceMeters(-6.2088, 106.8456, -6.2088, 106.8456)
	if d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{21.4225, 39.8262, 24.4672, 39.6112},
		{40.7128, -74.0060, 21.4225, 39.8262},
		{-33.8688, 151.2093, 51.5074, -0.1278},
		{0, 0, 0.001, 0.001},
	}
	for _, p := range pairs {
		ab := DistanceMeters(p[0], p[1], p[2], p[3])
		ba := DistanceMeters(p[2], p[3], p[0], p[1])
		if ab != ba {
			t.Errorf("not symmetric: %f vs %f", ab, ba)
		}
	}
}

func TestDistanceMeters_MakkahToMadinah(t *testing.T) {
	// roughly 338km between the two cities
	d := DistanceMeters(21.4225, 39.8262, 24.4672, 39.6112)
	if d < 333000 || d > 343000 {
		t.Errorf("expected ~338km, got %fm", d)
	}
}

func TestQiblaBearing_NewYork(t *testing.T) {
	b := QiblaBearingDegrees(40.7128, -74.0060)
	if b < 57.5 || b > 59.5 {
		t.Errorf("expected ~58.5 degrees, got %f", b)
	}
}

func TestQiblaBearing_Range(t *testing.T) {
	points := [][2]float64{
		{40.7128, -74.0060},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{21.5, 39.9}, // just northeast of the Kaaba
		{-6.2088, 106.8456},
	}
	for _, p := range points {
		b := QiblaBearingDegrees(p[0], p[1])
		if b < 0 || b >= 360 {
			t.Errorf("bearing out of range for (%f,%f): %f", p[0], p[1], b)
		}
	}
}

func TestDistanceToKaabaKm(t *testing.T) {
	// standing at the Kaaba
	if d := DistanceToKaabaKm(KaabaLatitude, KaabaLongitude); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
	// Madinah, same figure as the meters test but in km
	d := DistanceToKaabaKm(24.4672, 39.6112)
	if math.Abs(d-338) > 5 {
		t.Errorf("expected ~338km, got %f", d)
	}
}

func TestNormalizeDegrees(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{360, 0},
		{-90, 270},
		{450, 90},
		{-720, 0},
	}
	for _, c := range cases {
		if got := NormalizeDegrees(c.in); got != c.want {
			t.Errorf("NormalizeDegrees(%f) = %f, want %f", c.in, got, c.want)
		}
	}
}

func TestDisplayRotation(t *testing.T) {
	// facing due north with qibla at 58.5 -> needle points 58.5
	if got := DisplayRotation(58.5, 0); got != 58.5 {
		t.Errorf("got %f", got)
	}
	// heading past the bearing wraps around
	if got := DisplayRotation(10, 20); got != 350 {
		t.Errorf("got %f", got)
	}
}
