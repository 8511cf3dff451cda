// Package geo holds the pure geospatial math used by geofence detection and
// the qibla compass: haversine great-circle distance and initial bearing
// toward the Kaaba.
package geo

import "math"

const earthRadiusMeters = 6371000

// Kaaba coordinates in Makkah, the fixed qibla target.
const (
	KaabaLatitude  = 21.4225
	KaabaLongitude = 39.8262
)

// DistanceMeters returns the haversine great-circle distance between two
// points. Symmetric, and exactly zero for identical points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// QiblaBearingDegrees returns the initial great-circle bearing from the given
// point toward the Kaaba, normalized into [0, 360).
func QiblaBearingDegrees(lat, lon float64) float64 {
	phi1 := toRad(lat)
	phi2 := toRad(KaabaLatitude)
	dLon := toRad(KaabaLongitude - lon)

	y := math.Sin(dLon)
	x := math.Cos(phi1)*math.Tan(phi2) - math.Sin(phi1)*math.Cos(dLon)
	return NormalizeDegrees(toDeg(math.Atan2(y, x)))
}

// DistanceToKaabaKm returns the haversine distance to the Kaaba in kilometers.
func DistanceToKaabaKm(lat, lon float64) float64 {
	return DistanceMeters(lat, lon, KaabaLatitude, KaabaLongitude) / 1000
}

// DisplayRotation returns the compass rotation to render a qibla needle given
// the static bearing and the device's current heading, in [0, 360).
func DisplayRotation(bearingDegrees, headingDegrees float64) float64 {
	return NormalizeDegrees(bearingDegrees - headingDegrees)
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
