package model

import "time"

// Coordinate is a WGS 84 point. Latitude in [-90,90], longitude in [-180,180].
type Coordinate struct {
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
}

// Mosque is a verified mosque record as approved through the admin workflow.
// Read-only to this service; the geofence radius is per-mosque.
type Mosque struct {
	ID                   string    `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	Latitude             float64   `db:"latitude" json:"latitude"`
	Longitude            float64   `db:"longitude" json:"longitude"`
	GeofenceRadiusMeters float64   `db:"geofence_radius_m" json:"geofence_radius_meters"`
	Verified             bool      `db:"verified" json:"verified"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

func (m Mosque) Coordinate() Coordinate {
	return Coordinate{Latitude: m.Latitude, Longitude: m.Longitude}
}
