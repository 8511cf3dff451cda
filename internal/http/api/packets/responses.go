package packets

import (
	"github.com/minaret-app/minaret/internal/directory"
	"github.com/minaret-app/minaret/internal/engine"
	"github.com/minaret-app/minaret/internal/redis"
)

type TrackingResponse struct {
	State engine.State `json:"state"`
}

type StopResponse struct {
	Stopped bool `json:"stopped"`
}

type NearbyResponse struct {
	Mosques []directory.NearbyMosque `json:"mosques"`
}

type QiblaResponse struct {
	BearingDegrees float64 `json:"bearing_degrees"`
	DistanceKm     float64 `json:"distance_km"`
}

type PreferencesResponse struct {
	Preferences redis.Preferences `json:"preferences"`
	StreakDays  int               `json:"streak_days"`
}
