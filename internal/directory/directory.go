// Package directory keeps an in-memory snapshot of the verified mosque set
// and answers proximity queries against it. The snapshot is replaced
// wholesale on refresh; readers never observe a half-built list.
package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-app/minaret/internal/geo"
	"github.com/minaret-app/minaret/internal/model"
)

// NearbyRadiusMeters is the fixed display radius for "mosques around you".
// Distinct from each mosque's own geofence radius.
const NearbyRadiusMeters = 1000

// MosqueStore is the external source of verified mosques.
type MosqueStore interface {
	ListVerifiedMosques(ctx context.Context) ([]model.Mosque, error)
}

// NearbyMosque pairs a mosque with its distance from the queried position.
type NearbyMosque struct {
	Mosque         model.Mosque `json:"mosque"`
	DistanceMeters float64      `json:"distance_meters"`
}

type Directory struct {
	store MosqueStore

	mu       sync.RWMutex
	snapshot []model.Mosque
}

func New(store MosqueStore) *Directory {
	return &Directory{store: store}
}

// Refresh replaces the snapshot with the current verified set. On transport
// failure the previous snapshot is retained so tracking never blocks on a
// failed refresh.
func (d *Directory) Refresh(ctx context.Context) {
	mosques, err := d.store.ListVerifiedMosques(ctx)
	if err != nil {
		log.Error().Err(err).Msg("mosque directory refresh failed, keeping previous snapshot")
		return
	}

	d.mu.Lock()
	d.snapshot = mosques
	d.mu.Unlock()
	log.Info().Int("mosques", len(mosques)).Msg("mosque directory refreshed")
}

// RunRefreshLoop refreshes immediately and then on the given interval until
// the context is cancelled.
func (d *Directory) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	d.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Refresh(ctx)
		}
	}
}

// Nearby returns mosques within radiusMeters of the position, closest first.
func (d *Directory) Nearby(pos model.Coordinate, radiusMeters float64) []NearbyMosque {
	d.mu.RLock()
	snapshot := d.snapshot
	d.mu.RUnlock()

	var out []NearbyMosque
	for _, m := range snapshot {
		dist := geo.DistanceMeters(pos.Latitude, pos.Longitude, m.Latitude, m.Longitude)
		if dist < radiusMeters {
			out = append(out, NearbyMosque{Mosque: m, DistanceMeters: dist})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out
}

// Containing returns the first mosque whose geofence contains the position,
// in directory order, or nil. Only one "inside" mosque is tracked at a time,
// so overlapping geofences resolve to the first match.
func (d *Directory) Containing(pos model.Coordinate) *model.Mosque {
	d.mu.RLock()
	snapshot := d.snapshot
	d.mu.RUnlock()

	for i := range snapshot {
		m := &snapshot[i]
		dist := geo.DistanceMeters(pos.Latitude, pos.Longitude, m.Latitude, m.Longitude)
		if dist <= m.GeofenceRadiusMeters {
			out := *m
			return &out
		}
	}
	return nil
}

// Size reports how many mosques the current snapshot holds.
func (d *Directory) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.snapshot)
}
