package prayer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/minaret-app/minaret/internal/model"
)

// CachedProvider wraps a Provider with a Redis day cache. Cache keys carry
// the date, so a stale table can never leak across midnight; the TTL just
// bounds storage.
type CachedProvider struct {
	inner Provider
	rdb   *redis.Client
}

func NewCachedProvider(inner Provider, rdb *redis.Client) *CachedProvider {
	return &CachedProvider{inner: inner, rdb: rdb}
}

func cacheKey(lat, lon float64, date string, method CalculationMethod) string {
	return fmt.Sprintf("prayer:%s:%d:%.4f:%.4f", date, method, lat, lon)
}

func (p *CachedProvider) FetchTimings(ctx context.Context, coord model.Coordinate, date string, method CalculationMethod) (Table, error) {
	key := cacheKey(coord.Latitude, coord.Longitude, date, method)

	if raw, err := p.rdb.Get(ctx, key).Result(); err == nil {
		var table Table
		if err := json.Unmarshal([]byte(raw), &table); err == nil && Validate(table, date) == nil {
			return table, nil
		}
	} else if err != redis.Nil {
		log.Warn().Err(err).Msg("prayer cache read failed")
	}

	table, err := p.inner.FetchTimings(ctx, coord, date, method)
	if err != nil {
		return Table{}, err
	}

	if raw, err := json.Marshal(table); err == nil {
		if err := p.rdb.Set(ctx, key, raw, 36*time.Hour).Err(); err != nil {
			log.Warn().Err(err).Msg("prayer cache write failed")
		}
	}
	return table, nil
}

var _ Provider = (*CachedProvider)(nil)
