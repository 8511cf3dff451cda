package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Preferences is the user's opt-in flags for the detection engine. Both
// default to enabled until the user turns them off.
type Preferences struct {
	AutoSilent      bool `json:"auto_silent"`
	DetectionAlerts bool `json:"detection_alerts"`
}

// PreferenceStore keeps per-user flags in a redis hash. It doubles as the
// engine's PreferenceGate.
type PreferenceStore struct {
	rdb *goredis.Client
}

func NewPreferenceStore(rdb *goredis.Client) *PreferenceStore {
	return &PreferenceStore{rdb: rdb}
}

func prefsKey(userID string) string {
	return fmt.Sprintf("prefs:%s", userID)
}

func (p *PreferenceStore) Get(ctx context.Context, userID string) Preferences {
	prefs := Preferences{AutoSilent: true, DetectionAlerts: true}
	fields, err := p.rdb.HGetAll(ctx, prefsKey(userID)).Result()
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("preference read failed, using defaults")
		return prefs
	}
	if v, ok := fields["auto_silent"]; ok {
		prefs.AutoSilent = v == "1"
	}
	if v, ok := fields["detection_alerts"]; ok {
		prefs.DetectionAlerts = v == "1"
	}
	return prefs
}

func (p *PreferenceStore) Put(ctx context.Context, userID string, prefs Preferences) error {
	return p.rdb.HSet(ctx, prefsKey(userID),
		"auto_silent", boolFlag(prefs.AutoSilent),
		"detection_alerts", boolFlag(prefs.DetectionAlerts),
	).Err()
}

// DetectionAlerts implements engine.PreferenceGate.
func (p *PreferenceStore) DetectionAlerts(ctx context.Context, userID string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.Get(ctx, userID).DetectionAlerts
}

// AutoSilent implements engine.PreferenceGate.
func (p *PreferenceStore) AutoSilent(ctx context.Context, userID string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.Get(ctx, userID).AutoSilent
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
