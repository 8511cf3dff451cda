// Package notify turns geofence transitions into their side effects: a
// published detection event for the push worker, a visit record, and a
// streak bump. All of it is fire-and-forget; failures are logged and never
// reach the engine.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-app/minaret/internal/db"
	"github.com/minaret-app/minaret/internal/model"
)

const effectTimeout = 10 * time.Second

// SilentModeGate answers whether the user opted into automatic silent mode,
// which decides the device command carried on the published event.
type SilentModeGate interface {
	AutoSilent(ctx context.Context, userID string) bool
}

// StreakBumper records a visited day.
type StreakBumper interface {
	Bump(ctx context.Context, userID string, day time.Time)
}

// Dispatcher implements engine.Sink.
type Dispatcher struct {
	store     db.Store
	publisher EventPublisher
	gate      SilentModeGate
	streaks   StreakBumper
}

func NewDispatcher(store db.Store, publisher EventPublisher, gate SilentModeGate, streaks StreakBumper) *Dispatcher {
	return &Dispatcher{store: store, publisher: publisher, gate: gate, streaks: streaks}
}

// OnEnter opens a visit, bumps the streak and publishes an entry event.
// Returns immediately; the work runs off the caller's goroutine.
func (d *Dispatcher) OnEnter(_ context.Context, userID string, mosque model.Mosque, enteredAt time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
		defer cancel()

		if _, err := d.store.OpenVisit(ctx, userID, mosque.ID, enteredAt); err != nil {
			log.Error().Err(err).Str("user", userID).Str("mosque", mosque.ID).Msg("visit open failed")
		}
		d.streaks.Bump(ctx, userID, enteredAt)

		event := DetectionEvent{
			UserID:        userID,
			MosqueID:      mosque.ID,
			MosqueName:    mosque.Name,
			Event:         EventMosqueEntry,
			SilenceDevice: d.gate.AutoSilent(ctx, userID),
			Timestamp:     enteredAt.Unix(),
		}
		if err := d.publisher.Publish(ctx, event); err != nil {
			log.Error().Err(err).Str("user", userID).Str("mosque", mosque.ID).Msg("entry event publish failed")
		}
	}()
}

// OnExit closes the visit with its duration and publishes an exit event
// carrying the restore-device command.
func (d *Dispatcher) OnExit(_ context.Context, userID string, mosque model.Mosque, durationMinutes int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
		defer cancel()

		now := time.Now()
		if err := d.store.CloseVisit(ctx, userID, mosque.ID, now, durationMinutes); err != nil {
			log.Error().Err(err).Str("user", userID).Str("mosque", mosque.ID).Msg("visit close failed")
		}

		event := DetectionEvent{
			UserID:          userID,
			MosqueID:        mosque.ID,
			MosqueName:      mosque.Name,
			Event:           EventMosqueExit,
			RestoreDevice:   d.gate.AutoSilent(ctx, userID),
			DurationMinutes: durationMinutes,
			Timestamp:       now.Unix(),
		}
		if err := d.publisher.Publish(ctx, event); err != nil {
			log.Error().Err(err).Str("user", userID).Str("mosque", mosque.ID).Msg("exit event publish failed")
		}
	}()
}
