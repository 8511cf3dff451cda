// Package engine implements the geofence detection state machine. One engine
// tracks one user session: it drains position samples from a Source, asks the
// mosque directory which fence (if any) contains each sample, and derives
// Enter/Exit events exactly once per transition.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-app/minaret/internal/directory"
	"github.com/minaret-app/minaret/internal/model"
	"github.com/minaret-app/minaret/internal/position"
)

// ErrPermissionDenied is surfaced when the user declined location access.
// Terminal for the session; the engine never re-requests on its own.
var ErrPermissionDenied = errors.New("location permission denied")

const defaultQueueSize = 64

// Status is the user-visible tracking indicator.
type Status string

const (
	StatusStopped          Status = "stopped"
	StatusScanning         Status = "scanning"
	StatusInside           Status = "inside"
	StatusPermissionDenied Status = "permission_denied"
	StatusError            Status = "error"
)

// State is the published snapshot of the engine. All fields are updated
// together under one lock, so observers never see Nearby or Position from a
// newer sample than Inside.
type State struct {
	Tracking  bool                     `json:"tracking"`
	Status    Status                   `json:"status"`
	Position  *position.Sample         `json:"position,omitempty"`
	Inside    *model.Mosque            `json:"inside_mosque,omitempty"`
	Nearby    []directory.NearbyMosque `json:"nearby_mosques"`
	LastError string                   `json:"last_error,omitempty"`
}

// Sink receives Enter/Exit events. Implementations must only initiate work
// (publish, insert) and return promptly; their failures are logged on their
// side and never feed back into the state machine.
type Sink interface {
	OnEnter(ctx context.Context, userID string, mosque model.Mosque, enteredAt time.Time)
	OnExit(ctx context.Context, userID string, mosque model.Mosque, durationMinutes int)
}

// PreferenceGate supplies the user's opt-in flags. Detection alerts gate
// whether a visit's effects fire; the decision is made once at entry and
// carried through to the matching exit.
type PreferenceGate interface {
	DetectionAlerts(ctx context.Context, userID string) bool
	AutoSilent(ctx context.Context, userID string) bool
}

// Config wires one engine session.
type Config struct {
	UserID             string
	Directory          *directory.Directory
	Source             position.Source
	Sink               Sink
	Gate               PreferenceGate
	NearbyRadiusMeters float64 // defaults to directory.NearbyRadiusMeters
	QueueSize          int
}

type Engine struct {
	cfg Config

	mu       sync.Mutex
	state    State
	tracking bool
	sub      position.Subscription
	done     chan struct{}
	loopDone chan struct{}

	// loop-goroutine-owned; never touched outside processSample
	lastInside *model.Mosque
	enteredAt  time.Time
	enterFired bool
}

func New(cfg Config) *Engine {
	if cfg.NearbyRadiusMeters == 0 {
		cfg.NearbyRadiusMeters = directory.NearbyRadiusMeters
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Engine{
		cfg:   cfg,
		state: State{Status: StatusStopped},
	}
}

// StartTracking transitions Stopped -> Tracking. Requires permission; a
// prompt state triggers one request. Denial is recorded on the state and
// returned, and the engine stays stopped.
func (e *Engine) StartTracking(ctx context.Context) error {
	e.mu.Lock()
	if e.tracking {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	perm, err := e.cfg.Source.CheckPermission(ctx)
	if err != nil {
		return err
	}
	if perm == position.PermissionPrompt {
		granted, err := e.cfg.Source.RequestPermission(ctx)
		if err != nil {
			return err
		}
		if granted {
			perm = position.PermissionGranted
		} else {
			perm = position.PermissionDenied
		}
	}
	if perm != position.PermissionGranted {
		e.mu.Lock()
		e.state = State{Status: StatusPermissionDenied, LastError: ErrPermissionDenied.Error()}
		e.mu.Unlock()
		return ErrPermissionDenied
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tracking {
		return nil
	}

	done := make(chan struct{})
	loopDone := make(chan struct{})
	samples := make(chan position.Sample, e.cfg.QueueSize)

	sub, err := e.cfg.Source.Watch(
		func(s position.Sample) {
			// blocking send keeps arrival order with no drops; released by
			// done on shutdown
			select {
			case <-done:
			case samples <- s:
			}
		},
		func(err error) { e.onSourceError(err) },
	)
	if err != nil {
		return err
	}

	e.sub = sub
	e.done = done
	e.loopDone = loopDone
	e.tracking = true
	e.lastInside = nil
	e.enterFired = false
	e.state = State{Tracking: true, Status: StatusScanning}

	go e.run(done, loopDone, samples)
	log.Info().Str("user", e.cfg.UserID).Msg("geofence tracking started")
	return nil
}

// StopTracking transitions to Stopped. Idempotent; when it returns the
// source subscription is gone, the sample loop has exited, and no new side
// effects will start.
func (e *Engine) StopTracking() {
	e.mu.Lock()
	if !e.tracking {
		e.mu.Unlock()
		return
	}
	e.tracking = false
	sub := e.sub
	done := e.done
	loopDone := e.loopDone
	e.mu.Unlock()

	e.cfg.Source.Unwatch(sub)
	close(done)
	<-loopDone

	e.mu.Lock()
	e.state = State{Status: StatusStopped}
	e.mu.Unlock()
	log.Info().Str("user", e.cfg.UserID).Msg("geofence tracking stopped")
}

// State returns the latest published snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// run is the single-consumer sample loop. Each sample is processed to
// completion before the next one is taken; samples queue, they are never
// dropped or reordered.
func (e *Engine) run(done <-chan struct{}, loopDone chan<- struct{}, samples <-chan position.Sample) {
	defer close(loopDone)
	for {
		select {
		case <-done:
			return
		case s := <-samples:
			e.processSample(done, s)
		}
	}
}

func (e *Engine) processSample(done <-chan struct{}, s position.Sample) {
	coord := model.Coordinate{Latitude: s.Latitude, Longitude: s.Longitude}
	nearby := e.cfg.Directory.Nearby(coord, e.cfg.NearbyRadiusMeters)
	inside := e.cfg.Directory.Containing(coord)

	// transition logic runs against the engine-held previous state, never
	// the published snapshot
	prev := e.lastInside
	switch {
	case inside != nil && prev == nil:
		e.enteredAt = time.UnixMilli(s.TimestampMillis)
		e.enterFired = e.fireEnter(done, *inside, e.enteredAt)
	case inside == nil && prev != nil:
		e.fireExit(done, *prev, e.visitMinutes(s))
	case inside != nil && prev != nil && inside.ID != prev.ID:
		// stepped straight from one fence into another: exit now, the new
		// fence enters on the next sample (one-sample latency is accepted)
		e.fireExit(done, *prev, e.visitMinutes(s))
		inside = nil
	}
	e.lastInside = inside

	status := StatusScanning
	if inside != nil {
		status = StatusInside
	}
	sample := s
	e.mu.Lock()
	e.state = State{
		Tracking: true,
		Status:   status,
		Position: &sample,
		Inside:   inside,
		Nearby:   nearby,
	}
	e.mu.Unlock()
}

func (e *Engine) visitMinutes(s position.Sample) int {
	minutes := int(time.UnixMilli(s.TimestampMillis).Sub(e.enteredAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return minutes
}

// onSourceError implements the hold-last-belief policy: transient position
// errors are recorded for display but never clear lastInside, so a GPS
// dropout cannot fake an exit.
func (e *Engine) onSourceError(err error) {
	log.Warn().Err(err).Str("user", e.cfg.UserID).Msg("transient position error")
	e.mu.Lock()
	if e.tracking {
		e.state.LastError = err.Error()
	}
	e.mu.Unlock()
}

// fireEnter reports whether the enter effects actually ran; the matching
// exit uses that decision rather than re-reading the gate.
func (e *Engine) fireEnter(done <-chan struct{}, m model.Mosque, at time.Time) bool {
	select {
	case <-done:
		return false
	default:
	}
	ctx := context.Background()
	if !e.cfg.Gate.DetectionAlerts(ctx, e.cfg.UserID) {
		log.Debug().Str("user", e.cfg.UserID).Str("mosque", m.ID).Msg("detection alerts disabled, enter effects skipped")
		return false
	}
	e.cfg.Sink.OnEnter(ctx, e.cfg.UserID, m, at)
	return true
}

// fireExit mirrors the enter decision: a visit whose enter effects fired is
// always closed, even if alerts were disabled mid-visit, so no visit row
// stays open.
func (e *Engine) fireExit(done <-chan struct{}, m model.Mosque, minutes int) {
	fired := e.enterFired
	e.enterFired = false
	select {
	case <-done:
		return
	default:
	}
	if !fired {
		log.Debug().Str("user", e.cfg.UserID).Str("mosque", m.ID).Msg("enter effects were skipped, exit effects skipped")
		return
	}
	e.cfg.Sink.OnExit(context.Background(), e.cfg.UserID, m, minutes)
}
