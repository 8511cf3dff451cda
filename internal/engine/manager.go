package engine

import (
	"context"
	"sync"

	"github.com/minaret-app/minaret/internal/directory"
	"github.com/minaret-app/minaret/internal/position"
)

// Manager owns one engine per tracked user session and wires the shared
// collaborators into each one.
type Manager struct {
	directory *directory.Directory
	sink      Sink
	gate      PreferenceGate

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	engine *Engine
	closer func()
}

func NewManager(dir *directory.Directory, sink Sink, gate PreferenceGate) *Manager {
	return &Manager{
		directory: dir,
		sink:      sink,
		gate:      gate,
		sessions:  make(map[string]*session),
	}
}

// Start begins tracking userID. open constructs the session's position
// source and an optional cleanup; it runs under the session lock and only
// when no session exists yet, so a repeated start can never build a second
// source (a duplicate MQTT subscribe would steal the topic handler from the
// running one) or leak its cleanup.
func (m *Manager) Start(ctx context.Context, userID string, open func() (position.Source, func(), error)) error {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return s.engine.StartTracking(ctx)
	}
	source, closer, err := open()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	eng := New(Config{
		UserID:    userID,
		Directory: m.directory,
		Source:    source,
		Sink:      m.sink,
		Gate:      m.gate,
	})
	m.sessions[userID] = &session{engine: eng, closer: closer}
	m.mu.Unlock()

	err = eng.StartTracking(ctx)
	if err != nil && err != ErrPermissionDenied {
		// keep denied sessions around so the status endpoint can show
		// permission_denied; anything else is torn down
		m.mu.Lock()
		delete(m.sessions, userID)
		m.mu.Unlock()
		if closer != nil {
			closer()
		}
	}
	return err
}

// Stop ends the user's session. Idempotent.
func (m *Manager) Stop(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	s.engine.StopTracking()
	if s.closer != nil {
		s.closer()
	}
}

// State reports the session snapshot, or a stopped state when none exists.
func (m *Manager) State(userID string) State {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return State{Status: StatusStopped}
	}
	return s.engine.State()
}

// Session returns the user's ingest source when the session was started with
// one, for the browser position-ingest endpoint.
func (m *Manager) Session(userID string) (position.Source, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, false
	}
	return s.engine.cfg.Source, true
}

// StopAll shuts every session down, for process shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	users := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		users = append(users, id)
	}
	m.mu.Unlock()
	for _, id := range users {
		m.Stop(id)
	}
}
