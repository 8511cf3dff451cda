package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/minaret-app/minaret/internal/model"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []DetectionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e DetectionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) wait(t *testing.T, n int) []DetectionEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		if len(p.events) >= n {
			out := append([]DetectionEvent(nil), p.events...)
			p.mu.Unlock()
			return out
		}
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d events", n)
	return nil
}

type fakeStore struct {
	mu     sync.Mutex
	opened []string
	closed []int
}

func (s *fakeStore) ListVerifiedMosques(context.Context) ([]model.Mosque, error) { return nil, nil }
func (s *fakeStore) GetMosqueByID(context.Context, string) (*model.Mosque, error) {
	return nil, nil
}
func (s *fakeStore) OpenVisit(_ context.Context, userID, mosqueID string, _ time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, mosqueID)
	return "v1", nil
}
func (s *fakeStore) CloseVisit(_ context.Context, _, _ string, _ time.Time, minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, minutes)
	return nil
}
func (s *fakeStore) ListVisits(context.Context, string, int) ([]model.Visit, error) {
	return nil, nil
}

type fakeGate struct{ silent bool }

func (g *fakeGate) AutoSilent(context.Context, string) bool { return g.silent }

type fakeStreaks struct {
	mu    sync.Mutex
	bumps int
}

func (s *fakeStreaks) Bump(context.Context, string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bumps++
}

func TestDispatcher_OnEnter(t *testing.T) {
	pub := &recordingPublisher{}
	store := &fakeStore{}
	streaks := &fakeStreaks{}
	d := NewDispatcher(store, pub, &fakeGate{silent: true}, streaks)

	mosque := model.Mosque{ID: "m1", Name: "Central Mosque"}
	d.OnEnter(context.Background(), "u1", mosque, time.Now())

	events := pub.wait(t, 1)
	if events[0].Event != EventMosqueEntry || !events[0].SilenceDevice {
		t.Errorf("got %+v", events[0])
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.opened) != 1 || store.opened[0] != "m1" {
		t.Errorf("visit not opened: %v", store.opened)
	}
	streaks.mu.Lock()
	defer streaks.mu.Unlock()
	if streaks.bumps != 1 {
		t.Errorf("streak not bumped")
	}
}

func TestDispatcher_OnExit(t *testing.T) {
	pub := &recordingPublisher{}
	store := &fakeStore{}
	d := NewDispatcher(store, pub, &fakeGate{silent: false}, &fakeStreaks{})

	d.OnExit(context.Background(), "u1", model.Mosque{ID: "m1"}, 23)

	events := pub.wait(t, 1)
	if events[0].Event != EventMosqueExit || events[0].DurationMinutes != 23 {
		t.Errorf("got %+v", events[0])
	}
	if events[0].RestoreDevice {
		t.Error("restore command set for a user without auto-silent")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.closed) != 1 || store.closed[0] != 23 {
		t.Errorf("visit not closed: %v", store.closed)
	}
}
