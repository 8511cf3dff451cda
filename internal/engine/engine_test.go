package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/minaret-app/minaret/internal/directory"
	"github.com/minaret-app/minaret/internal/model"
	"github.com/minaret-app/minaret/internal/position"
)

// ~0.00045 degrees of latitude is about 50m at the equator
const latPer50m = 0.00045

type mockSink struct {
	mu          sync.Mutex
	enters      []string
	exits       []string
	exitMinutes []int
}

func (m *mockSink) OnEnter(_ context.Context, _ string, mosque model.Mosque, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enters = append(m.enters, mosque.ID)
}

func (m *mockSink) OnExit(_ context.Context, _ string, mosque model.Mosque, minutes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exits = append(m.exits, mosque.ID)
	m.exitMinutes = append(m.exitMinutes, minutes)
}

func (m *mockSink) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.enters), len(m.exits)
}

type mockGate struct {
	mu     sync.Mutex
	alerts bool
	silent bool
}

func (g *mockGate) DetectionAlerts(context.Context, string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.alerts
}

func (g *mockGate) AutoSilent(context.Context, string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.silent
}

func (g *mockGate) setAlerts(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.alerts = v
}

type mosqueStoreStub struct{ mosques []model.Mosque }

func (s *mosqueStoreStub) ListVerifiedMosques(context.Context) ([]model.Mosque, error) {
	return s.mosques, nil
}

func testDirectory(mosques ...model.Mosque) *directory.Directory {
	d := directory.New(&mosqueStoreStub{mosques: mosques})
	d.Refresh(context.Background())
	return d
}

func singleMosqueDirectory() *directory.Directory {
	return testDirectory(model.Mosque{
		ID: "m1", Name: "Test Mosque", Latitude: 0, Longitude: 0, GeofenceRadiusMeters: 100,
	})
}

func newTestEngine(t *testing.T, dir *directory.Directory, sink Sink, gate PreferenceGate) (*Engine, *position.IngestSource) {
	t.Helper()
	src := position.NewIngestSource()
	src.SetPermission(position.PermissionGranted)
	eng := New(Config{
		UserID:    "u1",
		Directory: dir,
		Source:    src,
		Sink:      sink,
		Gate:      gate,
	})
	return eng, src
}

func sampleAt(lat, lon float64, ts int64) position.Sample {
	return position.Sample{Latitude: lat, Longitude: lon, AccuracyMeters: 5, TimestampMillis: ts}
}

// feed pushes samples and waits for the engine to drain them, so assertions
// run against a settled state.
func feed(t *testing.T, eng *Engine, src *position.IngestSource, samples ...position.Sample) {
	t.Helper()
	for _, s := range samples {
		src.Push(s)
	}
	deadline := time.Now().Add(2 * time.Second)
	last := samples[len(samples)-1]
	for time.Now().Before(deadline) {
		st := eng.State()
		if st.Position != nil && st.Position.TimestampMillis == last.TimestampMillis {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("engine did not process samples in time")
}

func TestEngine_EnterThenExitOnce(t *testing.T) {
	sink := &mockSink{}
	eng, src := newTestEngine(t, singleMosqueDirectory(), sink, &mockGate{alerts: true})
	if err := eng.StartTracking(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer eng.StopTracking()

	outside := 10 * latPer50m // ~500m away
	feed(t, eng, src,
		sampleAt(outside, 0, 1000),
		sampleAt(outside, 0, 2000),
		sampleAt(latPer50m, 0, 3000), // ~50m, inside the 100m fence
		sampleAt(latPer50m, 0, 4000),
		sampleAt(outside, 0, 5000),
	)

	enters, exits := sink.counts()
	if enters != 1 {
		t.Errorf("expected exactly 1 enter, got %d", enters)
	}
	if exits != 1 {
		t.Errorf("expected exactly 1 exit, got %d", exits)
	}
	if sink.enters[0] != "m1" || sink.exits[0] != "m1" {
		t.Errorf("events for wrong mosque: %v %v", sink.enters, sink.exits)
	}
}

func TestEngine_StayingInsideFiresSingleEnter(t *testing.T) {
	sink := &mockSink{}
	eng, src := newTestEngine(t, singleMosqueDirectory(), sink, &mockGate{alerts: true})
	if err := eng.StartTracking(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer eng.StopTracking()

	feed(t, eng, src,
		sampleAt(latPer50m, 0, 1000),
		sampleAt(latPer50m, 0, 2000),
		sampleAt(latPer50m, 0, 3000),
	)

	enters, exits := sink.counts()
	if enters != 1 || exits != 0 {
		t.Errorf("expected 1 enter / 0 exits, got %d / %d", enters, exits)
	}

	st := eng.State()
	if st.Status != StatusInside {
		t.Errorf("expected inside status, got %s", st.Status)
	}
	if st.Inside == nil || st.Inside.ID != "m1" {
		t.Errorf("expected inside m1, got %v", st.Inside)
	}
}

func TestEngine_ExitDurationMinutes(t *testing.T) {
	sink := &mockSink{}
	eng, src := newTestEngine(t, singleMosqueDirectory(), sink, &mockGate{alerts: true})
	if err := eng.StartTracking(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer eng.StopTracking()

	enter := int64(1_000_000)
	exit := enter + 23*60*1000 // 23 minutes later
	feed(t, eng, src,
		sampleAt(latPer50m, 0, enter),
		sampleAt(1, 1, exit),
	)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.exitMinutes) != 1 || sink.exitMinutes[0] != 23 {
		t.Errorf("expected 23 minute visit, got %v", sink.exitMinutes)
	}
}

func TestEngine_GateDisablesEffectsButNotTracking(t *testing.T) {
	sink := &mockSink{}
	eng, src := newTestEngine(t, singleMosqueDirectory(), sink, &mockGate{alerts: false})
	if err := eng.StartTracking(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer eng.StopTracking()

	feed(t, eng, src, sampleAt(latPer50m, 0, 1000))

	enters, exits := sink.counts()
	if enters != 0 || exits != 0 {
		t.Errorf("gated effects fired: %d / %d", enters, exits)
	}
	// the state machine itself still tracks the transition
	if st := eng.State(); st.Status != StatusInside {
		t.Errorf("expected inside status, got %s", st.Status)
	}
}

func TestEngine_PermissionDeniedIsTerminal(t *testing.T) {
	sink := &mockSink{}
	src := position.NewIngestSource()
	src.SetPermission(position.PermissionDenied)
	eng := New(Config{
		UserID:    "u1",
		Directory: singleMosqueDirectory(),
		Source:    src,
		Sink:      sink,
		Gate:      &mockGate{alerts: true},
	})

	if err := eng.StartTracking(context.Background()); err != ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if st := eng.State(); st.Status != StatusPermissionDenied {
		t.Errorf("expected permission_denied status, got %s", st.Status)
	}
}

func TestEngine_StopIsIdempotentAndFinal(t *testing.T) {
	sink := &mockSink{}
	eng, src := newTestEngine(t, singleMosqueDirectory(), sink, &mockGate{alerts: true})
	if err := eng.StartTracking(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	feed(t, eng, src, sampleAt(latPer50m, 0, 1000))

	eng.StopTracking()
	eng.StopTracking() // second stop is a no-op

	// a late-arriving callback must not mutate state
	src.Push(sampleAt(10*latPer50m, 0, 2000))
	time.Sleep(20 * time.Millisecond)

	st := eng.State()
	if st.Tracking || st.Status != StatusStopped {
		t.Errorf("state mutated after stop: %+v", st)
	}
	if _, exits := sink.counts(); exits != 0 {
		t.Errorf("exit effect fired after stop")
	}
}

func TestEngine_SourceErrorHoldsLastBelief(t *testing.T) {
	sink := &mockSink{}
	eng, src := newTestEngine(t, singleMosqueDirectory(), sink, &mockGate{alerts: true})
	if err := eng.StartTracking(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer eng.StopTracking()

	feed(t, eng, src, sampleAt(latPer50m, 0, 1000))

	// a transient GPS dropout must not produce an exit
	src.PushError(position.ErrLocationUnavailable)
	time.Sleep(20 * time.Millisecond)

	enters, exits := sink.counts()
	if enters != 1 || exits != 0 {
		t.Errorf("dropout produced spurious events: %d / %d", enters, exits)
	}
	st := eng.State()
	if st.Inside == nil || st.Inside.ID != "m1" {
		t.Errorf("dropout cleared inside belief: %+v", st.Inside)
	}
	if st.LastError == "" {
		t.Error("expected dropout recorded on state")
	}

	// the belief corrects on the next real sample
	feed(t, eng, src, sampleAt(10*latPer50m, 0, 2000))
	_, exits = sink.counts()
	if exits != 1 {
		t.Errorf("expected exit after real outside sample, got %d", exits)
	}
}

func TestEngine_CrossMosqueHandoff(t *testing.T) {
	// two disjoint fences; leaving A directly into B in one sample is
	// Exit(A) now, Enter(B) on detection
	dir := testDirectory(
		model.Mosque{ID: "a", Latitude: 0, Longitude: 0, GeofenceRadiusMeters: 100},
		model.Mosque{ID: "b", Latitude: 0.1, Longitude: 0, GeofenceRadiusMeters: 100},
	)
	sink := &mockSink{}
	eng, src := newTestEngine(t, dir, sink, &mockGate{alerts: true})
	if err := eng.StartTracking(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer eng.StopTracking()

	feed(t, eng, src,
		sampleAt(0, 0, 1000),   // inside a
		sampleAt(0.1, 0, 2000), // stepped straight into b: exit a now
		sampleAt(0.1, 0, 3000), // enter b one sample later
	)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.exits) != 1 || sink.exits[0] != "a" {
		t.Errorf("expected exit for a, got %v", sink.exits)
	}
	if len(sink.enters) != 2 || sink.enters[1] != "b" {
		t.Errorf("expected enter for b after the handoff gap, got %v", sink.enters)
	}
}

// grantedIngestOpener is a Manager.Start factory counting how often it runs.
func grantedIngestOpener(opens *int, closer func()) func() (position.Source, func(), error) {
	return func() (position.Source, func(), error) {
		*opens++
		src := position.NewIngestSource()
		src.SetPermission(position.PermissionGranted)
		return src, closer, nil
	}
}

func TestManager_StartStopAndStatus(t *testing.T) {
	sink := &mockSink{}
	mgr := NewManager(singleMosqueDirectory(), sink, &mockGate{alerts: true})

	opens := 0
	closed := false
	if err := mgr.Start(context.Background(), "u1", grantedIngestOpener(&opens, func() { closed = true })); err != nil {
		t.Fatalf("start: %v", err)
	}

	if st := mgr.State("u1"); !st.Tracking {
		t.Errorf("expected tracking state, got %+v", st)
	}
	if st := mgr.State("unknown"); st.Status != StatusStopped {
		t.Errorf("expected stopped for unknown user, got %+v", st)
	}

	mgr.Stop("u1")
	if !closed {
		t.Error("closer not invoked on stop")
	}
	if st := mgr.State("u1"); st.Status != StatusStopped {
		t.Errorf("expected stopped after stop, got %+v", st)
	}
	mgr.Stop("u1") // idempotent
}

func TestManager_RepeatedStartReusesSession(t *testing.T) {
	sink := &mockSink{}
	mgr := NewManager(singleMosqueDirectory(), sink, &mockGate{alerts: true})
	defer mgr.StopAll()

	opens, closes := 0, 0
	open := grantedIngestOpener(&opens, func() { closes++ })
	if err := mgr.Start(context.Background(), "u1", open); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := mgr.Start(context.Background(), "u1", open); err != nil {
		t.Fatalf("repeated start: %v", err)
	}

	// the second start must not build a second source: a duplicate would
	// re-subscribe the device topics and steal the stream from the running one
	if opens != 1 {
		t.Errorf("expected 1 source construction across repeated starts, got %d", opens)
	}
	if closes != 0 {
		t.Errorf("closer invoked while the session is still running")
	}
	if st := mgr.State("u1"); !st.Tracking {
		t.Errorf("expected tracking after repeated start, got %+v", st)
	}

	// the original source is still the session's source
	src, ok := mgr.Session("u1")
	if !ok {
		t.Fatal("session missing after repeated start")
	}
	ingest := src.(*position.IngestSource)
	ingest.Push(sampleAt(latPer50m, 0, 1000))

	deadline := time.Now().Add(2 * time.Second)
	for {
		if st := mgr.State("u1"); st.Status == StatusInside {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sample pushed to the original source never reached the engine")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEngine_ExitClosesVisitAfterAlertsDisabled(t *testing.T) {
	sink := &mockSink{}
	gate := &mockGate{alerts: true}
	eng, src := newTestEngine(t, singleMosqueDirectory(), sink, gate)
	if err := eng.StartTracking(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer eng.StopTracking()

	feed(t, eng, src, sampleAt(latPer50m, 0, 1000))

	// disabling alerts mid-visit must not orphan the opened visit
	gate.setAlerts(false)
	feed(t, eng, src, sampleAt(10*latPer50m, 0, 2000))

	enters, exits := sink.counts()
	if enters != 1 || exits != 1 {
		t.Errorf("expected the opened visit to close, got %d enters / %d exits", enters, exits)
	}

	// the inverse holds too: a visit whose enter was gated off stays silent
	gate.setAlerts(false)
	feed(t, eng, src, sampleAt(latPer50m, 0, 3000))
	gate.setAlerts(true)
	feed(t, eng, src, sampleAt(10*latPer50m, 0, 4000))

	enters, exits = sink.counts()
	if enters != 1 || exits != 1 {
		t.Errorf("gated enter produced effects on exit: %d enters / %d exits", enters, exits)
	}
}
