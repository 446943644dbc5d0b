package service

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zodiac-snapshot/internal/alerting"
	"zodiac-snapshot/internal/ephemeris"
	"zodiac-snapshot/internal/resolver"
	"zodiac-snapshot/internal/sink"
	"zodiac-snapshot/internal/snapshot"
	"zodiac-snapshot/internal/storage"
)

var instant = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func staticPositions() map[ephemeris.Body]ephemeris.Position {
	return map[ephemeris.Body]ephemeris.Position{
		ephemeris.Sun:     {Longitude: 15.0, Speed: 0.98},
		ephemeris.Moon:    {Longitude: 95.25, Speed: 13.1},
		ephemeris.Mercury: {Longitude: 359.999, Speed: -0.5},
		ephemeris.Venus:   {Longitude: 30.0, Speed: 1.2},
		ephemeris.Mars:    {Longitude: 182.5, Speed: -0.2},
		ephemeris.Jupiter: {Longitude: 45.1, Speed: 0.2},
		ephemeris.Saturn:  {Longitude: 340.7, Speed: 0.1},
	}
}

func newService(oracle *ephemeris.Static, deps Deps, opts Options) *Service {
	deps.Converter = oracle
	deps.Resolver = resolver.NewOracle(oracle, resolver.OracleOptions{}, zerolog.Nop())
	return New(deps, opts, zerolog.Nop())
}

func eventsOf(enabled ...string) func(string) bool {
	return func(event string) bool {
		for _, e := range enabled {
			if e == event {
				return true
			}
		}
		return false
	}
}

type memorySink struct {
	writes [][]byte
}

func (m *memorySink) Write(_ context.Context, payload []byte) error {
	m.writes = append(m.writes, append([]byte(nil), payload...))
	return nil
}

type memoryStore struct {
	mu          sync.Mutex
	snapshots   map[time.Time]storage.SnapshotRecord
	transitions []storage.TransitionRecord
	lockHeld    bool
	lockCalls   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snapshots: make(map[time.Time]storage.SnapshotRecord)}
}

func (m *memoryStore) UpsertSnapshot(_ context.Context, rec storage.SnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[rec.GeneratedAt] = rec
	return nil
}

func (m *memoryStore) LatestSnapshotBefore(_ context.Context, before time.Time) (storage.SnapshotRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		best  storage.SnapshotRecord
		found bool
	)
	for ts, rec := range m.snapshots {
		if ts.Before(before) && (!found || ts.After(best.GeneratedAt)) {
			best, found = rec, true
		}
	}
	return best, found, nil
}

func (m *memoryStore) ListRecentSnapshots(_ context.Context, limit int) ([]storage.SnapshotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.SnapshotRecord, 0, len(m.snapshots))
	for _, rec := range m.snapshots {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) ListBodyPlacementsBetween(context.Context, string, time.Time, time.Time) ([]storage.PlacementRecord, error) {
	return nil, nil
}

func (m *memoryStore) CountSnapshots(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.snapshots)), nil
}

func (m *memoryStore) DeleteSnapshotsBefore(context.Context, time.Time) error { return nil }

func (m *memoryStore) InsertTransition(_ context.Context, rec storage.TransitionRecord) (storage.TransitionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.transitions) + 1)
	m.transitions = append(m.transitions, rec)
	return rec, nil
}

func (m *memoryStore) ListRecentTransitions(context.Context, int) ([]storage.TransitionRecord, error) {
	return m.transitions, nil
}

func (m *memoryStore) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	m.lockCalls++
	if m.lockHeld {
		return nil, false, nil
	}
	return func() {}, true, nil
}

type recordingNotifier struct {
	notes []alerting.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, note alerting.Notification) error {
	r.notes = append(r.notes, note)
	return nil
}

func TestGenerateProducesSevenPlacements(t *testing.T) {
	svc := newService(ephemeris.NewStatic(staticPositions()), Deps{}, Options{})

	res, err := svc.Generate(context.Background(), instant)
	require.NoError(t, err)
	require.Len(t, res.Snapshot.Planets, 7)

	assert.Equal(t, "2024-03-20T12:00:00Z", res.Snapshot.GeneratedAtUTC)
	assert.Equal(t, "Sun", res.Snapshot.Planets[0].Planet)
	assert.Equal(t, "Aries", res.Snapshot.Planets[0].Sign)
	assert.Equal(t, "Libra", res.Snapshot.Planets[4].Sign)
	assert.True(t, res.Snapshot.Planets[4].Retrograde)
	assert.InDelta(t, 2460390.0, res.JD, 1e-9)

	decoded, err := snapshot.Decode(res.Payload)
	require.NoError(t, err)
	assert.Equal(t, res.Snapshot, decoded)
}

func TestGenerateIsIdempotent(t *testing.T) {
	svc := newService(ephemeris.NewStatic(staticPositions()), Deps{}, Options{})

	first, err := svc.Generate(context.Background(), instant)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), instant)
	require.NoError(t, err)

	assert.Equal(t, first.Payload, second.Payload)
}

func TestPublishWritesNothingWhenOracleFails(t *testing.T) {
	oracle := ephemeris.NewStatic(staticPositions())
	oracle.Failures = map[ephemeris.Body]error{ephemeris.Jupiter: errors.New("ephemeris file missing")}

	path := filepath.Join(t.TempDir(), "positions.json")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	svc := newService(oracle, Deps{Sink: sink.NewFile(sink.FileOptions{Path: path}, zerolog.Nop())}, Options{})

	_, err := svc.Publish(context.Background(), instant)
	require.Error(t, err)

	var resErr *resolver.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "Jupiter", resErr.Body)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestPublishRejectsNonFinitePosition(t *testing.T) {
	positions := staticPositions()
	positions[ephemeris.Moon] = ephemeris.Position{Longitude: math.NaN(), Speed: 13}
	positions[ephemeris.Saturn] = ephemeris.Position{Longitude: 340, Speed: math.Inf(1)}
	out := &memorySink{}
	svc := newService(ephemeris.NewStatic(positions), Deps{Sink: out}, Options{})

	var err error
	require.NotPanics(t, func() { _, err = svc.Publish(context.Background(), instant) })

	var resErr *resolver.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "Moon", resErr.Body)
	assert.Empty(t, out.writes)
}

func TestProcessInstantWithoutEventFilterAnnouncesNothing(t *testing.T) {
	oracle := ephemeris.NewStatic(staticPositions())
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	svc := newService(oracle, Deps{Store: store, Transitions: store, Notifier: notifier}, Options{})

	ctx := context.Background()
	require.NoError(t, svc.ProcessInstant(ctx, instant))
	oracle.Positions[ephemeris.Sun] = ephemeris.Position{Longitude: 31, Speed: 1}
	require.NoError(t, svc.ProcessInstant(ctx, instant.Add(time.Hour)))

	assert.Empty(t, notifier.notes)
	assert.Empty(t, store.transitions)
}

func TestPublishWritesPayloadToSink(t *testing.T) {
	out := &memorySink{}
	svc := newService(ephemeris.NewStatic(staticPositions()), Deps{Sink: out}, Options{Indent: "  "})

	res, err := svc.Publish(context.Background(), instant)
	require.NoError(t, err)
	require.Len(t, out.writes, 1)
	assert.Equal(t, res.Payload, out.writes[0])
}

func TestProcessInstantDetectsTransitions(t *testing.T) {
	positions := staticPositions()
	oracle := ephemeris.NewStatic(positions)
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	svc := newService(oracle, Deps{
		Sink:        &memorySink{},
		Store:       store,
		Transitions: store,
		Notifier:    notifier,
	}, Options{EventEnabled: eventsOf("ingress", "station"), Channels: []string{"telegram"}, LockKey: 42})

	ctx := context.Background()
	require.NoError(t, svc.ProcessInstant(ctx, instant))
	assert.Empty(t, notifier.notes, "first snapshot has nothing to compare against")

	// Sun crosses into Taurus, Mars turns direct.
	oracle.Positions[ephemeris.Sun] = ephemeris.Position{Longitude: 30.5, Speed: 0.98}
	oracle.Positions[ephemeris.Mars] = ephemeris.Position{Longitude: 182.4, Speed: 0.01}
	require.NoError(t, svc.ProcessInstant(ctx, instant.Add(time.Hour)))

	require.Len(t, notifier.notes, 2)
	assert.Equal(t, "Sun", notifier.notes[0].Body)
	assert.Equal(t, alerting.KindIngress, notifier.notes[0].Kind)
	assert.Equal(t, "Aries", notifier.notes[0].FromSign)
	assert.Equal(t, "Taurus", notifier.notes[0].ToSign)
	assert.Equal(t, "Mars", notifier.notes[1].Body)
	assert.Equal(t, alerting.KindStationDirect, notifier.notes[1].Kind)

	assert.Len(t, store.transitions, 2)
	assert.Equal(t, []string{"telegram"}, store.transitions[0].Channels)
	count, _ := store.CountSnapshots(ctx)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, 2, store.lockCalls)
}

func TestProcessInstantHonoursEventFilter(t *testing.T) {
	oracle := ephemeris.NewStatic(staticPositions())
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	svc := newService(oracle, Deps{Store: store, Notifier: notifier}, Options{EventEnabled: eventsOf("station")})

	ctx := context.Background()
	require.NoError(t, svc.ProcessInstant(ctx, instant))
	oracle.Positions[ephemeris.Sun] = ephemeris.Position{Longitude: 31, Speed: 1}
	require.NoError(t, svc.ProcessInstant(ctx, instant.Add(time.Hour)))

	assert.Empty(t, notifier.notes)
}

func TestProcessInstantSkipsWhenLockHeld(t *testing.T) {
	store := newMemoryStore()
	store.lockHeld = true
	out := &memorySink{}
	svc := newService(ephemeris.NewStatic(staticPositions()), Deps{Sink: out, Store: store}, Options{LockKey: 7})

	require.NoError(t, svc.ProcessInstant(context.Background(), instant))
	assert.Empty(t, out.writes)
	count, _ := store.CountSnapshots(context.Background())
	assert.Zero(t, count)
}

func TestRunRequiresScheduler(t *testing.T) {
	svc := newService(ephemeris.NewStatic(staticPositions()), Deps{}, Options{})
	assert.Error(t, svc.Run(context.Background()))
}

func TestDetectTransitionsIgnoresUnknownBodies(t *testing.T) {
	current := snapshot.Snapshot{Planets: []snapshot.Placement{
		{Planet: "Sun", Sign: "Taurus"},
		{Planet: "Moon", Sign: "Leo", Retrograde: false},
	}}
	previous := []storage.PlacementRecord{{Body: "Moon", Sign: "Cancer"}}

	got := DetectTransitions(previous, current)
	require.Len(t, got, 1)
	assert.Equal(t, "Moon", got[0].Body)
	assert.Equal(t, "ingress", got[0].Event())
}

func TestTransitionEventForStations(t *testing.T) {
	assert.Equal(t, "station", Transition{Kind: alerting.KindStationRetrograde}.Event())
	assert.Equal(t, "station", Transition{Kind: alerting.KindStationDirect}.Event())
}
