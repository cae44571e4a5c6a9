package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// gateClassifier records snapshots and, when gated, blocks each call until
// released.
type gateClassifier struct {
	mu      sync.Mutex
	snaps   []focus.Snapshot
	gated   bool
	release chan struct{}
	started chan focus.Snapshot
}

func newGateClassifier(gated bool) *gateClassifier {
	return &gateClassifier{
		gated:   gated,
		release: make(chan struct{}),
		started: make(chan focus.Snapshot, 16),
	}
}

func (c *gateClassifier) Classify(_ context.Context, snap focus.Snapshot) focus.Result {
	c.mu.Lock()
	c.snaps = append(c.snaps, snap)
	c.mu.Unlock()
	select {
	case c.started <- snap:
	default:
	}
	if c.gated {
		<-c.release
	}
	return focus.Result{IsDistracting: true, Confidence: 90, Reason: "test", Source: focus.SourcePattern}
}

func (c *gateClassifier) calls() []focus.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]focus.Snapshot(nil), c.snaps...)
}

type recordingSink struct {
	mu        sync.Mutex
	delivered []focus.Snapshot
	forgotten []focus.TabID
	err       error
}

func (s *recordingSink) Deliver(_ context.Context, snap focus.Snapshot, _ focus.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, snap)
	return s.err
}

func (s *recordingSink) ForgetTab(tabID focus.TabID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgotten = append(s.forgotten, tabID)
}

func (s *recordingSink) deliveries() []focus.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]focus.Snapshot(nil), s.delivered...)
}

type fixture struct {
	clock *fakeClock
	cls   *gateClassifier
	sink  *recordingSink
	reg   *Registry
}

func newFixture(t *testing.T, gated bool) *fixture {
	t.Helper()
	f := &fixture{
		clock: newFakeClock(),
		cls:   newGateClassifier(gated),
		sink:  &recordingSink{},
	}
	f.reg = NewRegistry(f.cls, f.sink, Config{}, WithClock(f.clock.Now))
	return f
}

func TestParseEventKind(t *testing.T) {
	for _, k := range []string{"scroll", "mousemove", "click", "keydown"} {
		got, err := ParseEventKind(k)
		require.NoError(t, err)
		assert.Equal(t, EventKind(k), got)
	}
	_, err := ParseEventKind("hover")
	require.Error(t, err)
}

func TestRegistry_NavigationStartsFreshSession(t *testing.T) {
	f := newFixture(t, false)

	first := f.reg.OnNavigationComplete(1, "https://www.Example.com/a", "A")
	f.reg.OnEvent(1, KindClick)
	f.clock.Advance(10 * time.Second)

	second := f.reg.OnNavigationComplete(1, "https://other.org", "B")
	assert.NotEqual(t, first, second)
	assert.False(t, f.reg.Alive(1, first))
	assert.True(t, f.reg.Alive(1, second))

	st, err := f.reg.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, second, st.SessionID)
	assert.Equal(t, "other.org", st.Domain)
	assert.Zero(t, st.Clicks)
	assert.Zero(t, st.TimeSpentSeconds)
}

func TestRegistry_OnEvent(t *testing.T) {
	f := newFixture(t, false)
	f.reg.OnNavigationComplete(1, "https://example.com", "Example")

	f.clock.Advance(2 * time.Second)
	assert.True(t, f.reg.OnEvent(1, KindScroll))
	assert.True(t, f.reg.OnEvent(1, KindScroll))
	assert.True(t, f.reg.OnEvent(1, KindMouseMove))
	assert.True(t, f.reg.OnEvent(1, KindClick))
	assert.True(t, f.reg.OnEvent(1, KindKeyDown))
	assert.False(t, f.reg.OnEvent(1, EventKind("hover")))
	assert.False(t, f.reg.OnEvent(99, KindClick), "unknown tab is ignored")

	st, err := f.reg.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, Counters{ScrollEvents: 2, MouseMovements: 1, Clicks: 1, KeyboardEvents: 1}, st.Counters)
	assert.Equal(t, f.clock.Now(), st.LastActive)
}

func TestRegistry_TabSwitching(t *testing.T) {
	f := newFixture(t, false)
	f.reg.OnNavigationComplete(1, "https://a.com", "")
	f.reg.OnNavigationComplete(2, "https://b.com", "")

	// Navigation made tab 2 current.
	f.reg.OnTabActivated(2)
	f.reg.OnTabActivated(1)
	f.reg.OnTabActivated(2)
	f.reg.OnTabActivated(1)

	one, _ := f.reg.Stats(1)
	two, _ := f.reg.Stats(2)
	assert.Equal(t, 1, one.TabSwitches)
	assert.Equal(t, 2, two.TabSwitches)

	view := f.reg.Sessions()
	require.NotNil(t, view.CurrentTabID)
	assert.Equal(t, focus.TabID(1), *view.CurrentTabID)
	assert.Equal(t, 3, view.TabSwitchCount)
	require.Len(t, view.Tabs, 2)
	assert.Equal(t, focus.TabID(1), view.Tabs[0].TabID)
}

func TestRegistry_SnapshotDwellGate(t *testing.T) {
	f := newFixture(t, false)
	f.reg.OnNavigationComplete(1, "https://example.com", "Example")

	f.clock.Advance(4900 * time.Millisecond)
	_, ok := f.reg.Snapshot(1)
	assert.False(t, ok)

	_, err := f.reg.ClassifyTab(context.Background(), 1)
	assert.ErrorIs(t, err, ErrDwellTooShort)

	f.clock.Advance(100 * time.Millisecond)
	snap, ok := f.reg.Snapshot(1)
	require.True(t, ok)
	assert.Equal(t, 5, snap.TimeSpentSeconds)
	assert.Equal(t, 14, snap.HourOfDay)
	assert.Equal(t, "https://example.com", snap.URL)

	_, ok = f.reg.Snapshot(2)
	assert.False(t, ok)
}

func TestRegistry_ShortSessionNeverClassified(t *testing.T) {
	f := newFixture(t, false)
	f.reg.OnNavigationComplete(1, "https://example.com", "")
	f.clock.Advance(3 * time.Second)

	assert.Zero(t, f.reg.PeriodicSweep(context.Background()))
	assert.False(t, f.reg.OnTabClosed(context.Background(), 1))
	f.reg.Wait()

	assert.Empty(t, f.cls.calls())
	assert.Empty(t, f.sink.deliveries())
	assert.Equal(t, []focus.TabID{1}, f.sink.forgotten)
}

func TestRegistry_PeriodicSweepSkipsIdle(t *testing.T) {
	f := newFixture(t, false)
	f.reg.OnNavigationComplete(1, "https://idle.com", "")
	f.clock.Advance(5 * time.Minute)
	f.reg.OnNavigationComplete(2, "https://busy.com", "")
	f.clock.Advance(30 * time.Second)
	f.reg.OnEvent(2, KindScroll)

	assert.Equal(t, 1, f.reg.PeriodicSweep(context.Background()))
	f.reg.Wait()

	got := f.sink.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, focus.TabID(2), got[0].TabID)

	_, err := f.reg.Stats(1)
	require.NoError(t, err, "idle sessions are skipped, not removed")
}

func TestRegistry_CloseFlushesFinalSnapshot(t *testing.T) {
	f := newFixture(t, false)
	f.reg.OnNavigationComplete(3, "https://example.com", "")
	f.clock.Advance(12 * time.Second)

	assert.True(t, f.reg.OnTabClosed(context.Background(), 3))
	f.reg.Wait()

	got := f.sink.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, 12, got[0].TimeSpentSeconds)
	assert.Equal(t, []focus.TabID{3}, f.sink.forgotten)

	_, err := f.reg.Stats(3)
	assert.ErrorIs(t, err, ErrUnknownTab)
	assert.Nil(t, f.reg.Sessions().CurrentTabID)
}

// An AI call in flight for tab 7 when the tab closes must not produce a
// delivery for the sweep snapshot.
func TestRegistry_StaleSweepResultDiscarded(t *testing.T) {
	f := newFixture(t, true)
	f.reg.OnNavigationComplete(7, "https://example.com", "")
	f.clock.Advance(10 * time.Second)

	require.Equal(t, 1, f.reg.PeriodicSweep(context.Background()))
	sweepSnap := <-f.cls.started
	assert.Equal(t, 10, sweepSnap.TimeSpentSeconds)

	f.clock.Advance(10 * time.Second)
	require.True(t, f.reg.OnTabClosed(context.Background(), 7))
	<-f.cls.started

	close(f.cls.release)
	f.reg.Wait()

	got := f.sink.deliveries()
	require.Len(t, got, 1, "only the final flush is delivered")
	assert.Equal(t, 20, got[0].TimeSpentSeconds)
}

func TestRegistry_NavigationResetDiscardsInflight(t *testing.T) {
	f := newFixture(t, true)
	f.reg.OnNavigationComplete(1, "https://a.com", "")
	f.clock.Advance(10 * time.Second)

	require.Equal(t, 1, f.reg.PeriodicSweep(context.Background()))
	<-f.cls.started

	f.reg.OnNavigationComplete(1, "https://b.com", "")
	close(f.cls.release)
	f.reg.Wait()

	assert.Empty(t, f.sink.deliveries())
}

func TestRegistry_DeliveryErrorIsLogged(t *testing.T) {
	f := newFixture(t, false)
	f.sink.err = errors.New("store down")
	f.reg.OnNavigationComplete(1, "https://a.com", "")
	f.clock.Advance(10 * time.Second)

	f.reg.PeriodicSweep(context.Background())
	f.reg.Wait()
	assert.Len(t, f.sink.deliveries(), 1)
}

func TestRegistry_ClassifyTabNotDelivered(t *testing.T) {
	f := newFixture(t, false)
	f.reg.OnNavigationComplete(1, "https://a.com", "")
	f.clock.Advance(6 * time.Second)

	res, err := f.reg.ClassifyTab(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, res.IsDistracting)
	assert.Empty(t, f.sink.deliveries())

	_, err = f.reg.ClassifyTab(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUnknownTab)
}

func TestRegistry_Handle(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	reply, err := f.reg.Handle(ctx, NavigationComplete{TabID: 5, URL: "https://reddit.com", Title: "r"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.SessionID)

	_, err = f.reg.Handle(ctx, ActivityEvent{TabID: 5, Kind: KindClick})
	require.NoError(t, err)
	_, err = f.reg.Handle(ctx, ActivityEvent{TabID: 5, Kind: "hover"})
	require.Error(t, err)

	reply, err = f.reg.Handle(ctx, StatsRequest{TabID: 5})
	require.NoError(t, err)
	require.NotNil(t, reply.Stats)
	assert.Equal(t, 1, reply.Stats.Clicks)

	f.clock.Advance(time.Minute)
	reply, err = f.reg.Handle(ctx, ClassifyRequest{TabID: 5})
	require.NoError(t, err)
	require.NotNil(t, reply.Result)

	_, err = f.reg.Handle(ctx, TabActivated{TabID: 6})
	require.NoError(t, err)

	_, err = f.reg.Handle(ctx, TabRemoved{TabID: 5})
	require.NoError(t, err)
	f.reg.Wait()
	assert.Len(t, f.sink.deliveries(), 1)

	_, err = f.reg.Handle(ctx, StatsRequest{TabID: 5})
	assert.ErrorIs(t, err, ErrUnknownTab)

	_, err = f.reg.Handle(ctx, nil)
	assert.ErrorIs(t, err, ErrUnknownMessage)
	_, err = f.reg.Handle(ctx, &TabActivated{TabID: 1})
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestRegistry_Run(t *testing.T) {
	f := newFixture(t, false)
	f.reg.OnNavigationComplete(1, "https://a.com", "")
	f.clock.Advance(10 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.reg.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(f.sink.deliveries()) > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRegistry_ConcurrentEvents(t *testing.T) {
	f := newFixture(t, false)
	f.reg.OnNavigationComplete(1, "https://a.com", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.reg.OnEvent(1, KindScroll)
			}
		}()
	}
	wg.Wait()

	st, err := f.reg.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, 800, st.ScrollEvents)
}
