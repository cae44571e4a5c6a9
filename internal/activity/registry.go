// Package activity tracks per-tab browsing sessions and feeds their
// snapshots to the classification pipeline.
//
// A Registry owns every live TabSession. Inbound tab events mutate sessions
// under a mutex; classification always runs outside the lock on an
// immutable focus.Snapshot. Results are delivered to a Sink only while the
// originating session is still live, except for the final flush produced
// when a tab closes.
package activity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/domains"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
	"github.com/fyrsmithlabs/focusfuel/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/focusfuel/internal/activity"

// Defaults used when Config fields are zero.
const (
	DefaultMinDwell      = 5 * time.Second
	DefaultIdleWindow    = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

var (
	// ErrUnknownTab is returned for queries about a tab with no session.
	ErrUnknownTab = errors.New("unknown tab")

	// ErrUnknownMessage is returned by Handle for foreign Message types.
	ErrUnknownMessage = errors.New("unknown message type")

	// ErrDwellTooShort is returned when a session is too young to classify.
	ErrDwellTooShort = errors.New("session dwell time below minimum")
)

// Classifier produces a result for a snapshot. It must not fail.
type Classifier interface {
	Classify(ctx context.Context, snap focus.Snapshot) focus.Result
}

// Sink receives classification results for live sessions.
type Sink interface {
	Deliver(ctx context.Context, snap focus.Snapshot, res focus.Result) error
	// ForgetTab releases per-tab state once a tab's final result is delivered.
	ForgetTab(tabID focus.TabID)
}

// Config tunes session tracking.
type Config struct {
	// MinDwell is the minimum session age before a snapshot is produced.
	MinDwell time.Duration
	// IdleWindow excludes sessions idle at least this long from sweeps.
	IdleWindow time.Duration
}

// Counters are the per-session interaction counts. They never decrease
// within a session.
type Counters struct {
	TabSwitches    int `json:"tab_switches"`
	ScrollEvents   int `json:"scroll_events"`
	MouseMovements int `json:"mouse_movements"`
	Clicks         int `json:"clicks"`
	KeyboardEvents int `json:"keyboard_events"`
}

// TabStats is a point-in-time view of one session.
type TabStats struct {
	TabID            focus.TabID `json:"tab_id"`
	SessionID        string      `json:"session_id"`
	URL              string      `json:"url"`
	Domain           string      `json:"domain"`
	Title            string      `json:"title"`
	TimeSpentSeconds int         `json:"time_spent_seconds"`
	LastActive       time.Time   `json:"last_active"`
	Counters
}

// SessionsView summarizes all live sessions.
type SessionsView struct {
	CurrentTabID   *focus.TabID `json:"current_tab_id"`
	TabSwitchCount int          `json:"tab_switch_count"`
	Tabs           []TabStats   `json:"tabs"`
}

type session struct {
	id         string
	tabID      focus.TabID
	url        string
	domain     string
	title      string
	start      time.Time
	lastActive time.Time
	counters   Counters
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) {
		if t != nil {
			r.tracer = t
		}
	}
}

// Registry owns the live tab sessions. It is safe for concurrent use.
type Registry struct {
	classifier Classifier
	sink       Sink
	cfg        Config
	now        func() time.Time
	logger     *logging.Logger
	tracer     trace.Tracer

	mu            sync.Mutex
	sessions      map[focus.TabID]*session
	current       focus.TabID
	hasCurrent    bool
	totalSwitches int

	inflight sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(classifier Classifier, sink Sink, cfg Config, opts ...Option) *Registry {
	if cfg.MinDwell <= 0 {
		cfg.MinDwell = DefaultMinDwell
	}
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = DefaultIdleWindow
	}
	r := &Registry{
		classifier: classifier,
		sink:       sink,
		cfg:        cfg,
		now:        time.Now,
		logger:     logging.Nop(),
		tracer:     otel.Tracer(instrumentationName),
		sessions:   make(map[focus.TabID]*session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnNavigationComplete starts a fresh session for the tab, replacing any
// previous one, and makes the tab current. It returns the new session id.
func (r *Registry) OnNavigationComplete(tabID focus.TabID, url, title string) string {
	now := r.now()
	s := &session{
		id:         uuid.NewString(),
		tabID:      tabID,
		url:        url,
		domain:     domains.Normalize(url),
		title:      title,
		start:      now,
		lastActive: now,
	}

	r.mu.Lock()
	r.sessions[tabID] = s
	r.current = tabID
	r.hasCurrent = true
	ActiveSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	return s.id
}

// OnTabActivated makes tabID current and counts a switch away from the
// previously current tab. Re-activating the current tab is a no-op.
func (r *Registry) OnTabActivated(tabID focus.TabID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasCurrent && r.current == tabID {
		return
	}
	if r.hasCurrent {
		r.totalSwitches++
		if prev, ok := r.sessions[r.current]; ok {
			prev.counters.TabSwitches++
			prev.lastActive = r.now()
		}
	}
	r.current = tabID
	r.hasCurrent = true
}

// OnEvent counts one interaction. It reports false when the tab has no
// session or the kind is unknown.
func (r *Registry) OnEvent(tabID focus.TabID, kind EventKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[tabID]
	if !ok {
		return false
	}
	switch kind {
	case KindScroll:
		s.counters.ScrollEvents++
	case KindMouseMove:
		s.counters.MouseMovements++
	case KindClick:
		s.counters.Clicks++
	case KindKeyDown:
		s.counters.KeyboardEvents++
	default:
		return false
	}
	s.lastActive = r.now()
	return true
}

// OnTabClosed removes the tab's session. If the session met the minimum
// dwell its final snapshot is classified in the background and delivered
// regardless of liveness. It reports whether a final flush was scheduled.
func (r *Registry) OnTabClosed(ctx context.Context, tabID focus.TabID) bool {
	r.mu.Lock()
	s, ok := r.sessions[tabID]
	if ok {
		delete(r.sessions, tabID)
		ActiveSessions.Set(float64(len(r.sessions)))
	}
	if r.hasCurrent && r.current == tabID {
		r.hasCurrent = false
		r.current = 0
	}
	var snap focus.Snapshot
	flush := false
	if ok {
		snap, flush = r.snapshotLocked(s, r.now())
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if !flush {
		r.sink.ForgetTab(tabID)
		return false
	}

	r.submit(ctx, snap, true)
	return true
}

// Snapshot returns the tab's current snapshot. ok is false when the tab is
// unknown or its dwell time is below the minimum.
func (r *Registry) Snapshot(tabID focus.TabID) (focus.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[tabID]
	if !ok {
		return focus.Snapshot{}, false
	}
	return r.snapshotLocked(s, r.now())
}

// snapshotLocked builds a snapshot, or reports false below minimum dwell.
func (r *Registry) snapshotLocked(s *session, now time.Time) (focus.Snapshot, bool) {
	dwell := now.Sub(s.start)
	if dwell < r.cfg.MinDwell {
		return focus.Snapshot{}, false
	}
	return focus.Snapshot{
		TabID:            s.tabID,
		SessionID:        s.id,
		URL:              s.url,
		Title:            s.title,
		TimeSpentSeconds: int(dwell / time.Second),
		TabSwitches:      s.counters.TabSwitches,
		ScrollEvents:     s.counters.ScrollEvents,
		MouseMovements:   s.counters.MouseMovements,
		Clicks:           s.counters.Clicks,
		KeyboardEvents:   s.counters.KeyboardEvents,
		HourOfDay:        now.Hour(),
	}, true
}

// PeriodicSweep classifies every session active within the idle window.
// Snapshots are collected under the lock; each classification then runs in
// its own goroutine. It returns the number of snapshots submitted.
func (r *Registry) PeriodicSweep(ctx context.Context) int {
	ctx, span := r.tracer.Start(ctx, "activity.PeriodicSweep")
	defer span.End()

	start := time.Now()
	r.mu.Lock()
	now := r.now()
	snaps := make([]focus.Snapshot, 0, len(r.sessions))
	for _, s := range r.sessions {
		if now.Sub(s.lastActive) >= r.cfg.IdleWindow {
			continue
		}
		if snap, ok := r.snapshotLocked(s, now); ok {
			snaps = append(snaps, snap)
		}
	}
	r.mu.Unlock()
	SweepDuration.Observe(time.Since(start).Seconds())

	for _, snap := range snaps {
		r.submit(ctx, snap, false)
	}
	SweepSubmitted.Add(float64(len(snaps)))
	span.SetAttributes(attribute.Int("activity.submitted", len(snaps)))
	return len(snaps)
}

// Run sweeps every interval until ctx is done, then waits for in-flight
// deliveries.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Wait()
			return
		case <-ticker.C:
			n := r.PeriodicSweep(ctx)
			r.logger.Debug(ctx, "periodic sweep", zap.Int("submitted", n))
		}
	}
}

// submit classifies snap in the background and delivers the result. Final
// flushes are delivered unconditionally; other results only while the
// session that produced them is live.
func (r *Registry) submit(ctx context.Context, snap focus.Snapshot, final bool) {
	ctx = context.WithoutCancel(ctx)
	ctx = logging.WithSessionID(logging.WithTabID(ctx, int(snap.TabID)), snap.SessionID)

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		res := r.classifier.Classify(ctx, snap)
		if !final && !r.Alive(snap.TabID, snap.SessionID) {
			StaleDiscarded.Inc()
			r.logger.Debug(ctx, "discarding result for ended session")
			return
		}
		if err := r.sink.Deliver(ctx, snap, res); err != nil {
			r.logger.Warn(ctx, "delivering classification failed", zap.Error(err))
		}
		if final {
			r.sink.ForgetTab(snap.TabID)
		}
	}()
}

// Alive reports whether sessionID is still the live session of tabID.
func (r *Registry) Alive(tabID focus.TabID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tabID]
	return ok && s.id == sessionID
}

// Wait blocks until every background classification has finished.
func (r *Registry) Wait() {
	r.inflight.Wait()
}

// ClassifyTab classifies the tab's current snapshot synchronously. The
// result is returned to the caller and not delivered to the sink.
func (r *Registry) ClassifyTab(ctx context.Context, tabID focus.TabID) (focus.Result, error) {
	r.mu.Lock()
	s, ok := r.sessions[tabID]
	var snap focus.Snapshot
	var long bool
	if ok {
		snap, long = r.snapshotLocked(s, r.now())
	}
	r.mu.Unlock()

	if !ok {
		return focus.Result{}, fmt.Errorf("tab %d: %w", tabID, ErrUnknownTab)
	}
	if !long {
		return focus.Result{}, fmt.Errorf("tab %d: %w", tabID, ErrDwellTooShort)
	}
	return r.classifier.Classify(ctx, snap), nil
}

// Stats returns the tab's current counters.
func (r *Registry) Stats(tabID focus.TabID) (TabStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[tabID]
	if !ok {
		return TabStats{}, fmt.Errorf("tab %d: %w", tabID, ErrUnknownTab)
	}
	return r.statsLocked(s, r.now()), nil
}

func (r *Registry) statsLocked(s *session, now time.Time) TabStats {
	return TabStats{
		TabID:            s.tabID,
		SessionID:        s.id,
		URL:              s.url,
		Domain:           s.domain,
		Title:            s.title,
		TimeSpentSeconds: int(now.Sub(s.start) / time.Second),
		LastActive:       s.lastActive,
		Counters:         s.counters,
	}
}

// Sessions returns every live session ordered by tab id, along with the
// current tab and the global switch count.
func (r *Registry) Sessions() SessionsView {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	view := SessionsView{
		TabSwitchCount: r.totalSwitches,
		Tabs:           make([]TabStats, 0, len(r.sessions)),
	}
	if r.hasCurrent {
		cur := r.current
		view.CurrentTabID = &cur
	}
	for _, s := range r.sessions {
		view.Tabs = append(view.Tabs, r.statsLocked(s, now))
	}
	sort.Slice(view.Tabs, func(i, j int) bool { return view.Tabs[i].TabID < view.Tabs[j].TabID })
	return view
}

// Handle dispatches an inbound message.
func (r *Registry) Handle(ctx context.Context, msg Message) (Reply, error) {
	switch m := msg.(type) {
	case NavigationComplete:
		return Reply{SessionID: r.OnNavigationComplete(m.TabID, m.URL, m.Title)}, nil
	case TabActivated:
		r.OnTabActivated(m.TabID)
		return Reply{}, nil
	case ActivityEvent:
		if _, err := ParseEventKind(string(m.Kind)); err != nil {
			return Reply{}, err
		}
		r.OnEvent(m.TabID, m.Kind)
		return Reply{}, nil
	case TabRemoved:
		r.OnTabClosed(ctx, m.TabID)
		return Reply{}, nil
	case ClassifyRequest:
		res, err := r.ClassifyTab(ctx, m.TabID)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Result: &res}, nil
	case StatsRequest:
		st, err := r.Stats(m.TabID)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Stats: &st}, nil
	default:
		return Reply{}, fmt.Errorf("%T: %w", msg, ErrUnknownMessage)
	}
}
