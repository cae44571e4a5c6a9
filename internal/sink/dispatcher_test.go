package sink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
	"github.com/fyrsmithlabs/focusfuel/internal/store"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}
	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

type memPublisher struct {
	mu   sync.Mutex
	msgs map[string][][]byte
	err  error
}

func (p *memPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.msgs == nil {
		p.msgs = make(map[string][][]byte)
	}
	p.msgs[subject] = append(p.msgs[subject], data)
	return nil
}

func (p *memPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs[subject])
}

type failingStore struct{}

func (failingStore) Save(focus.DistractionEvent) error { return errors.New("disk full") }

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

var distracting = focus.Result{
	IsDistracting: true,
	Confidence:    95,
	Reason:        "Site is in distraction blacklist",
	Suggestion:    "Consider using this site during breaks instead",
	Source:        focus.SourceList,
}

func snap(tab focus.TabID, url string) focus.Snapshot {
	return focus.Snapshot{TabID: tab, URL: url, TimeSpentSeconds: 42}
}

func TestDispatcher_NATS(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := Connect(server.ClientURL(), "focusfuel-test", nil)
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync("focusfuel.>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	events, err := store.Open(store.Config{})
	require.NoError(t, err)
	defer events.Close()

	d := NewDispatcher(Config{Cooldown: time.Minute}, WithStore(events), WithPublisher(nc))
	require.NoError(t, d.Deliver(context.Background(), snap(1, "https://www.facebook.com/feed"), distracting))
	require.NoError(t, nc.Flush())

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "focusfuel.events.distraction", msg.Subject)
	var ev focus.DistractionEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, focus.TabID(1), ev.TabID)
	assert.Equal(t, focus.CategorySocial, ev.Category)
	assert.Equal(t, 42, ev.DurationSeconds)
	assert.Equal(t, 95, ev.Confidence)

	msg, err = sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "focusfuel.notifications", msg.Subject)
	var n focus.Notification
	require.NoError(t, json.Unmarshal(msg.Data, &n))
	assert.Equal(t, "FocusFuel - Distraction Detected", n.Title)
	assert.Equal(t, distracting.Suggestion, n.Message)
	assert.Equal(t, ev.ID, n.EventID)
	require.Len(t, n.Buttons, 2)

	stored, err := events.Get(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, stored.ID)

	resp, err := d.RecordResponse(context.Background(), n.ID, focus.ActionTakeBreak)
	require.NoError(t, err)
	assert.Equal(t, focus.ActionTakeBreak, resp.Action)
	require.NoError(t, nc.Flush())

	msg, err = sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "focusfuel.notifications.responses", msg.Subject)
}

func TestDispatcher_NotificationThreshold(t *testing.T) {
	tests := []struct {
		name   string
		res    focus.Result
		notify bool
	}{
		{name: "distracting above threshold", res: focus.Result{IsDistracting: true, Confidence: 71}, notify: true},
		{name: "distracting at threshold", res: focus.Result{IsDistracting: true, Confidence: 70}},
		{name: "productive high confidence", res: focus.Result{IsDistracting: false, Confidence: 95}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &memPublisher{}
			d := NewDispatcher(Config{}, WithPublisher(pub))

			require.NoError(t, d.Deliver(context.Background(), snap(1, "random-blog.com"), tt.res))

			want := 0
			if tt.notify {
				want = 1
			}
			assert.Equal(t, want, pub.count("focusfuel.notifications"))
			assert.Len(t, d.Pending(), want)
		})
	}
}

func TestDispatcher_ConfiguredThreshold(t *testing.T) {
	tests := []struct {
		name       string
		threshold  int
		confidence int
		notify     bool
	}{
		{name: "zero uses default above", threshold: 0, confidence: DefaultThreshold + 1, notify: true},
		{name: "zero uses default at", threshold: 0, confidence: DefaultThreshold},
		{name: "custom threshold suppresses", threshold: 90, confidence: 85},
		{name: "custom threshold at", threshold: 90, confidence: 90},
		{name: "custom threshold above", threshold: 90, confidence: 91, notify: true},
		{name: "low threshold", threshold: 1, confidence: 2, notify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &memPublisher{}
			d := NewDispatcher(Config{Threshold: tt.threshold}, WithPublisher(pub))
			res := focus.Result{IsDistracting: true, Confidence: tt.confidence}

			require.NoError(t, d.Deliver(context.Background(), snap(1, "random-blog.com"), res))

			want := 0
			if tt.notify {
				want = 1
			}
			assert.Equal(t, want, pub.count("focusfuel.notifications"))
		})
	}
}

func TestDispatcher_Cooldown(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	pub := &memPublisher{}
	d := NewDispatcher(Config{Cooldown: 5 * time.Minute, SubjectPrefix: "ff"}, WithPublisher(pub), WithClock(c.Now))
	ctx := context.Background()

	require.NoError(t, d.Deliver(ctx, snap(1, "youtube.com"), distracting))
	require.NoError(t, d.Deliver(ctx, snap(1, "youtube.com"), distracting))
	require.NoError(t, d.Deliver(ctx, snap(2, "youtube.com"), distracting))
	assert.Equal(t, 2, pub.count("ff.notifications"), "second notice for tab 1 suppressed")
	assert.Equal(t, 3, pub.count("ff.events.distraction"))

	c.t = c.t.Add(5 * time.Minute)
	require.NoError(t, d.Deliver(ctx, snap(1, "youtube.com"), distracting))
	assert.Equal(t, 3, pub.count("ff.notifications"))

	require.NoError(t, d.Deliver(ctx, snap(1, "youtube.com"), distracting))
	assert.Equal(t, 3, pub.count("ff.notifications"))
	d.ForgetTab(1)
	require.NoError(t, d.Deliver(ctx, snap(1, "youtube.com"), distracting))
	assert.Equal(t, 4, pub.count("ff.notifications"), "forgotten tab starts fresh")
}

func TestDispatcher_NoCooldown(t *testing.T) {
	pub := &memPublisher{}
	d := NewDispatcher(Config{}, WithPublisher(pub))
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Deliver(context.Background(), snap(1, "youtube.com"), distracting))
	}
	assert.Equal(t, 3, pub.count("focusfuel.notifications"))
}

func TestDispatcher_ErrorsJoined(t *testing.T) {
	pub := &memPublisher{err: nats.ErrConnectionClosed}
	d := NewDispatcher(Config{}, WithStore(failingStore{}), WithPublisher(pub))

	err := d.Deliver(context.Background(), snap(1, "youtube.com"), distracting)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	assert.Len(t, d.Pending(), 1, "notification still recorded")
}

func TestDispatcher_RecordResponse(t *testing.T) {
	d := NewDispatcher(Config{})
	ctx := context.Background()

	_, err := d.RecordResponse(ctx, "nope", focus.ActionContinue)
	assert.ErrorIs(t, err, ErrUnknownNotification)

	require.NoError(t, d.Deliver(ctx, snap(1, "youtube.com"), distracting))
	pending := d.Pending()
	require.Len(t, pending, 1)

	_, err = d.RecordResponse(ctx, pending[0].ID, "snooze")
	require.Error(t, err)

	resp, err := d.RecordResponse(ctx, pending[0].ID, focus.ActionContinue)
	require.NoError(t, err)
	assert.Equal(t, pending[0].ID, resp.NotificationID)
	assert.Empty(t, d.Pending())

	_, err = d.RecordResponse(ctx, pending[0].ID, focus.ActionContinue)
	assert.ErrorIs(t, err, ErrUnknownNotification, "answered once only")
}

func TestDispatcher_PendingBounded(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	d := NewDispatcher(Config{}, WithClock(c.Now))
	for i := 0; i < maxPending+10; i++ {
		c.t = c.t.Add(time.Second)
		require.NoError(t, d.Deliver(context.Background(), snap(focus.TabID(i), "youtube.com"), distracting))
	}
	pending := d.Pending()
	assert.Len(t, pending, maxPending)
	assert.True(t, pending[0].CreatedAt.After(time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)))
}
