// Package sink is the outbound boundary of the classification pipeline.
//
// A Dispatcher turns each delivered result into a DistractionEvent, stores
// it, publishes it, and raises a notification when the result is
// distracting with enough confidence. Subjects are rooted at a prefix:
//
//	<prefix>.events.distraction
//	<prefix>.events.productive
//	<prefix>.notifications
//	<prefix>.notifications.responses
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/focusfuel/internal/domains"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

// ErrUnknownNotification is returned when responding to a notification
// that was never sent or was already answered.
var ErrUnknownNotification = errors.New("unknown notification")

// Defaults used when Config fields are zero.
const (
	DefaultThreshold     = 70
	DefaultSubjectPrefix = "focusfuel"

	// maxPending bounds unanswered notifications kept for responses.
	maxPending = 256
)

// Store persists events.
type Store interface {
	Save(ev focus.DistractionEvent) error
}

// Publisher publishes raw messages. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Config tunes the dispatcher.
type Config struct {
	// Threshold is the confidence a distracting result must exceed to
	// notify. Zero selects DefaultThreshold.
	Threshold int
	// Cooldown is the minimum gap between notifications for one tab. Zero
	// disables rate limiting.
	Cooldown      time.Duration
	SubjectPrefix string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithStore sets the event store.
func WithStore(s Store) Option {
	return func(d *Dispatcher) { d.store = s }
}

// WithPublisher sets the message publisher.
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.pub = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// Dispatcher delivers classification results to the store, the message bus
// and the notification channel. It is safe for concurrent use.
type Dispatcher struct {
	cfg    Config
	store  Store
	pub    Publisher
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	limiters map[focus.TabID]*rate.Limiter
	pending  map[string]focus.Notification
}

// NewDispatcher creates a dispatcher. Without a store or publisher the
// matching step is skipped.
func NewDispatcher(cfg Config, opts ...Option) *Dispatcher {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	d := &Dispatcher{
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
		limiters: make(map[focus.TabID]*rate.Limiter),
		pending:  make(map[string]focus.Notification),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver records the result for snap. Store and publish failures are
// returned joined; a failing step does not stop the others.
func (d *Dispatcher) Deliver(ctx context.Context, snap focus.Snapshot, res focus.Result) error {
	at := d.now()
	ev := focus.NewDistractionEvent(snap, domains.Normalize(snap.URL), res, at)
	EventsTotal.WithLabelValues(string(ev.Type)).Inc()

	var errs []error
	if d.store != nil {
		if err := d.store.Save(ev); err != nil {
			errs = append(errs, fmt.Errorf("store event: %w", err))
		}
	}
	if err := d.publish(d.subject("events", string(ev.Type)), ev); err != nil {
		errs = append(errs, fmt.Errorf("publish event: %w", err))
	}

	if res.IsDistracting && ev.Confidence > d.cfg.Threshold {
		if d.allow(snap.TabID, at) {
			n := focus.NewNotification(ev, res, at)
			d.remember(n)
			NotificationsTotal.WithLabelValues("sent").Inc()
			d.logger.Info("distraction notification",
				zap.Int("tab.id", int(snap.TabID)),
				zap.String("notification.id", n.ID),
				zap.Int("confidence", n.Confidence))
			if err := d.publish(d.subject("notifications"), n); err != nil {
				errs = append(errs, fmt.Errorf("publish notification: %w", err))
			}
		} else {
			NotificationsTotal.WithLabelValues("suppressed").Inc()
			d.logger.Debug("notification suppressed by cooldown", zap.Int("tab.id", int(snap.TabID)))
		}
	}

	return errors.Join(errs...)
}

// RecordResponse records the user's answer to a pending notification and
// publishes it.
func (d *Dispatcher) RecordResponse(ctx context.Context, notificationID string, action focus.NotificationAction) (focus.NotificationResponse, error) {
	if _, err := focus.ParseNotificationAction(string(action)); err != nil {
		return focus.NotificationResponse{}, err
	}

	d.mu.Lock()
	_, ok := d.pending[notificationID]
	delete(d.pending, notificationID)
	d.mu.Unlock()
	if !ok {
		return focus.NotificationResponse{}, fmt.Errorf("notification %s: %w", notificationID, ErrUnknownNotification)
	}

	resp := focus.NotificationResponse{
		NotificationID: notificationID,
		Action:         action,
		RespondedAt:    d.now().UTC(),
	}
	if err := d.publish(d.subject("notifications", "responses"), resp); err != nil {
		return resp, fmt.Errorf("publish response: %w", err)
	}
	return resp, nil
}

// Pending returns unanswered notifications, oldest first.
func (d *Dispatcher) Pending() []focus.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]focus.Notification, 0, len(d.pending))
	for _, n := range d.pending {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ForgetTab drops the tab's cooldown state.
func (d *Dispatcher) ForgetTab(tabID focus.TabID) {
	d.mu.Lock()
	delete(d.limiters, tabID)
	d.mu.Unlock()
}

// allow reports whether tabID may be notified at t.
func (d *Dispatcher) allow(tabID focus.TabID, t time.Time) bool {
	if d.cfg.Cooldown <= 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	lim, ok := d.limiters[tabID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(d.cfg.Cooldown), 1)
		d.limiters[tabID] = lim
	}
	return lim.AllowN(t, 1)
}

func (d *Dispatcher) remember(n focus.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) >= maxPending {
		var oldest string
		for id, p := range d.pending {
			if oldest == "" || p.CreatedAt.Before(d.pending[oldest].CreatedAt) {
				oldest = id
			}
		}
		delete(d.pending, oldest)
	}
	d.pending[n.ID] = n
}

func (d *Dispatcher) subject(parts ...string) string {
	s := d.cfg.SubjectPrefix
	for _, p := range parts {
		s += "." + p
	}
	return s
}

func (d *Dispatcher) publish(subject string, v any) error {
	if d.pub == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err := d.pub.Publish(subject, data); err != nil {
		PublishErrors.Inc()
		return err
	}
	return nil
}
