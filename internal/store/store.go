// Package store persists DistractionEvents in BadgerDB.
//
// Events are keyed by timestamp so Recent can walk them newest first with a
// reverse iterator. A secondary key maps event ids to primary keys.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

// ErrNotFound is returned when an event id is unknown.
var ErrNotFound = errors.New("event not found")

const (
	eventPrefix = "event/"
	idPrefix    = "id/"

	defaultGCInterval = 5 * time.Minute
	gcDiscardRatio    = 0.5
)

// Config controls where events are stored. An empty Path keeps the
// database in memory.
type Config struct {
	Path       string
	SyncWrites bool
	GCInterval time.Duration
	Logger     *zap.Logger
}

// EventStore is a BadgerDB-backed DistractionEvent store. It is safe for
// concurrent use.
type EventStore struct {
	db     *badger.DB
	logger *zap.Logger

	stopGC chan struct{}
	gcDone chan struct{}
}

// badgerLogger adapts zap to badger's logger interface.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, a ...interface{})   { l.s.Errorf(f, a...) }
func (l badgerLogger) Warningf(f string, a ...interface{}) { l.s.Warnf(f, a...) }
func (l badgerLogger) Infof(f string, a ...interface{})    { l.s.Debugf(f, a...) }
func (l badgerLogger) Debugf(f string, a ...interface{})   { l.s.Debugf(f, a...) }

// Open opens (or creates) the event store.
func Open(cfg Config) (*EventStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}
	opts = opts.WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{s: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &EventStore{db: db, logger: logger}
	if cfg.Path != "" {
		interval := cfg.GCInterval
		if interval <= 0 {
			interval = defaultGCInterval
		}
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(interval)
	}
	return s, nil
}

// Save stores an event. Saving an id twice replaces the earlier record.
func (s *EventStore) Save(ev focus.DistractionEvent) error {
	if ev.ID == "" {
		return errors.New("event id is required")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := eventKey(ev)

	err = s.db.Update(func(txn *badger.Txn) error {
		if old, err := txn.Get(idKey(ev.ID)); err == nil {
			prev, err := old.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := txn.Delete(prev); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(idKey(ev.ID), key)
	})
	if err != nil {
		return fmt.Errorf("save event %s: %w", ev.ID, err)
	}
	return nil
}

// Get returns the event with the given id.
func (s *EventStore) Get(id string) (focus.DistractionEvent, error) {
	var ev focus.DistractionEvent
	err := s.db.View(func(txn *badger.Txn) error {
		ref, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		key, err := ref.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &ev)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return focus.DistractionEvent{}, ErrNotFound
	}
	if err != nil {
		return focus.DistractionEvent{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return ev, nil
}

// Recent returns up to limit events, newest first. A limit <= 0 returns
// every event.
func (s *EventStore) Recent(limit int) ([]focus.DistractionEvent, error) {
	events := make([]focus.DistractionEvent, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(eventPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(eventPrefix), 0xff)
		for it.Seek(seek); it.Valid(); it.Next() {
			if limit > 0 && len(events) >= limit {
				break
			}
			var ev focus.DistractionEvent
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &ev)
			}); err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Count returns the number of stored events by type.
func (s *EventStore) Count() (map[focus.EventType]int, error) {
	counts := make(map[focus.EventType]int)
	events, err := s.Recent(0)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		counts[ev.Type]++
	}
	return counts, nil
}

// Close stops background GC and closes the database.
func (s *EventStore) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}
	return s.db.Close()
}

func (s *EventStore) runGC(interval time.Duration) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(gcDiscardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("badger value log GC failed", zap.Error(err))
			}
		}
	}
}

// eventKey orders events by timestamp. The id suffix keeps keys unique.
func eventKey(ev focus.DistractionEvent) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", eventPrefix, ev.Timestamp.UnixNano(), ev.ID))
}

func idKey(id string) []byte {
	return []byte(idPrefix + id)
}
