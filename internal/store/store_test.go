package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

func openMemory(t *testing.T) *EventStore {
	t.Helper()
	s, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func event(id string, at time.Time, typ focus.EventType) focus.DistractionEvent {
	return focus.DistractionEvent{
		ID:        id,
		Timestamp: at,
		TabID:     1,
		URL:       "https://example.com",
		Type:      typ,
	}
}

func TestEventStore_SaveGet(t *testing.T) {
	s := openMemory(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Save(event("a", at, focus.EventDistraction)))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.True(t, at.Equal(got.Timestamp))
	assert.Equal(t, focus.EventDistraction, got.Type)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.Error(t, s.Save(focus.DistractionEvent{}))
}

func TestEventStore_RecentNewestFirst(t *testing.T) {
	s := openMemory(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Insert out of order.
	require.NoError(t, s.Save(event("second", base.Add(2*time.Minute), focus.EventProductive)))
	require.NoError(t, s.Save(event("first", base.Add(time.Minute), focus.EventDistraction)))
	require.NoError(t, s.Save(event("third", base.Add(3*time.Minute), focus.EventDistraction)))

	all, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"third", "second", "first"}, ids(all))

	two, err := s.Recent(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second"}, ids(two))

	counts, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, counts[focus.EventDistraction])
	assert.Equal(t, 1, counts[focus.EventProductive])
}

func TestEventStore_SaveReplaces(t *testing.T) {
	s := openMemory(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(event("a", base, focus.EventDistraction)))
	require.NoError(t, s.Save(event("a", base.Add(time.Hour), focus.EventProductive)))

	all, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, focus.EventProductive, all[0].Type)
}

func TestEventStore_Empty(t *testing.T) {
	s := openMemory(t)
	all, err := s.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NotNil(t, all)
}

func TestEventStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	s, err := Open(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Save(event("kept", at, focus.EventDistraction)))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("kept")
	require.NoError(t, err)
	assert.Equal(t, "kept", got.ID)
}

func ids(events []focus.DistractionEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}
