package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/gammad/internal/db"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestAppendAndJob(t *testing.T) {
	l := newLedger(t)

	require.NoError(t, l.Append(Entry{EventType: EventStarted, Controller: "brightness", JobID: "job-1", Start: 100, End: 70, Value: 100}))
	require.NoError(t, l.Append(Entry{EventType: EventCompleted, Controller: "brightness", JobID: "job-1", Start: 100, End: 70, Value: 70}))
	require.NoError(t, l.Append(Entry{EventType: EventStarted, Controller: "brightness", JobID: "job-2", Start: 70, End: 90}))

	entries, err := l.Job("job-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EventStarted, entries[0].EventType)
	assert.Equal(t, EventCompleted, entries[1].EventType)
	assert.Equal(t, 70, entries[1].Value)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestRecent(t *testing.T) {
	l := newLedger(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Append(Entry{EventType: EventStarted, Controller: "brightness", Timestamp: base}))
	require.NoError(t, l.Append(Entry{
		EventType:  EventPhase,
		Controller: "temperature",
		Timestamp:  base.Add(time.Minute),
		Payload:    map[string]any{"phase": "LOWERING", "quick": true},
	}))
	require.NoError(t, l.Append(Entry{EventType: EventCompleted, Controller: "brightness", Timestamp: base.Add(2 * time.Minute)}))

	tests := []struct {
		name       string
		controller string
		limit      int
		want       []EventType
	}{
		{name: "all", limit: 10, want: []EventType{EventCompleted, EventPhase, EventStarted}},
		{name: "limited", limit: 1, want: []EventType{EventCompleted}},
		{name: "temperature_only", controller: "temperature", limit: 10, want: []EventType{EventPhase}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := l.Recent(tt.controller, tt.limit)
			require.NoError(t, err)

			var got []EventType
			for _, e := range entries {
				got = append(got, e.EventType)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	entries, err := l.Recent("temperature", 1)
	require.NoError(t, err)
	assert.Equal(t, "LOWERING", entries[0].Payload["phase"])
	assert.Equal(t, true, entries[0].Payload["quick"])
	assert.Empty(t, entries[0].JobID)
}

func TestDeleteOlderThan(t *testing.T) {
	l := newLedger(t)
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.NoError(t, l.Append(Entry{EventType: EventStarted, Controller: "brightness", Timestamp: now.AddDate(0, 0, -40)}))
	require.NoError(t, l.Append(Entry{EventType: EventStarted, Controller: "brightness", Timestamp: now.AddDate(0, 0, -31)}))
	require.NoError(t, l.Append(Entry{EventType: EventStarted, Controller: "brightness", Timestamp: now.AddDate(0, 0, -1)}))

	deleted, err := l.DeleteOlderThan(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	entries, err := l.Recent("", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
