// Package ledger keeps an append-only history of brightness and temperature
// transitions.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the lifecycle event recorded for a transition.
type EventType string

const (
	EventStarted    EventType = "started"
	EventCompleted  EventType = "completed"
	EventSuperseded EventType = "superseded"
	EventCancelled  EventType = "cancelled"
	EventPhase      EventType = "phase"
)

// Entry is one ledger row.
type Entry struct {
	ID         int64          `json:"id"`
	EventType  EventType      `json:"event_type"`
	Controller string         `json:"controller"`
	JobID      string         `json:"job_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Start      int            `json:"start"`
	End        int            `json:"end"`
	Value      int            `json:"value"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Ledger appends and queries transition history.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a ledger on an opened database.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Append stores e. A zero Timestamp is replaced with the current time.
func (l *Ledger) Append(e Entry) error {
	var payload sql.NullString
	if len(e.Payload) > 0 {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}

	var jobID sql.NullString
	if e.JobID != "" {
		jobID = sql.NullString{String: e.JobID, Valid: true}
	}

	_, err := l.db.Exec(`
		INSERT INTO transitions (event_type, controller, job_id, timestamp, start_step, end_step, value, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, string(e.EventType), e.Controller, jobID, ts.UTC().UnixMilli(), e.Start, e.End, e.Value, payload)
	if err != nil {
		return fmt.Errorf("failed to append %s entry: %w", e.EventType, err)
	}
	return nil
}

// Recent returns the newest entries, optionally limited to one controller.
func (l *Ledger) Recent(controller string, limit int) ([]*Entry, error) {
	query := `SELECT ` + columns + ` FROM transitions`
	args := []any{}
	if controller != "" {
		query += ` WHERE controller = ?`
		args = append(args, controller)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Job returns every entry of one animation job in insertion order.
func (l *Ledger) Job(jobID string) ([]*Entry, error) {
	rows, err := l.db.Query(`SELECT `+columns+` FROM transitions WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries older than retention and returns how many
// were deleted.
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).UTC().UnixMilli()
	result, err := l.db.Exec(`DELETE FROM transitions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const columns = `id, event_type, controller, job_id, timestamp, start_step, end_step, value, payload`

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var (
			entry   Entry
			jobID   sql.NullString
			payload sql.NullString
			ts      int64
		)
		err := rows.Scan(&entry.ID, &entry.EventType, &entry.Controller, &jobID, &ts,
			&entry.Start, &entry.End, &entry.Value, &payload)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(ts).UTC()
		entry.JobID = jobID.String
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
