// Package eventlog appends simulation events to the append-only events
// table. Entries are buffered in memory and flushed inside the same
// transaction as the state snapshot, so the log never runs ahead of state.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type Payload map[string]any

// Entry is one buffered log record.
type Entry struct {
	Tick       uint64
	Type       string
	EntityKind string
	EntityID   string
	Payload    Payload
}

// Buffer accumulates entries between snapshot saves.
type Buffer struct {
	entries []Entry
}

// Record appends one entry to the buffer.
func (b *Buffer) Record(tick uint64, evtType, entityKind, entityID string, payload Payload) {
	b.entries = append(b.entries, Entry{
		Tick:       tick,
		Type:       evtType,
		EntityKind: entityKind,
		EntityID:   entityID,
		Payload:    payload,
	})
}

// Pending returns the number of unflushed entries.
func (b *Buffer) Pending() int { return len(b.entries) }

// Flush writes all buffered entries inside tx and clears the buffer. The
// buffer is left intact on error so a retried save sees the same entries.
func (b *Buffer) Flush(ctx context.Context, tx *sql.Tx, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	for _, e := range b.entries {
		payload := e.Payload
		if payload == nil {
			payload = Payload{}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,tick,type,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?,?)`,
			ts, e.Tick, e.Type, e.EntityKind, nullable(e.EntityID), string(data))
		if err != nil {
			return err
		}
	}
	b.entries = nil
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
