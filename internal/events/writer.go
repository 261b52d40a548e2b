package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Writer appends entries to the remote store's audit feed. Every mutation
// of a collection lands here inside the same transaction as the write.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

const (
	TypeCreated = "record.created"
	TypeUpdated = "record.updated"
	TypeDeleted = "record.deleted"
	TypeLogin   = "session.login"
)

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, collection string, recordID, actorID int64, payload EventPayload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,collection,record_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		ts, evtType, collection, nullableID(recordID), actorID, string(data))
	return err
}

func nullableID(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
