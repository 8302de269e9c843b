// Package events appends audit rows for job transitions. Rows are written
// in the same transaction as the change they record, so a committed
// transition always has its event and a rolled-back one never does.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Writer struct {
	Now func() time.Time
}

func NewWriter(now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{Now: now}
}

// Append records one event inside tx. payload must be JSON-marshalable;
// nil becomes {}.
func (w *Writer) Append(ctx context.Context, tx *sql.Tx, evtType, jobID, actorID string, payload any) error {
	body := []byte(`{}`)
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = b
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO job_events (ts, type, job_id, actor_id, payload_json) VALUES (?,?,?,?,?)`,
		w.Now().UTC().Format(time.RFC3339), evtType, jobID, actorID, string(body))
	return err
}

// List returns a job's events oldest first.
func List(ctx context.Context, db *sql.DB, jobID string) ([]Event, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, ts, type, job_id, actor_id, payload_json FROM job_events WHERE job_id=? ORDER BY id`,
		jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var evts []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.JobID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		evts = append(evts, e)
	}
	return evts, rows.Err()
}

type Event struct {
	ID      int64  `json:"id"`
	TS      string `json:"ts"`
	Type    string `json:"type"`
	JobID   string `json:"job_id"`
	ActorID string `json:"actor_id"`
	Payload string `json:"payload"`
}
