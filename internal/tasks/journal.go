package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Journal persists terminal task records to sqlite so history survives
// restarts. The in-memory registry stays authoritative; the journal is
// write-behind and read only for history queries.
type Journal struct {
	db   *sql.DB
	path string
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS task_history (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	progress REAL NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	payload_json TEXT NOT NULL DEFAULT '{}',
	result_json TEXT NOT NULL DEFAULT '{}',
	enqueued_at TIMESTAMP,
	started_at TIMESTAMP,
	finished_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_task_history_finished ON task_history(finished_at);
`

// OpenJournal initializes or connects to the journal database.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(journalSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Journal{db: db, path: path}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordTerminal upserts a terminal task record.
func (j *Journal) RecordTerminal(rec Record) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		result = []byte("{}")
	}

	_, err = j.db.Exec(`
		INSERT INTO task_history (id, type, status, progress, message, payload_json, result_json, enqueued_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			message = excluded.message,
			result_json = excluded.result_json,
			finished_at = excluded.finished_at`,
		rec.ID, string(rec.Type), string(rec.Status), rec.Progress, rec.Message,
		string(payload), string(result), rec.EnqueuedAt, rec.StartedAt, rec.FinishedAt)
	return err
}

// History returns up to limit journaled records, most recently finished
// first.
func (j *Journal) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, type, status, progress, message, payload_json, result_json, enqueued_at, started_at, finished_at
		FROM task_history ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var taskType, status, payloadJSON, resultJSON string
		var enqueued, started, finished sql.NullTime
		if err := rows.Scan(&rec.ID, &taskType, &status, &rec.Progress, &rec.Message,
			&payloadJSON, &resultJSON, &enqueued, &started, &finished); err != nil {
			return nil, err
		}
		rec.Type = Type(taskType)
		rec.Status = Status(status)
		if enqueued.Valid {
			rec.EnqueuedAt = enqueued.Time
		}
		if started.Valid {
			t := started.Time
			rec.StartedAt = &t
		}
		if finished.Valid {
			t := finished.Time
			rec.FinishedAt = &t
		}
		_ = json.Unmarshal([]byte(payloadJSON), &rec.Payload)
		_ = json.Unmarshal([]byte(resultJSON), &rec.Result)
		records = append(records, rec)
	}
	return records, rows.Err()
}
