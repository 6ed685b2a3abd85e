package indexdb

import (
	"context"
	"database/sql"
)

type RunRow struct {
	RunID      string `json:"run_id"`
	Task       string `json:"task"`
	StartedAt  string `json:"started_at"`
	EndedAt    string `json:"ended_at,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
	Iterations int64  `json:"iterations"`
	RuntimeMs  int64  `json:"runtime_ms"`
	Pauses     int    `json:"pauses"`
	Faults     int    `json:"faults"`
}

// Runs lists recorded runs, newest first. An empty task matches every task.
// Call Sync first to see writes still in the queue.
func (s *SQLiteIndex) Runs(ctx context.Context, task string, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, task, started_at, ended_at, stop_reason, iterations, runtime_ms, pauses, faults
		FROM runs WHERE (? = '' OR task = ?) ORDER BY started_at DESC, run_id LIMIT ?`, task, task, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		var ended, reason sql.NullString
		if err := rows.Scan(&r.RunID, &r.Task, &r.StartedAt, &ended, &reason, &r.Iterations, &r.RuntimeMs, &r.Pauses, &r.Faults); err != nil {
			return nil, err
		}
		r.EndedAt, r.StopReason = ended.String, reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventKinds returns the kinds recorded for runID in order.
func (s *SQLiteIndex) EventKinds(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) CommandCount(ctx context.Context, okOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM commands`
	if okOnly {
		q += ` WHERE ok = 1`
	}
	var n int
	err := s.db.QueryRowContext(ctx, q).Scan(&n)
	return n, err
}

// Meta reads one value from the meta table; missing keys read as "".
func (s *SQLiteIndex) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}
