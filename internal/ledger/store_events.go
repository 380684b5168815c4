package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AppendEvent records one event in the run's append-only stream. The payload
// is stored as JSON; a nil payload stores NULL.
func (s *Store) AppendEvent(ctx context.Context, runID, name string, payload map[string]any) (int64, error) {
	var payloadArg any
	if len(payload) > 0 {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal event payload: %w", err)
		}
		payloadArg = string(data)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO events (run_id, name, payload_json, emitted_at) VALUES (?, ?, ?, ?)`,
		runID,
		name,
		payloadArg,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return res.LastInsertId()
}

// Events returns up to limit events of a run with a sequence greater than
// afterSeq, in emission order. A limit of zero or less means no limit.
func (s *Store) Events(ctx context.Context, runID string, afterSeq int64, limit int) ([]*Event, error) {
	query := `SELECT seq, run_id, name, payload_json, emitted_at FROM events WHERE run_id = ? AND seq > ? ORDER BY seq`
	args := []any{runID, afterSeq}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// TailEvents returns the most recent limit events of a run in emission order.
func (s *Store) TailEvents(ctx context.Context, runID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		return s.Events(ctx, runID, 0, 0)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT seq, run_id, name, payload_json, emitted_at FROM (
            SELECT seq, run_id, name, payload_json, emitted_at FROM events
            WHERE run_id = ? ORDER BY seq DESC LIMIT ?
        ) ORDER BY seq`,
		runID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query event tail: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// EventCount returns the number of events recorded for a run.
func (s *Store) EventCount(ctx context.Context, runID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM events WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*Event, error) {
	var (
		seq        int64
		runID      string
		name       string
		payloadRaw sql.NullString
		emittedRaw sql.NullString
	)
	if err := scanner.Scan(&seq, &runID, &name, &payloadRaw, &emittedRaw); err != nil {
		return nil, err
	}

	event := &Event{
		Seq:         seq,
		RunID:       runID,
		Name:        name,
		PayloadJSON: payloadRaw.String,
	}
	if emitted, err := parseTimeString(emittedRaw.String); err == nil {
		event.EmittedAt = emitted
	}
	return event, nil
}
