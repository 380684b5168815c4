package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// BeginRun records a new run and prunes everything left over from previous
// runs. The ledger always describes at most one run; slides and events from
// earlier runs are removed in the same transaction that inserts the new row.
func (s *Store) BeginRun(ctx context.Context, run *Run) (*Run, error) {
	if run == nil {
		return nil, errors.New("run is nil")
	}
	if run.ID == "" {
		return nil, errors.New("run id is empty")
	}
	ctx = ensureContext(ctx)

	protocolsJSON, err := json.Marshal(run.Protocols)
	if err != nil {
		return nil, fmt.Errorf("marshal protocols: %w", err)
	}
	slideIDsJSON, err := json.Marshal(run.SlideIDs)
	if err != nil {
		return nil, fmt.Errorf("marshal slide ids: %w", err)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	status := run.Status
	if status == "" {
		status = RunRunning
	}

	err = retryOnBusy(ctx, func() error {
		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("begin run tx: %w", txErr)
		}
		defer func() { _ = tx.Rollback() }()

		// ON DELETE CASCADE clears slides and events for pruned runs.
		if _, txErr = tx.ExecContext(ctx, `DELETE FROM runs`); txErr != nil {
			return fmt.Errorf("prune previous runs: %w", txErr)
		}

		if _, txErr = tx.ExecContext(
			ctx,
			`INSERT INTO runs (
                id, status, protocols_json, slide_ids_json, max_wash_loops,
                pickup_slot, handler_slot, dropoff_slot, error_message,
                created_at, updated_at, finished_at, last_heartbeat
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			status,
			string(protocolsJSON),
			string(slideIDsJSON),
			run.MaxWashLoops,
			run.PickupSlot,
			run.HandlerSlot,
			run.DropoffSlot,
			nullableString(run.ErrorMessage),
			timestamp,
			timestamp,
			nil,
			timestamp,
		); txErr != nil {
			return fmt.Errorf("insert run: %w", txErr)
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}

	return s.GetRun(ctx, run.ID)
}

// GetRun fetches a run by identifier.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// CurrentRun returns the most recent run, or nil when the ledger is empty.
func (s *Store) CurrentRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current run: %w", err)
	}
	return run, nil
}

// FinishRun marks a run terminal with the given status and optional error message.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, errorMessage string) error {
	if !status.Terminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.execWithoutResultRetry(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableString(errorMessage),
		now,
		now,
		id,
	)
}

// TouchRun updates the last heartbeat timestamp for an in-flight run.
func (s *Store) TouchRun(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE runs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// AbortOrphanRuns marks every running run aborted. Called once at daemon
// startup: any run still marked running was orphaned by a previous process.
func (s *Store) AbortOrphanRuns(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs
        SET status = ?, error_message = ?, finished_at = ?, updated_at = ?
        WHERE status = ?`,
		RunAborted,
		ReasonDaemonRestartedDetail,
		now,
		now,
		RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("abort orphan runs: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStaleRuns aborts running runs whose heartbeat expired before cutoff.
func (s *Store) ReclaimStaleRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs
        SET status = ?, error_message = ?, finished_at = ?, updated_at = ?
        WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		RunAborted,
		ReasonHeartbeatExpired,
		now,
		now,
		RunRunning,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale runs: %w", err)
	}
	return res.RowsAffected()
}

const runColumns = "id, status, protocols_json, slide_ids_json, max_wash_loops, pickup_slot, handler_slot, dropoff_slot, error_message, created_at, updated_at, finished_at, last_heartbeat"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id               string
		statusStr        string
		protocolsRaw     string
		slideIDsRaw      string
		maxWashLoops     int
		pickupSlot       int
		handlerSlot      int
		dropoffSlot      int
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		finishedRaw      sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&protocolsRaw,
		&slideIDsRaw,
		&maxWashLoops,
		&pickupSlot,
		&handlerSlot,
		&dropoffSlot,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		Status:       RunStatus(statusStr),
		MaxWashLoops: maxWashLoops,
		PickupSlot:   pickupSlot,
		HandlerSlot:  handlerSlot,
		DropoffSlot:  dropoffSlot,
		ErrorMessage: errorMessage.String,
	}
	if err := json.Unmarshal([]byte(protocolsRaw), &run.Protocols); err != nil {
		return nil, fmt.Errorf("decode protocols: %w", err)
	}
	if err := json.Unmarshal([]byte(slideIDsRaw), &run.SlideIDs); err != nil {
		return nil, fmt.Errorf("decode slide ids: %w", err)
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		run.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			run.LastHeartbeat = &heartbeat
		}
	}
	return run, nil
}
