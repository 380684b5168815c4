package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Health aggregates slide state for diagnostic output. With an empty runID
// the current run is used; an empty ledger yields a zero summary.
func (s *Store) Health(ctx context.Context, runID string) (HealthSummary, error) {
	if runID == "" {
		run, err := s.CurrentRun(ctx)
		if err != nil {
			return HealthSummary{}, err
		}
		if run == nil {
			return HealthSummary{}, nil
		}
		runID = run.ID
	}

	stats, err := s.SlideStats(ctx, runID)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for phase, count := range stats {
		health.Total += count
		switch phase {
		case PhaseReturned:
			health.Returned += count
		case PhaseAccepted:
			health.Accepted += count
		case PhaseRejected:
			health.Rejected += count
		case PhaseFailed:
			health.Failed += count
		case PhaseAborted:
			health.Aborted += count
		default:
			health.Active += count
		}
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the ledger database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		DBPath: s.path,
	}

	if s.path == "" {
		return health, errors.New("ledger database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat ledger database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("ledger database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("ledger database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping ledger database: %w", err)
	}
	health.DatabaseReadable = true

	expected := []string{"runs", "slides", "events"}
	missingMap := make(map[string]struct{}, len(expected))
	for _, table := range expected {
		missingMap[table] = struct{}{}
	}

	rows, err := s.db.QueryContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("scan table name: %w", err)
		}
		if _, ok := missingMap[name]; ok {
			delete(missingMap, name)
			health.TablesPresent = append(health.TablesPresent, name)
		}
	}
	if err := rows.Err(); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("iterate tables: %w", err)
	}
	for table := range missingMap {
		health.MissingTables = append(health.MissingTables, table)
	}

	if len(health.MissingTables) == 0 {
		row := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM events")
		if err := row.Scan(&health.TotalEvents); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count events: %w", err)
		}
	}

	row := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

// Clear removes all runs, slides, and events from the ledger.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear ledger: %w", err)
	}
	return res.RowsAffected()
}

// Path returns the filesystem path of the ledger database.
func (s *Store) Path() string {
	return s.path
}
