package workflow

import (
	"context"

	"histoflow/internal/devices"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	LastError  string
	Run        *ledger.Run
	LastResult *RunResult
	SlideStats map[ledger.Phase]int
	Devices    []devices.Health
}

// Status returns the latest workflow information. The run row comes from the
// ledger so a finished run keeps reporting its terminal status.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastResult := m.lastResult
	checker := m.health
	m.mu.RUnlock()

	summary := StatusSummary{Running: running}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastResult != nil {
		result := *lastResult
		result.Outcomes = append([]SlideOutcome(nil), lastResult.Outcomes...)
		summary.LastResult = &result
	}

	run, err := m.store.CurrentRun(ctx)
	if err != nil {
		m.logger.Warn("failed to read current run", logging.Error(err))
	}
	if run != nil {
		copied := *run
		summary.Run = &copied

		stats, err := m.store.SlideStats(ctx, run.ID)
		if err != nil {
			m.logger.Warn("failed to read slide stats", logging.Error(err))
		} else {
			summary.SlideStats = stats
		}
	}

	if checker != nil {
		summary.Devices = checker.HealthCheck(ctx)
	}
	return summary
}
