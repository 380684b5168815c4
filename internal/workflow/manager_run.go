package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"histoflow/internal/devices"
	"histoflow/internal/events"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
	"histoflow/internal/services"
)

// Startup reconciles ledger state left by a previous daemon process. Any run
// still marked running was orphaned and is recorded as aborted.
func (m *Manager) Startup(ctx context.Context) error {
	reclaimed, err := m.store.AbortOrphanRuns(ctx)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		m.logger.Info("aborted orphaned runs from previous process", logging.Int64("count", reclaimed))
	}
	return nil
}

// RunMaintenance periodically reclaims runs whose heartbeats stopped. It
// returns when ctx is cancelled.
func (m *Manager) RunMaintenance(ctx context.Context) {
	interval := m.heartbeat.heartbeatTimeout
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, m.logger.With(logging.String("component", "workflow-manager")))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.heartbeat.ReclaimStaleRuns(ctx, logger); err != nil {
				logger.Warn("reclaim stale runs failed; stuck runs may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check ledger database access"),
				)
			}
		}
	}
}

// StartOverrides carries per-run adjustments to the configured plan. Nil
// fields and an empty protocol list keep the configured values.
type StartOverrides struct {
	Protocols    []string
	MaxWashLoops *int
	PickupSlot   *int
	HandlerSlot  *int
	DropoffSlot  *int
}

// StartRun validates the request, records the run, and launches the workflow
// in the background. At most one run may be active at a time. Empty protocols
// fall back to the configured plan.
func (m *Manager) StartRun(ctx context.Context, slideIDs []int64, protocols []string) (*ledger.Run, error) {
	return m.Submit(ctx, slideIDs, StartOverrides{Protocols: protocols})
}

// Submit is StartRun with per-run plan overrides. Overridden values still go
// through plan validation.
func (m *Manager) Submit(ctx context.Context, slideIDs []int64, overrides StartOverrides) (*ledger.Run, error) {
	plan := PlanFromConfig(m.cfg, slideIDs)
	if len(overrides.Protocols) > 0 {
		plan.Protocols = append([]string(nil), overrides.Protocols...)
	}
	if overrides.MaxWashLoops != nil {
		plan.MaxWashLoops = *overrides.MaxWashLoops
	}
	if overrides.PickupSlot != nil {
		plan.PickupSlot = *overrides.PickupSlot
	}
	if overrides.HandlerSlot != nil {
		plan.HandlerSlot = *overrides.HandlerSlot
	}
	if overrides.DropoffSlot != nil {
		plan.DropoffSlot = *overrides.DropoffSlot
	}
	plan.RunID = uuid.NewString()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, services.Wrap(services.ErrUnavailable, "workflow", "start run", "a run is already active", nil)
	}
	m.running = true
	m.mu.Unlock()

	run, err := m.store.BeginRun(ctx, &ledger.Run{
		ID:           plan.RunID,
		Protocols:    plan.Protocols,
		SlideIDs:     plan.SlideIDs,
		MaxWashLoops: plan.MaxWashLoops,
		PickupSlot:   plan.PickupSlot,
		HandlerSlot:  plan.HandlerSlot,
		DropoffSlot:  plan.DropoffSlot,
	})
	if err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return nil, err
	}

	// The run outlives the request that started it.
	runCtx, cancel := context.WithCancel(services.WithRunID(context.Background(), plan.RunID))

	m.mu.Lock()
	m.cancel = cancel
	m.activeID = plan.RunID
	m.runStart = time.Now()
	m.lastErr = nil
	m.lastResult = nil
	m.mu.Unlock()

	m.wg.Add(2)
	go m.heartbeat.StartLoop(runCtx, &m.wg, plan.RunID)
	go m.runWorkflow(runCtx, cancel, plan)

	return run, nil
}

// AbortRun cancels the active run. The workflow winds down asynchronously;
// the in-flight slide is recorded as aborted before the run finishes.
func (m *Manager) AbortRun(ctx context.Context) (string, error) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return "", services.Wrap(services.ErrNotFound, "workflow", "abort run", "no active run", nil)
	}
	runID := m.activeID
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("run abort requested", logging.String(logging.FieldRunID, runID))
	return runID, nil
}

// Stop aborts any active run and waits for its goroutines to finish. Called
// once at daemon shutdown.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Wait blocks until the active run finishes. Used by tests and the demo
// command; the daemon relies on Stop instead.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) runWorkflow(ctx context.Context, cancel context.CancelFunc, plan RunPlan) {
	defer m.wg.Done()
	defer cancel()

	logger := logging.WithContext(ctx, m.logger)
	sink := m.buildSink(plan.RunID)
	bench, health := m.benches(sink)
	m.setHealthChecker(health)

	m.notifyRunStarted(ctx, plan)

	var result *RunResult
	orch, err := NewOrchestrator(plan, bench, m.store, sink, m.logger)
	if err == nil {
		result, err = orch.Run(ctx)
	}

	m.finishRun(ctx, logger, plan, result, err)
}

func (m *Manager) finishRun(ctx context.Context, logger *slog.Logger, plan RunPlan, result *RunResult, runErr error) {
	// Persistence and notifications must survive the cancelled run context.
	cleanupCtx := context.WithoutCancel(ctx)

	status := ledger.RunCompleted
	errMsg := ""
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		status = ledger.RunAborted
		errMsg = "run aborted by operator"
	default:
		status = ledger.RunFailed
		errMsg = runErr.Error()
	}

	if err := m.store.FinishRun(cleanupCtx, plan.RunID, status, errMsg); err != nil {
		logger.Error("failed to record run completion", logging.Error(err))
	}

	m.mu.Lock()
	m.running = false
	m.cancel = nil
	m.activeID = ""
	m.lastErr = runErr
	m.lastResult = result
	start := m.runStart
	m.runStart = time.Time{}
	m.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}

	attrs := []logging.Attr{
		logging.String("status", string(status)),
		logging.String("duration", duration.Round(time.Millisecond).String()),
	}
	if result != nil {
		attrs = append(attrs,
			logging.Int("accepted", result.Accepted),
			logging.Int("rejected", result.Rejected),
			logging.Int("failed", result.Failed),
		)
	}
	logger.Info("run finished", logging.Args(attrs...)...)

	switch status {
	case ledger.RunCompleted:
		m.notifyRunCompleted(cleanupCtx, result, duration)
	case ledger.RunFailed:
		m.notifyRunFailed(cleanupCtx, runErr)
	}
}

// buildSink assembles the event fan-out for one run. The ledger stream always
// records; optional mirrors attach alongside it.
func (m *Manager) buildSink(runID string) events.Sink {
	sinks := make([]events.Sink, 0, len(m.sinks)+3)
	sinks = append(sinks, ledger.NewRunSink(m.store, runID))
	if m.cfg.Events.LogMirror {
		sinks = append(sinks, events.NewLogSink(m.logger))
	}
	if m.notifier != nil {
		sinks = append(sinks, &notificationBridge{manager: m})
	}
	sinks = append(sinks, m.sinks...)
	return events.NewFanout(m.logger, sinks...)
}

func (m *Manager) setHealthChecker(checker devices.HealthChecker) {
	m.mu.Lock()
	m.health = checker
	m.mu.Unlock()
}
