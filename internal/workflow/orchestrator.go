package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"histoflow/internal/devices"
	"histoflow/internal/events"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
	"histoflow/internal/services"
)

// Orchestrator drives one run across the bench: every protocol over every
// slide in order, with the quality loop on the final pass. All device access
// serializes through a station guard, so at most one transfer is in flight
// at any moment.
type Orchestrator struct {
	plan   RunPlan
	bench  devices.Bench
	guard  *devices.Guard
	sink   events.Sink
	store  *ledger.Store
	logger *slog.Logger
}

// NewOrchestrator validates the plan and bench and builds an orchestrator.
// store may be nil for unpersisted runs (the demo command); sink may be nil
// when no event consumers are attached.
func NewOrchestrator(plan RunPlan, bench devices.Bench, store *ledger.Store, sink events.Sink, logger *slog.Logger) (*Orchestrator, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if err := bench.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "validate bench", "", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = events.NewFanout(logger)
	}
	return &Orchestrator{
		plan:   plan,
		bench:  bench,
		guard:  devices.NewGuard(),
		sink:   sink,
		store:  store,
		logger: logging.NewComponentLogger(logger, "orchestrator"),
	}, nil
}

// SlideOutcome is the last recorded state of one slide, taken from its most
// recent pass.
type SlideOutcome struct {
	SlideID  int64
	Protocol string
	Final    bool
	Phase    ledger.Phase
	Quality  ledger.Quality
	Loops    int
	Reason   string
	Report   *devices.Report
}

// RunResult summarizes a finished (or stopped) run.
type RunResult struct {
	RunID    string
	Accepted int
	Rejected int
	Failed   int
	Aborted  int
	Duration time.Duration
	Outcomes []SlideOutcome
}

// Run executes the plan. A nil error means the workflow ran to completion;
// rejected or failed slides do not fail the run. The error is
// context.Canceled when the run was aborted mid-flight, or the underlying
// fault when the bench can no longer serve any slide.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	o.emit(ctx, events.WorkflowStart, events.Payload{
		"slides":    o.plan.SlideIDs,
		"protocols": o.plan.Protocols,
	})

	excluded := make(map[int64]struct{})
	lastOutcome := make(map[int64]*SlideOutcome)

	runErr := o.runProtocols(ctx, excluded, lastOutcome)
	if runErr == nil {
		o.emit(ctx, events.WorkflowComplete, events.Payload{})
	}

	return o.buildResult(start, lastOutcome), runErr
}

func (o *Orchestrator) runProtocols(ctx context.Context, excluded map[int64]struct{}, lastOutcome map[int64]*SlideOutcome) error {
	total := len(o.plan.Protocols)
	for index, protocol := range o.plan.Protocols {
		if err := ctx.Err(); err != nil {
			return err
		}
		final := index == total-1

		o.emit(ctx, events.ProtocolStart, events.Payload{
			"protocol":        protocol,
			"protocol_index":  index,
			"total_protocols": total,
		})

		if err := o.setProtocol(ctx, protocol); err != nil {
			return err
		}

		for _, slideID := range o.plan.SlideIDs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, skip := excluded[slideID]; skip {
				continue
			}
			outcome, err := o.processSlide(ctx, slideID, protocol, final)
			if outcome != nil {
				lastOutcome[slideID] = outcome
				if outcome.Phase == ledger.PhaseFailed || outcome.Phase == ledger.PhaseAborted {
					excluded[slideID] = struct{}{}
				}
			}
			if err != nil {
				return err
			}
		}

		o.emit(ctx, events.ProtocolComplete, events.Payload{"protocol": protocol})
	}
	return nil
}

// setProtocol arms the liquid handler for the coming pass. No slide is in
// flight here, and every pass of the protocol depends on it, so any failure
// stops the run.
func (o *Orchestrator) setProtocol(ctx context.Context, protocol string) error {
	release := o.guard.Acquire(devices.StationLiquidHandler)
	defer release()
	err := o.bench.Stainer.SetActiveProtocol(ctx, devices.Protocol(protocol))
	if err == nil {
		return nil
	}
	if isCancellation(ctx, err) {
		return context.Canceled
	}
	return services.Wrap(services.ErrUnavailable, "workflow", "set protocol", fmt.Sprintf("protocol %s", protocol), err)
}

func (o *Orchestrator) processSlide(parent context.Context, slideID int64, protocol string, final bool) (*SlideOutcome, error) {
	ctx := services.WithSlideID(services.WithProtocol(parent, protocol), slideID)
	logger := logging.WithContext(ctx, o.logger)

	state := NewSlideState(final, o.plan.MaxWashLoops)
	record := o.beginSlideRecord(ctx, slideID, protocol, final)
	outcome := &SlideOutcome{SlideID: slideID, Protocol: protocol, Final: final}

	o.emit(ctx, events.SlideProtocolStart, events.Payload{
		"slide":    slideID,
		"protocol": protocol,
		"is_final": final,
	})

	fail := func(step string, stepErr error) (*SlideOutcome, error) {
		return o.finishInterrupted(ctx, logger, record, outcome, &state, step, stepErr)
	}

	if err := o.move(ctx, devices.StationRack, devices.StationLiquidHandler, slideID, o.plan.PickupSlot); err != nil {
		return fail("pickup", err)
	}
	o.advance(ctx, logger, record, &state, Picked())

	if err := o.stationCall(devices.StationLiquidHandler, func() error {
		return o.bench.Stainer.Stain(ctx, slideID, o.plan.HandlerSlot)
	}); err != nil {
		return fail("stain", err)
	}

	if !final {
		// Intermediate pass: the slide goes straight back to the rack and
		// waits for the next protocol.
		if err := o.move(ctx, devices.StationLiquidHandler, devices.StationRack, slideID, o.plan.HandlerSlot); err != nil {
			return fail("return to rack", err)
		}
		o.advance(ctx, logger, record, &state, Returned())
		return snapshotOutcome(outcome, state), nil
	}

	o.advance(ctx, logger, record, &state, Stained())

	for {
		if err := ctx.Err(); err != nil {
			return fail("quality loop", err)
		}

		if err := o.move(ctx, devices.StationLiquidHandler, devices.StationImaging, slideID, o.plan.HandlerSlot); err != nil {
			return fail("move to imaging", err)
		}

		ok, err := o.evaluate(ctx, slideID)
		if err != nil {
			return fail("evaluate", err)
		}
		o.advance(ctx, logger, record, &state, Evaluated(ok))

		switch state.Phase {
		case ledger.PhaseImaging:
			return o.completeAccepted(ctx, logger, record, outcome, &state, fail)

		case ledger.PhaseRejected:
			o.emit(ctx, events.SlideFailed, events.Payload{
				"slide":  slideID,
				"loops":  state.LoopCount,
				"reason": ledger.ReasonMaxWashLoopsExceeded,
			})
			logger.Info("slide rejected after exhausting wash loops",
				logging.Int("loops", state.LoopCount))
			if err := o.move(ctx, devices.StationImaging, devices.StationDropoff, slideID, o.plan.DropoffSlot); err != nil {
				return fail("move to dropoff", err)
			}
			return snapshotOutcome(outcome, state), nil

		default:
			// Quality not ok with loops remaining: wash and re-evaluate.
			if err := o.move(ctx, devices.StationImaging, devices.StationLiquidHandler, slideID, o.plan.HandlerSlot); err != nil {
				return fail("move to wash", err)
			}
			if err := o.stationCall(devices.StationLiquidHandler, func() error {
				return o.bench.Stainer.Wash(ctx, slideID, o.plan.HandlerSlot)
			}); err != nil {
				return fail("wash", err)
			}
			o.advance(ctx, logger, record, &state, Washed())
		}
	}
}

// completeAccepted finishes the pass of a slide whose staining passed
// evaluation: full scan, analysis, dropoff.
func (o *Orchestrator) completeAccepted(
	ctx context.Context,
	logger *slog.Logger,
	record *ledger.Slide,
	outcome *SlideOutcome,
	state *SlideState,
	fail func(string, error) (*SlideOutcome, error),
) (*SlideOutcome, error) {
	slideID := outcome.SlideID

	if err := o.stationCall(devices.StationImaging, func() error {
		return o.bench.Imager.Scan(ctx, slideID)
	}); err != nil {
		return fail("scan", err)
	}
	o.advance(ctx, logger, record, state, Scanned())

	if err := o.move(ctx, devices.StationImaging, devices.StationAnalyzer, slideID, 0); err != nil {
		return fail("move to analyzer", err)
	}

	report, err := o.analyze(ctx, slideID)
	if err != nil {
		return fail("analyze", err)
	}
	outcome.Report = &report
	o.attachReport(logger, record, report)
	o.advance(ctx, logger, record, state, Analyzed())

	if err := o.move(ctx, devices.StationAnalyzer, devices.StationDropoff, slideID, o.plan.DropoffSlot); err != nil {
		return fail("move to dropoff", err)
	}

	o.emit(ctx, events.SlideComplete, events.Payload{
		"slide":    slideID,
		"loops":    state.LoopCount,
		"analysis": report,
	})
	logger.Info("slide accepted",
		logging.Int("loops", state.LoopCount),
		logging.Float64("score", report.QualityScore))
	return snapshotOutcome(outcome, *state), nil
}

// finishInterrupted records the terminal state of a pass cut short by
// cancellation or a device fault, and decides whether the run continues.
func (o *Orchestrator) finishInterrupted(
	ctx context.Context,
	logger *slog.Logger,
	record *ledger.Slide,
	outcome *SlideOutcome,
	state *SlideState,
	step string,
	stepErr error,
) (*SlideOutcome, error) {
	if isCancellation(ctx, stepErr) {
		// Cancellation lands between device steps; the slide stays wherever
		// it is and the pass is recorded as aborted.
		cleanupCtx := context.WithoutCancel(ctx)
		o.advance(cleanupCtx, logger, record, state, Cancelled())
		o.emit(cleanupCtx, events.SlideAborted, events.Payload{
			"slide":  outcome.SlideID,
			"reason": ledger.ReasonRunAborted,
		})
		logger.Info("slide pass aborted by run cancellation", logging.String("step", step))
		return snapshotOutcome(outcome, *state), context.Canceled
	}

	o.advance(ctx, logger, record, state, Faulted())
	o.emit(ctx, events.SlideFailed, events.Payload{
		"slide":  outcome.SlideID,
		"loops":  state.LoopCount,
		"reason": ledger.ReasonDeviceFault,
	})

	fault, isFault := devices.AsFault(stepErr)
	attrs := []logging.Attr{
		logging.Error(stepErr),
		logging.String("step", step),
		logging.Alert("slide_failed"),
	}
	if isFault {
		attrs = append(attrs, logging.String(logging.FieldStation, string(fault.Station)))
	}
	logger.Error("slide pass failed", logging.Args(attrs...)...)

	snapshotOutcome(outcome, *state)
	if isFault && fault.Actuator() {
		// The robot is shared by every slide; once it faults the bench
		// layout is unknown and no other slide can move.
		return outcome, services.Wrap(services.ErrUnavailable, "workflow", step, "robot fault stops the run", stepErr)
	}
	return outcome, nil
}

// advance applies one transition and persists the resulting state. An
// illegal transition indicates an orchestration bug; the state is left
// untouched and the error is logged.
func (o *Orchestrator) advance(ctx context.Context, logger *slog.Logger, record *ledger.Slide, state *SlideState, tr Transition) {
	next, err := Apply(*state, tr)
	if err != nil {
		logger.Error("illegal slide transition",
			logging.Error(err),
			logging.String("transition", string(tr.Kind)))
		return
	}
	*state = next
	o.persistState(ctx, logger, record, next)
}

func (o *Orchestrator) persistState(ctx context.Context, logger *slog.Logger, record *ledger.Slide, state SlideState) {
	if o.store == nil || record == nil {
		return
	}
	record.Phase = state.Phase
	record.Quality = state.Quality
	record.LoopCount = state.LoopCount
	record.FailureReason = state.Reason
	if err := o.store.UpdateSlide(ctx, record); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("run cancelled before slide state persisted")
		} else {
			logger.Error("failed to persist slide state", logging.Error(err))
		}
	}
}

func (o *Orchestrator) beginSlideRecord(ctx context.Context, slideID int64, protocol string, final bool) *ledger.Slide {
	if o.store == nil {
		return nil
	}
	record, err := o.store.CreateSlide(ctx, o.plan.RunID, slideID, protocol, final)
	if err != nil {
		o.logger.Error("failed to create slide record",
			logging.Error(err),
			logging.Int64(logging.FieldSlideID, slideID))
		return nil
	}
	return record
}

func (o *Orchestrator) attachReport(logger *slog.Logger, record *ledger.Slide, report devices.Report) {
	if o.store == nil || record == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		logger.Error("failed to encode analysis report", logging.Error(err))
		return
	}
	record.ReportJSON = string(data)
}

func (o *Orchestrator) move(ctx context.Context, from, to devices.Station, slideID int64, slot int) error {
	release := o.guard.Acquire(devices.StationRobot)
	defer release()
	return o.bench.Mover.MoveBetween(ctx, from, to, slideID, slot)
}

func (o *Orchestrator) stationCall(station devices.Station, fn func() error) error {
	release := o.guard.Acquire(station)
	defer release()
	return fn()
}

func (o *Orchestrator) evaluate(ctx context.Context, slideID int64) (bool, error) {
	release := o.guard.Acquire(devices.StationImaging)
	defer release()
	return o.bench.Imager.Evaluate(ctx, slideID)
}

func (o *Orchestrator) analyze(ctx context.Context, slideID int64) (devices.Report, error) {
	release := o.guard.Acquire(devices.StationAnalyzer)
	defer release()
	return o.bench.Analyzer.Analyze(ctx, slideID)
}

func (o *Orchestrator) emit(ctx context.Context, name string, payload events.Payload) {
	if err := o.sink.Record(ctx, name, payload); err != nil {
		o.logger.Warn("event sink rejected event",
			logging.String(logging.FieldEventType, name),
			logging.Error(err))
	}
}

func (o *Orchestrator) buildResult(start time.Time, lastOutcome map[int64]*SlideOutcome) *RunResult {
	result := &RunResult{RunID: o.plan.RunID, Duration: time.Since(start)}
	for _, slideID := range o.plan.SlideIDs {
		outcome := lastOutcome[slideID]
		if outcome == nil {
			continue
		}
		result.Outcomes = append(result.Outcomes, *outcome)
		switch outcome.Phase {
		case ledger.PhaseAccepted:
			result.Accepted++
		case ledger.PhaseRejected:
			result.Rejected++
		case ledger.PhaseFailed:
			result.Failed++
		case ledger.PhaseAborted:
			result.Aborted++
		}
	}
	return result
}

func snapshotOutcome(outcome *SlideOutcome, state SlideState) *SlideOutcome {
	outcome.Phase = state.Phase
	outcome.Quality = state.Quality
	outcome.Loops = state.LoopCount
	outcome.Reason = state.Reason
	return outcome
}

func isCancellation(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return ctx.Err() != nil
}
