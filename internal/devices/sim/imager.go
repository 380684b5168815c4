package sim

import (
	"context"

	"histoflow/internal/devices"
	"histoflow/internal/events"
)

// Imager simulates the microscope. Quality decisions are delegated to the
// injected Evaluator so test rigs can script outcomes; the imager itself
// only parks the optics and records what happened.
type Imager struct {
	base

	evaluator Evaluator
}

var _ devices.Imager = (*Imager)(nil)

func (im *Imager) Evaluate(ctx context.Context, slideID int64) (bool, error) {
	if err := im.step(ctx, events.ImagerSafety, events.Payload{}); err != nil {
		return false, err
	}
	ok, err := im.evaluator.Evaluate(ctx, slideID)
	if err != nil {
		return false, devices.NewFault(devices.StationImaging, "evaluate", err)
	}
	if err := im.step(ctx, events.ImagerEvaluate, events.Payload{"slide": slideID, "ok": ok}); err != nil {
		return false, err
	}
	return ok, nil
}

func (im *Imager) Scan(ctx context.Context, slideID int64) error {
	if err := im.step(ctx, events.ImagerSafety, events.Payload{}); err != nil {
		return err
	}
	return im.step(ctx, events.ImagerScan, events.Payload{"slide": slideID})
}
