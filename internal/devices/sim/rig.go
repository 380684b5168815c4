package sim

import (
	"context"
	"math/rand/v2"
	"time"

	"histoflow/internal/config"
	"histoflow/internal/devices"
	"histoflow/internal/events"
)

// Options configures a simulated bench.
type Options struct {
	// Seed drives every random draw in the rig. Zero derives a seed from
	// the current time.
	Seed int64
	// PassRate is the probability a quality evaluation passes, used when
	// no Evaluator is supplied.
	PassRate float64
	// StepDelay is the simulated duration of each device step.
	StepDelay time.Duration
	// Sink receives every device event. Nil disables device events.
	Sink events.Sink
	// Evaluator overrides the default random evaluator.
	Evaluator Evaluator
}

// Rig is a complete simulated bench implementing every device facade.
type Rig struct {
	arm      *Arm
	stainer  *Stainer
	imager   *Imager
	analyzer *Analyzer
}

// NewRig constructs a simulated bench from options.
func NewRig(opts Options) *Rig {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	b := base{sink: opts.Sink, delay: opts.StepDelay}

	evaluator := opts.Evaluator
	if evaluator == nil {
		evaluator = NewRandomEvaluator(seed, opts.PassRate)
	}

	return &Rig{
		arm:      &Arm{base: b},
		stainer:  &Stainer{base: b},
		imager:   &Imager{base: b, evaluator: evaluator},
		analyzer: &Analyzer{base: b, rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)+1))},
	}
}

// NewRigFromConfig builds a rig from the simulation config section.
func NewRigFromConfig(cfg *config.Config, sink events.Sink) *Rig {
	opts := Options{Sink: sink}
	if cfg != nil {
		opts.Seed = cfg.Simulation.Seed
		opts.PassRate = cfg.Simulation.PassRate
		opts.StepDelay = time.Duration(cfg.Simulation.StepDelayMS) * time.Millisecond
	}
	return NewRig(opts)
}

// Bench exposes the rig through the facade interfaces.
func (r *Rig) Bench() devices.Bench {
	return devices.Bench{
		Mover:    r.arm,
		Stainer:  r.stainer,
		Imager:   r.imager,
		Analyzer: r.analyzer,
	}
}

// HealthCheck reports per-device readiness. The simulated bench is always
// ready; the shape exists so daemon status renders uniformly against real
// hardware rigs.
func (r *Rig) HealthCheck(context.Context) []devices.Health {
	return []devices.Health{
		devices.Healthy("robot"),
		devices.Healthy("liquid_handler"),
		devices.Healthy("imaging"),
		devices.Healthy("analyzer"),
	}
}

// base carries the event sink and step latency shared by all sim devices.
type base struct {
	sink  events.Sink
	delay time.Duration
}

// step records one device event and burns the configured step latency.
// Context cancellation interrupts the wait and surfaces as the context's
// own error, never as a device fault.
func (b base) step(ctx context.Context, name string, payload events.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.sink != nil {
		_ = b.sink.Record(ctx, name, payload)
	}
	if b.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(b.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
