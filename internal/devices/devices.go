package devices

import (
	"context"
	"errors"
)

// Station identifies a physical position on the bench.
type Station string

const (
	StationRack          Station = "rack"
	StationRobot         Station = "robot"
	StationLiquidHandler Station = "liquid_handler"
	StationImaging       Station = "imaging"
	StationAnalyzer      Station = "analyzer"
	StationDropoff       Station = "dropoff"
)

// Stations returns every bench station in display order.
func Stations() []Station {
	return []Station{
		StationRack,
		StationRobot,
		StationLiquidHandler,
		StationImaging,
		StationAnalyzer,
		StationDropoff,
	}
}

// Valid reports whether the station is one of the known bench positions.
func (s Station) Valid() bool {
	switch s {
	case StationRack, StationRobot, StationLiquidHandler, StationImaging, StationAnalyzer, StationDropoff:
		return true
	}
	return false
}

// Protocol names a staining protocol understood by the liquid handler.
type Protocol string

// Mover transports a single slide between stations. The robot arm is the
// only shared actuator on the bench: a Mover fault leaves the physical
// layout unknown, so callers treat it as fatal for the whole run.
type Mover interface {
	MoveBetween(ctx context.Context, from, to Station, slideID int64, slot int) error
}

// LiquidHandler stains and washes slides on its deck. SetActiveProtocol
// must be called before Stain; the active protocol persists until replaced.
type LiquidHandler interface {
	SetActiveProtocol(ctx context.Context, protocol Protocol) error
	Stain(ctx context.Context, slideID int64, slot int) error
	Wash(ctx context.Context, slideID int64, slot int) error
}

// Imager previews and scans slides. Evaluate answers the quality question
// only; it never decides what happens to the slide next.
type Imager interface {
	Evaluate(ctx context.Context, slideID int64) (bool, error)
	Scan(ctx context.Context, slideID int64) error
}

// Analyzer turns a scanned slide into an analysis report.
type Analyzer interface {
	Analyze(ctx context.Context, slideID int64) (Report, error)
}

// Bench bundles the device facades the orchestrator drives.
type Bench struct {
	Mover    Mover
	Stainer  LiquidHandler
	Imager   Imager
	Analyzer Analyzer
}

// Validate ensures every facade is present.
func (b Bench) Validate() error {
	if b.Mover == nil {
		return errors.New("bench: mover is required")
	}
	if b.Stainer == nil {
		return errors.New("bench: liquid handler is required")
	}
	if b.Imager == nil {
		return errors.New("bench: imager is required")
	}
	if b.Analyzer == nil {
		return errors.New("bench: analyzer is required")
	}
	return nil
}

// Health summarizes the readiness of a bench device.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// HealthChecker is implemented by device rigs that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) []Health
}
