// Package sim provides a complete simulated bench: robot arm, liquid
// handler, microscope, and analysis station implementing the device facades
// with configurable step latency and seeded randomness.
//
// The rig emits the same event stream a hardware bench would, so the
// orchestrator, ledger, and every sink can be exercised end to end without
// instruments. Quality outcomes come from a pluggable Evaluator: random with
// a pass rate by default, scriptable (FailFirst) for deterministic tests.
package sim
