// Package devices defines the bench vocabulary: stations, the facade
// interfaces the orchestrator drives (mover, liquid handler, imager,
// analyzer), the typed device fault, per-station exclusivity, and the
// analysis report shape.
//
// The package is interface-only by intent. Real and simulated rigs implement
// these facades elsewhere; workflow code depends on nothing below them, so a
// run can be rehearsed entirely in-process.
package devices
