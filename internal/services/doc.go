// Package services defines shared utilities consumed by the workflow
// orchestrator and the bench device integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, slide IDs, protocol names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (configuration vs transient vs unavailable) uniform.
//
// Use these helpers when wiring new orchestration logic so operational
// behaviour (error handling, observability) stays consistent across the
// pipeline.
package services
