// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal ledger and workflow models into
// transport-friendly DTOs that CLI rendering and external consumers can use
// without coupling to internal types.
//
// # Key Types
//
// Run: transport representation of a workflow run with protocols, slide ids,
// timestamps, and heartbeat state.
//
// Slide: one (protocol, slide) pass with phase, quality verdict, wash loop
// count, and the analysis report passed through as raw JSON.
//
// Event: one entry of the run's append-only event stream.
//
// WorkflowStatus/DaemonStatus: daemon running state, slide stats, device
// health, and the latest run and result.
//
// # Converters
//
// FromRun/FromSlide/FromEvent plus slice variants; FromStatusSummary for
// workflow.StatusSummary; FromRunResult for in-memory run results.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (ledger.RunStatus, ledger.Phase, ledger.Quality) are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds. Analysis
// reports and event payloads are passed through as json.RawMessage to avoid
// double-encoding.
package api
