// Package workflow sequences protocols across slides and supervises runs.
//
// The Orchestrator executes one run: every configured protocol passes over
// every slide in order, and the final protocol adds the quality loop where a
// slide is evaluated, washed, and re-evaluated up to the configured bound
// before it is accepted for analysis or rejected. Each slide's progress is a
// pure state machine (Apply); the orchestrator only sequences device calls,
// feeds transitions through it, and records the resulting states and events.
//
// The Manager wraps the orchestrator for daemon use: it admits at most one
// active run, builds the per-run bench and event fan-out, keeps the run
// heartbeat fresh, reconciles runs orphaned by a previous process, and emits
// push notifications when runs and slides reach terminal states.
//
// Add new pass steps by extending the Transition kinds and teaching Apply
// the new phase edges; this package is the authoritative home for that
// coordination logic.
package workflow
