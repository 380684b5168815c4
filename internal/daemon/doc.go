// Package daemon coordinates the long-running histoflow process and its
// integration points.
//
// It wires configuration, the ledger store, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon exposes run control and ledger query facades for the IPC layer
// and serves the HTTP API with optional bearer-token authentication and a
// metrics endpoint.
//
// Keep orchestration logic here: workflow steps live in their own packages
// while the daemon focuses on startup, shutdown, and high level coordination.
package daemon
