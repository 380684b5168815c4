// Package ledger persists workflow runs, slide passes, and the event stream
// in SQLite.
//
// The Store manages database connections, schema initialization, heartbeat
// tracking, and stale-run recovery. A run row captures the parameters a run
// was started with; slide rows capture each (protocol, slide) pass with its
// phase, quality, and wash loop count; event rows are the append-only record
// of everything the devices and the orchestrator reported.
//
// The database describes at most one run: BeginRun prunes everything from the
// previous run in the same transaction that inserts the new one. Schema
// changes bump the version in schema.go; users delete the database to adopt
// the new schema.
//
// Treat this package as the single source of truth for run and slide
// vocabulary; when you add new phases or reasons, update schema.sql and bump
// schemaVersion if the shape changes.
package ledger
