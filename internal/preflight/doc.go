// Package preflight provides readiness checks for the filesystem paths and
// optional services histoflow depends on.
//
// These checks run in two contexts:
//   - The daemon runner executes RunAll at startup and logs failures before
//     the workflow accepts runs.
//   - The CLI "histoflow status" command uses individual check functions
//     (CheckDirectoryAccess, CheckRedisFromConfig) to display health.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
