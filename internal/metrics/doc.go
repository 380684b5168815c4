// Package metrics projects the workflow event stream into Prometheus
// instruments. The collector attaches to a run as one more event sink, so
// the orchestrator stays unaware of metrics entirely.
package metrics
