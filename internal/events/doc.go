// Package events defines the workflow event stream: the Sink contract, the
// canonical event names, and the built-in sinks (fanout, memory, log mirror,
// console tracer).
//
// The event stream is the system's primary observable output. Every device
// action and workflow milestone is recorded through a Sink in emission order;
// consumers range from the run ledger to Redis streams to the demo tracer.
// Sinks must tolerate failure in isolation: the fanout logs and swallows
// per-sink errors so a broken consumer can never stall the bench.
package events
