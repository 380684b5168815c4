package ledger

import (
	"context"
	"fmt"

	"histoflow/internal/events"
)

// RunSink records workflow events into the store under a fixed run.
type RunSink struct {
	store *Store
	runID string
}

var _ events.Sink = (*RunSink)(nil)

// NewRunSink returns a sink that appends every event to runID's stream.
func NewRunSink(store *Store, runID string) *RunSink {
	return &RunSink{store: store, runID: runID}
}

// Record implements events.Sink.
func (s *RunSink) Record(ctx context.Context, name string, payload events.Payload) error {
	if s == nil || s.store == nil {
		return nil
	}
	if _, err := s.store.AppendEvent(ctx, s.runID, name, payload); err != nil {
		return fmt.Errorf("append event %s: %w", name, err)
	}
	return nil
}
