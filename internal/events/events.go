package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"histoflow/internal/logging"
)

// Payload carries the structured fields attached to a workflow event.
type Payload map[string]any

// Sink receives every workflow and device event, in emission order.
type Sink interface {
	Record(ctx context.Context, name string, payload Payload) error
}

// Fanout delivers each event to every registered sink. Individual sink
// failures are logged and swallowed; the event stream must never push
// errors back into the control path.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanout constructs a fanout over the given sinks. Nil sinks are skipped.
func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	kept := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	return &Fanout{sinks: kept, logger: logging.NewComponentLogger(logger, "events")}
}

func (f *Fanout) Record(ctx context.Context, name string, payload Payload) error {
	for _, sink := range f.sinks {
		if err := sink.Record(ctx, name, payload); err != nil {
			f.logger.Warn("event sink failed",
				logging.String(logging.FieldEventType, name),
				logging.Error(err))
		}
	}
	return nil
}

// Event is one recorded entry in a MemorySink.
type Event struct {
	Name    string
	Payload Payload
	At      time.Time
}

// MemorySink retains events in order for later inspection. Used by tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Record(_ context.Context, name string, payload Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(Payload, len(payload))
	for k, v := range payload {
		cp[k] = v
	}
	m.events = append(m.events, Event{Name: name, Payload: cp, At: time.Now()})
	return nil
}

// Events returns a copy of everything recorded so far, in order.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Names returns the recorded event names, in order.
func (m *MemorySink) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.events))
	for i, event := range m.events {
		names[i] = event.Name
	}
	return names
}

// Reset discards all recorded events.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// LogSink mirrors the event stream into the structured log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(logger, "events")}
}

func (l *LogSink) Record(_ context.Context, name string, payload Payload) error {
	attrs := make([]logging.Attr, 0, len(payload)+1)
	attrs = append(attrs, logging.String(logging.FieldEventType, name))
	for key, value := range payload {
		attrs = append(attrs, logging.Any(key, value))
	}
	l.logger.Info("event", logging.Args(attrs...)...)
	return nil
}
