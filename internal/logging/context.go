package logging

import (
	"context"
	"log/slog"

	"histoflow/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for workflow run identifiers.
	FieldRunID = "run_id"
	// FieldSlideID is the standardized structured logging key for slide identifiers.
	FieldSlideID = "slide_id"
	// FieldProtocol is the standardized structured logging key for staining protocol names.
	FieldProtocol = "protocol"
	// FieldStation is the standardized structured logging key for bench station names.
	FieldStation = "station"
	// FieldEventType is the standardized structured logging key for machine-readable event categories.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator-facing remediation hints.
	FieldErrorHint = "error_hint"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.SlideIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldSlideID, id))
	}
	if protocol, ok := services.ProtocolFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldProtocol, protocol))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
