package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	slideIDKey   contextKey = "slide_id"
	protocolKey  contextKey = "protocol"
	requestIDKey contextKey = "request_id"
)

// WithRunID annotates context with the workflow run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSlideID annotates context with the slide identifier.
func WithSlideID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, slideIDKey, id)
}

// SlideIDFromContext extracts the slide identifier if present.
func SlideIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(slideIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithProtocol annotates context with the active staining protocol name.
func WithProtocol(ctx context.Context, protocol string) context.Context {
	if protocol == "" {
		return ctx
	}
	return context.WithValue(ctx, protocolKey, protocol)
}

// ProtocolFromContext returns the protocol name if present.
func ProtocolFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(protocolKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
