// Package redisstream mirrors the workflow event stream into a Redis
// stream. Each event becomes one XADD entry, so external consumers (LIMS
// bridges, dashboards) can tail a run without touching the daemon API.
// The mirror is append-only and capped with MAXLEN; it is never read back
// by the daemon itself.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"histoflow/internal/config"
	"histoflow/internal/events"
)

// Sink appends every recorded event to a single Redis stream.
type Sink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// New builds a sink from the events config section. Returns nil when no
// Redis address is configured; callers gate on cfg.Events.RedisAddr.
func New(cfg *config.Config) *Sink {
	if cfg == nil || cfg.Events.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Events.RedisAddr})
	return NewFromClient(client, cfg.Events.RedisStream, cfg.Events.RedisMaxLen)
}

// NewFromClient wires a sink onto an existing client. Tests use this with
// a miniredis-backed client.
func NewFromClient(client *redis.Client, stream string, maxLen int64) *Sink {
	if stream == "" {
		stream = "histoflow:events"
	}
	return &Sink{client: client, stream: stream, maxLen: maxLen}
}

// Ping verifies connectivity. The daemon calls this once at startup so a
// misconfigured mirror is logged before the first run, not during it.
func (s *Sink) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redisstream: ping: %w", err)
	}
	return nil
}

// Record appends one entry carrying the event name, the payload as JSON
// and the emission time. Payload-less events omit the payload field.
func (s *Sink) Record(ctx context.Context, name string, payload events.Payload) error {
	values := map[string]interface{}{
		"event": name,
		"at":    time.Now().UTC().Format(time.RFC3339Nano),
	}
	if len(payload) > 0 {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("redisstream: encode payload: %w", err)
		}
		values["payload"] = string(encoded)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redisstream: append event: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Sink) Close() error {
	return s.client.Close()
}
