package redisstream_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"histoflow/internal/config"
	"histoflow/internal/events"
	"histoflow/internal/events/redisstream"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRecordAppendsEntries(t *testing.T) {
	client := newTestClient(t)
	sink := redisstream.NewFromClient(client, "histoflow:test", 0)
	ctx := context.Background()

	if err := sink.Record(ctx, events.WorkflowStart, events.Payload{"slides": 2, "protocols": 2}); err != nil {
		t.Fatalf("record workflow start: %v", err)
	}
	if err := sink.Record(ctx, events.SlideComplete, events.Payload{"slide": int64(7), "loops": 1}); err != nil {
		t.Fatalf("record slide complete: %v", err)
	}

	entries, err := client.XRange(ctx, "histoflow:test", "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 stream entries, got %d", len(entries))
	}
	if got := fmt.Sprint(entries[0].Values["event"]); got != events.WorkflowStart {
		t.Errorf("expected first entry %q, got %q", events.WorkflowStart, got)
	}
	if got := fmt.Sprint(entries[1].Values["event"]); got != events.SlideComplete {
		t.Errorf("expected second entry %q, got %q", events.SlideComplete, got)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(fmt.Sprint(entries[0].Values["payload"])), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["slides"] != float64(2) {
		t.Errorf("expected slides=2 in payload, got %v", payload["slides"])
	}
	if _, err := time.Parse(time.RFC3339Nano, fmt.Sprint(entries[0].Values["at"])); err != nil {
		t.Errorf("expected RFC3339Nano timestamp: %v", err)
	}
}

func TestRecordOmitsEmptyPayload(t *testing.T) {
	client := newTestClient(t)
	sink := redisstream.NewFromClient(client, "histoflow:test", 0)
	ctx := context.Background()

	if err := sink.Record(ctx, events.WorkflowComplete, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	entries, err := client.XRange(ctx, "histoflow:test", "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(entries))
	}
	if _, ok := entries[0].Values["payload"]; ok {
		t.Errorf("expected no payload field for empty payload, got %v", entries[0].Values["payload"])
	}
}

func TestMaxLenCapsStream(t *testing.T) {
	client := newTestClient(t)
	sink := redisstream.NewFromClient(client, "histoflow:capped", 3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := sink.Record(ctx, events.RobotMove, events.Payload{"slide": int64(i)}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	xlen, err := client.XLen(ctx, "histoflow:capped").Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	if xlen != 3 {
		t.Errorf("expected stream capped at 3 entries, got %d", xlen)
	}
}

func TestNewRequiresAddress(t *testing.T) {
	cfg := config.Default()
	if sink := redisstream.New(&cfg); sink != nil {
		t.Fatal("expected nil sink without a redis address")
	}
}

func TestDefaultStreamName(t *testing.T) {
	client := newTestClient(t)
	sink := redisstream.NewFromClient(client, "", 0)
	ctx := context.Background()

	if err := sink.Record(ctx, events.WorkflowStart, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	xlen, err := client.XLen(ctx, "histoflow:events").Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	if xlen != 1 {
		t.Errorf("expected entry on default stream, got %d", xlen)
	}
}
