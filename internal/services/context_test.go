package services_test

import (
	"context"
	"testing"

	"histoflow/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithSlideID(ctx, 42)
	ctx = services.WithProtocol(ctx, "he_stain")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.SlideIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected slide id: %v %v", id, ok)
	}
	if protocol, ok := services.ProtocolFromContext(ctx); !ok || protocol != "he_stain" {
		t.Fatalf("unexpected protocol: %v %v", protocol, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestProtocolBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithProtocol(ctx, "")
	if _, ok := services.ProtocolFromContext(ctx); ok {
		t.Fatal("expected no protocol value")
	}
}
