package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"histoflow/internal/config"
	"histoflow/internal/ledger"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun begins a run for tests using the provided store. The run gets a
// fresh ID, the config's protocol sequence, and the given slides.
func NewRun(t testing.TB, store *ledger.Store, cfg *config.Config, slideIDs ...int64) *ledger.Run {
	t.Helper()

	run, err := store.BeginRun(context.Background(), &ledger.Run{
		ID:           uuid.NewString(),
		Status:       ledger.RunRunning,
		Protocols:    cfg.Bench.Protocols,
		SlideIDs:     slideIDs,
		MaxWashLoops: cfg.Bench.MaxWashLoops,
		PickupSlot:   cfg.Bench.PickupSlot,
		HandlerSlot:  cfg.Bench.HandlerSlot,
		DropoffSlot:  cfg.Bench.DropoffSlot,
	})
	if err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
	return run
}
