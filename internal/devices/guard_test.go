package devices_test

import (
	"sync"
	"testing"
	"time"

	"histoflow/internal/devices"
)

func TestGuardSerializesStation(t *testing.T) {
	guard := devices.NewGuard()

	var mu sync.Mutex
	var active, maxActive int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := guard.Acquire(devices.StationRobot)
			defer release()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected at most one concurrent holder, observed %d", maxActive)
	}
}

func TestGuardStationsIndependent(t *testing.T) {
	guard := devices.NewGuard()

	releaseRobot := guard.Acquire(devices.StationRobot)
	defer releaseRobot()

	done := make(chan struct{})
	go func() {
		release := guard.Acquire(devices.StationImaging)
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("imaging acquisition blocked by robot holder")
	}
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	guard := devices.NewGuard()

	release := guard.Acquire(devices.StationDropoff)
	release()
	release()

	done := make(chan struct{})
	go func() {
		second := guard.Acquire(devices.StationDropoff)
		second()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("station stayed locked after release")
	}
}
