package daemon_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"histoflow/internal/daemon"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
	"histoflow/internal/testsupport"
	"histoflow/internal/workflow"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	logPath := filepath.Join(cfg.Paths.LogDir, "daemon-test.log")
	d, err := daemon.New(cfg, store, logger, mgr, logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID <= 0 {
		t.Fatalf("expected pid, got %d", status.PID)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPassRate(1))
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	logPath := filepath.Join(cfg.Paths.LogDir, "daemon-test.log")
	d, err := daemon.New(cfg, store, logger, mgr, logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := d.StartRun(ctx, []int64{5}, nil); err == nil {
		t.Fatal("expected StartRun to fail before daemon start")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	run, err := d.StartRun(ctx, []int64{5}, nil)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected run id")
	}
	if _, err := d.StartRun(ctx, []int64{6}, nil); err == nil {
		t.Fatal("expected concurrent StartRun to fail")
	}

	mgr.Wait()

	described, slides, err := d.DescribeRun(ctx, "")
	if err != nil {
		t.Fatalf("DescribeRun failed: %v", err)
	}
	if described == nil || described.Status != "completed" {
		t.Fatalf("unexpected run: %#v", described)
	}
	if len(slides) != 2 {
		t.Fatalf("expected 2 slide passes, got %d", len(slides))
	}

	accepted, err := d.Slides(ctx, run.ID, ledger.PhaseAccepted)
	if err != nil {
		t.Fatalf("Slides failed: %v", err)
	}
	if len(accepted) != 1 {
		t.Fatalf("expected 1 accepted slide, got %d", len(accepted))
	}

	events, next, err := d.Events(ctx, "", 0, 100)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) == 0 || next == 0 {
		t.Fatalf("expected events with cursor, got %d events cursor %d", len(events), next)
	}

	health, err := d.DatabaseHealth(ctx)
	if err != nil {
		t.Fatalf("DatabaseHealth failed: %v", err)
	}
	if !health.IntegrityCheck || health.TotalEvents == 0 {
		t.Fatalf("unexpected health: %#v", health)
	}

	sent, message, err := d.TestNotification(ctx)
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if sent || message != "ntfy topic not configured" {
		t.Fatalf("unexpected notification result: %v %q", sent, message)
	}

	d.Stop()
}
