package sim_test

import (
	"context"
	"errors"
	"testing"

	"histoflow/internal/devices"
	"histoflow/internal/devices/sim"
	"histoflow/internal/events"
)

func newTestRig(t *testing.T, opts sim.Options) (*sim.Rig, *events.MemorySink) {
	t.Helper()
	sink := events.NewMemorySink()
	opts.Sink = sink
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	return sim.NewRig(opts), sink
}

func TestArmRackPickupChoreography(t *testing.T) {
	rig, sink := newTestRig(t, sim.Options{})
	bench := rig.Bench()

	err := bench.Mover.MoveBetween(context.Background(), devices.StationRack, devices.StationLiquidHandler, 4, 2)
	if err != nil {
		t.Fatalf("MoveBetween returned error: %v", err)
	}

	want := []string{
		events.RobotMoveStart,
		events.RobotMovePickup,
		events.RobotCloseGripper,
		events.RobotMove,
		events.RobotOpenGripper,
		events.RobotSafety,
	}
	got := sink.Names()
	if len(got) != len(want) {
		t.Fatalf("event count = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	move := sink.Events()[3]
	if move.Payload["from"] != "rack" || move.Payload["to"] != "liquid_handler" {
		t.Fatalf("unexpected move payload: %v", move.Payload)
	}
	if move.Payload["slide"] != int64(4) {
		t.Fatalf("expected slide 4 in payload, got %v", move.Payload["slide"])
	}
}

func TestArmNonRackMoveSkipsPickup(t *testing.T) {
	rig, sink := newTestRig(t, sim.Options{})

	err := rig.Bench().Mover.MoveBetween(context.Background(), devices.StationImaging, devices.StationDropoff, 4, 1)
	if err != nil {
		t.Fatalf("MoveBetween returned error: %v", err)
	}
	got := sink.Names()
	if len(got) != 4 {
		t.Fatalf("expected 4 events for non-rack move, got %v", got)
	}
	if got[0] != events.RobotCloseGripper {
		t.Fatalf("expected gripper close first, got %q", got[0])
	}
}

func TestArmRejectsUnknownStation(t *testing.T) {
	rig, _ := newTestRig(t, sim.Options{})

	err := rig.Bench().Mover.MoveBetween(context.Background(), devices.Station("freezer"), devices.StationRack, 1, 1)
	if err == nil {
		t.Fatal("expected error for unknown station")
	}
	fault, ok := devices.AsFault(err)
	if !ok {
		t.Fatalf("expected device fault, got %v", err)
	}
	if fault.Station != devices.StationRobot {
		t.Fatalf("fault station = %q, want robot", fault.Station)
	}
}

func TestStainRequiresActiveProtocol(t *testing.T) {
	rig, _ := newTestRig(t, sim.Options{})
	bench := rig.Bench()
	ctx := context.Background()

	err := bench.Stainer.Stain(ctx, 1, 1)
	if err == nil {
		t.Fatal("expected stain before protocol set to fail")
	}
	fault, ok := devices.AsFault(err)
	if !ok || fault.Station != devices.StationLiquidHandler {
		t.Fatalf("expected liquid handler fault, got %v", err)
	}

	if err := bench.Stainer.SetActiveProtocol(ctx, "Receptor42"); err != nil {
		t.Fatalf("SetActiveProtocol: %v", err)
	}
	if err := bench.Stainer.Stain(ctx, 1, 1); err != nil {
		t.Fatalf("stain after protocol set: %v", err)
	}
}

func TestStainCarriesActiveProtocol(t *testing.T) {
	rig, sink := newTestRig(t, sim.Options{})
	bench := rig.Bench()
	ctx := context.Background()

	if err := bench.Stainer.SetActiveProtocol(ctx, "Receptor0815"); err != nil {
		t.Fatalf("SetActiveProtocol: %v", err)
	}
	if err := bench.Stainer.Stain(ctx, 9, 3); err != nil {
		t.Fatalf("stain: %v", err)
	}

	recorded := sink.Events()
	last := recorded[len(recorded)-1]
	if last.Name != events.StainerStain {
		t.Fatalf("expected stain event last, got %q", last.Name)
	}
	if last.Payload["protocol"] != "Receptor0815" || last.Payload["slot"] != 3 {
		t.Fatalf("unexpected stain payload: %v", last.Payload)
	}
}

func TestImagerDelegatesToEvaluator(t *testing.T) {
	rig, sink := newTestRig(t, sim.Options{Evaluator: sim.NewFailFirst(1)})
	imager := rig.Bench().Imager
	ctx := context.Background()

	ok, err := imager.Evaluate(ctx, 5)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if ok {
		t.Fatal("expected first evaluation to fail")
	}
	ok, err = imager.Evaluate(ctx, 5)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !ok {
		t.Fatal("expected second evaluation to pass")
	}

	names := sink.Names()
	want := []string{events.ImagerSafety, events.ImagerEvaluate, events.ImagerSafety, events.ImagerEvaluate}
	if len(names) != len(want) {
		t.Fatalf("unexpected events: %v", names)
	}
	first := sink.Events()[1]
	if first.Payload["ok"] != false {
		t.Fatalf("expected ok=false in first evaluate payload, got %v", first.Payload)
	}
}

func TestAnalyzerReportShape(t *testing.T) {
	rig, sink := newTestRig(t, sim.Options{Seed: 7})

	report, err := rig.Bench().Analyzer.Analyze(context.Background(), 11)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.SlideID != 11 {
		t.Fatalf("report slide = %d, want 11", report.SlideID)
	}
	panel := report.Antibody
	if panel.Coverage < 0.2 || panel.Coverage > 0.9 {
		t.Fatalf("coverage out of range: %v", panel.Coverage)
	}
	if panel.Intensity < 0.3 || panel.Intensity > 1.0 {
		t.Fatalf("intensity out of range: %v", panel.Intensity)
	}
	if report.QualityScore != panel.Score() {
		t.Fatalf("quality score %v does not match panel score %v", report.QualityScore, panel.Score())
	}
	if report.GeneratedAt.IsZero() {
		t.Fatal("expected report timestamp")
	}
	if report.Detection.Detected && report.Detection.Grade == "" {
		t.Fatal("expected grade when detection flagged")
	}

	names := sink.Names()
	if names[0] != events.AnalyzerAnalyze || names[1] != events.AnalyzerReport {
		t.Fatalf("unexpected analyzer events: %v", names)
	}
}

func TestRandomEvaluatorSeededDeterminism(t *testing.T) {
	a := sim.NewRandomEvaluator(42, 0.5)
	b := sim.NewRandomEvaluator(42, 0.5)
	ctx := context.Background()

	for i := 0; i < 32; i++ {
		gotA, _ := a.Evaluate(ctx, int64(i))
		gotB, _ := b.Evaluate(ctx, int64(i))
		if gotA != gotB {
			t.Fatalf("evaluation %d diverged between identically seeded evaluators", i)
		}
	}
}

func TestRandomEvaluatorExtremeRates(t *testing.T) {
	ctx := context.Background()
	always := sim.NewRandomEvaluator(1, 1)
	never := sim.NewRandomEvaluator(1, 0)
	for i := 0; i < 16; i++ {
		if ok, _ := always.Evaluate(ctx, 1); !ok {
			t.Fatal("pass rate 1 should always pass")
		}
		if ok, _ := never.Evaluate(ctx, 1); ok {
			t.Fatal("pass rate 0 should never pass")
		}
	}
}

func TestStepHonorsCancelledContext(t *testing.T) {
	rig, _ := newTestRig(t, sim.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rig.Bench().Mover.MoveBetween(ctx, devices.StationRack, devices.StationLiquidHandler, 1, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := devices.AsFault(err); ok {
		t.Fatal("cancellation must not be reported as a device fault")
	}
}
