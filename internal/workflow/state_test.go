package workflow_test

import (
	"testing"

	"histoflow/internal/ledger"
	"histoflow/internal/workflow"
)

func mustApply(t *testing.T, state workflow.SlideState, tr workflow.Transition) workflow.SlideState {
	t.Helper()
	next, err := workflow.Apply(state, tr)
	if err != nil {
		t.Fatalf("Apply(%s) in phase %s: %v", tr.Kind, state.Phase, err)
	}
	return next
}

func TestIntermediatePassReturnsToRack(t *testing.T) {
	state := workflow.NewSlideState(false, 3)
	if state.Phase != ledger.PhasePending {
		t.Fatalf("expected pending start, got %s", state.Phase)
	}

	state = mustApply(t, state, workflow.Picked())
	if state.Phase != ledger.PhaseStaining {
		t.Fatalf("expected staining after pickup, got %s", state.Phase)
	}

	state = mustApply(t, state, workflow.Returned())
	if state.Phase != ledger.PhaseReturned {
		t.Fatalf("expected returned, got %s", state.Phase)
	}
	if !state.Terminal() {
		t.Fatal("expected returned to be terminal for the pass")
	}
}

func TestFinalPassAcceptedOnFirstEvaluation(t *testing.T) {
	state := workflow.NewSlideState(true, 3)
	state = mustApply(t, state, workflow.Picked())
	state = mustApply(t, state, workflow.Stained())
	if state.Phase != ledger.PhaseEvaluating {
		t.Fatalf("expected evaluating after final stain, got %s", state.Phase)
	}

	state = mustApply(t, state, workflow.Evaluated(true))
	if state.Phase != ledger.PhaseImaging {
		t.Fatalf("expected imaging after passing evaluation, got %s", state.Phase)
	}
	if state.Quality != ledger.QualityOk {
		t.Fatalf("expected quality ok, got %s", state.Quality)
	}

	state = mustApply(t, state, workflow.Scanned())
	state = mustApply(t, state, workflow.Analyzed())
	if state.Phase != ledger.PhaseAccepted {
		t.Fatalf("expected accepted, got %s", state.Phase)
	}
	if state.LoopCount != 0 {
		t.Fatalf("expected zero wash loops, got %d", state.LoopCount)
	}
	if !state.Terminal() {
		t.Fatal("expected accepted to be terminal")
	}
}

func TestWashLoopBoundAllowsMaxPlusOneEvaluations(t *testing.T) {
	state := workflow.NewSlideState(true, 2)
	state = mustApply(t, state, workflow.Picked())
	state = mustApply(t, state, workflow.Stained())

	evaluations := 0
	for {
		evaluations++
		state = mustApply(t, state, workflow.Evaluated(false))
		if state.Phase == ledger.PhaseRejected {
			break
		}
		if state.Phase != ledger.PhaseWashing {
			t.Fatalf("expected washing after failed evaluation, got %s", state.Phase)
		}
		if state.Quality != ledger.QualityNotOk {
			t.Fatalf("expected quality not_ok before wash, got %s", state.Quality)
		}
		state = mustApply(t, state, workflow.Washed())
		if state.Quality != ledger.QualityUnknown {
			t.Fatalf("expected wash to reset quality, got %s", state.Quality)
		}
	}

	if evaluations != 3 {
		t.Fatalf("expected 3 evaluations for bound 2, got %d", evaluations)
	}
	if state.LoopCount != 2 {
		t.Fatalf("expected loop count 2, got %d", state.LoopCount)
	}
	if state.Reason != ledger.ReasonMaxWashLoopsExceeded {
		t.Fatalf("expected rejection reason %q, got %q", ledger.ReasonMaxWashLoopsExceeded, state.Reason)
	}
	if !state.Terminal() {
		t.Fatal("expected rejected to be terminal")
	}
}

func TestZeroWashBudgetRejectsOnFirstFailure(t *testing.T) {
	state := workflow.NewSlideState(true, 0)
	state = mustApply(t, state, workflow.Picked())
	state = mustApply(t, state, workflow.Stained())
	state = mustApply(t, state, workflow.Evaluated(false))
	if state.Phase != ledger.PhaseRejected {
		t.Fatalf("expected immediate rejection, got %s", state.Phase)
	}
	if state.LoopCount != 0 {
		t.Fatalf("expected no wash loops, got %d", state.LoopCount)
	}
}

func TestRecoveryAfterWashing(t *testing.T) {
	state := workflow.NewSlideState(true, 2)
	state = mustApply(t, state, workflow.Picked())
	state = mustApply(t, state, workflow.Stained())
	state = mustApply(t, state, workflow.Evaluated(false))
	state = mustApply(t, state, workflow.Washed())
	state = mustApply(t, state, workflow.Evaluated(true))
	state = mustApply(t, state, workflow.Scanned())
	state = mustApply(t, state, workflow.Analyzed())

	if state.Phase != ledger.PhaseAccepted {
		t.Fatalf("expected accepted after recovery, got %s", state.Phase)
	}
	if state.LoopCount != 1 {
		t.Fatalf("expected one wash loop, got %d", state.LoopCount)
	}
}

func TestFaultAndCancelFromAnyActivePhase(t *testing.T) {
	active := []ledger.Phase{
		ledger.PhasePending,
		ledger.PhaseStaining,
		ledger.PhaseEvaluating,
		ledger.PhaseWashing,
		ledger.PhaseImaging,
		ledger.PhaseAnalyzing,
	}
	for _, phase := range active {
		base := workflow.SlideState{Phase: phase, Quality: ledger.QualityUnknown, MaxWashLoops: 2, Final: true}

		failed, err := workflow.Apply(base, workflow.Faulted())
		if err != nil {
			t.Fatalf("Faulted from %s: %v", phase, err)
		}
		if failed.Phase != ledger.PhaseFailed || failed.Reason != ledger.ReasonDeviceFault {
			t.Fatalf("Faulted from %s: got phase %s reason %q", phase, failed.Phase, failed.Reason)
		}

		aborted, err := workflow.Apply(base, workflow.Cancelled())
		if err != nil {
			t.Fatalf("Cancelled from %s: %v", phase, err)
		}
		if aborted.Phase != ledger.PhaseAborted || aborted.Reason != ledger.ReasonRunAborted {
			t.Fatalf("Cancelled from %s: got phase %s reason %q", phase, aborted.Phase, aborted.Reason)
		}
	}
}

func TestTerminalPhasesRejectAllTransitions(t *testing.T) {
	terminal := []ledger.Phase{
		ledger.PhaseReturned,
		ledger.PhaseAccepted,
		ledger.PhaseRejected,
		ledger.PhaseFailed,
		ledger.PhaseAborted,
	}
	transitions := []workflow.Transition{
		workflow.Picked(),
		workflow.Evaluated(true),
		workflow.Washed(),
		workflow.Faulted(),
		workflow.Cancelled(),
	}
	for _, phase := range terminal {
		for _, tr := range transitions {
			state := workflow.SlideState{Phase: phase, Final: true}
			next, err := workflow.Apply(state, tr)
			if err == nil {
				t.Fatalf("expected error applying %s in terminal phase %s", tr.Kind, phase)
			}
			if next.Phase != phase {
				t.Fatalf("terminal state mutated: %s became %s", phase, next.Phase)
			}
		}
	}
}

func TestIllegalTransitionsLeaveStateUnchanged(t *testing.T) {
	cases := []struct {
		name  string
		state workflow.SlideState
		tr    workflow.Transition
	}{
		{
			name:  "evaluate before staining",
			state: workflow.SlideState{Phase: ledger.PhasePending, Final: true},
			tr:    workflow.Evaluated(true),
		},
		{
			name:  "stain on intermediate pass",
			state: workflow.SlideState{Phase: ledger.PhaseStaining, Final: false},
			tr:    workflow.Stained(),
		},
		{
			name:  "return on final pass",
			state: workflow.SlideState{Phase: ledger.PhaseStaining, Final: true},
			tr:    workflow.Returned(),
		},
		{
			name:  "scan before evaluation",
			state: workflow.SlideState{Phase: ledger.PhaseEvaluating, Final: true},
			tr:    workflow.Scanned(),
		},
		{
			name:  "wash without failed evaluation",
			state: workflow.SlideState{Phase: ledger.PhaseEvaluating, Final: true},
			tr:    workflow.Washed(),
		},
		{
			name:  "analyze before scan",
			state: workflow.SlideState{Phase: ledger.PhaseImaging, Final: true},
			tr:    workflow.Analyzed(),
		},
		{
			name:  "pickup twice",
			state: workflow.SlideState{Phase: ledger.PhaseStaining, Final: true},
			tr:    workflow.Picked(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := workflow.Apply(tc.state, tc.tr)
			if err == nil {
				t.Fatalf("expected error applying %s in phase %s", tc.tr.Kind, tc.state.Phase)
			}
			if next != tc.state {
				t.Fatalf("state changed on illegal transition: %+v became %+v", tc.state, next)
			}
		})
	}
}

func TestNegativeWashBudgetClampsToZero(t *testing.T) {
	state := workflow.NewSlideState(true, -5)
	if state.MaxWashLoops != 0 {
		t.Fatalf("expected clamp to zero, got %d", state.MaxWashLoops)
	}
}
