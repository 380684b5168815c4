package workflow

import (
	"fmt"

	"histoflow/internal/ledger"
)

// TransitionKind names the observations that drive a slide pass forward.
type TransitionKind string

const (
	TransitionPicked    TransitionKind = "picked"
	TransitionStained   TransitionKind = "stained"
	TransitionReturned  TransitionKind = "returned"
	TransitionEvaluated TransitionKind = "evaluated"
	TransitionWashed    TransitionKind = "washed"
	TransitionScanned   TransitionKind = "scanned"
	TransitionAnalyzed  TransitionKind = "analyzed"
	TransitionFaulted   TransitionKind = "faulted"
	TransitionCancelled TransitionKind = "cancelled"
)

// Transition is one observed step outcome applied to a slide state.
type Transition struct {
	Kind TransitionKind
	// Ok carries the quality verdict for Evaluated transitions.
	Ok bool
}

func Picked() Transition { return Transition{Kind: TransitionPicked} }

func Stained() Transition { return Transition{Kind: TransitionStained} }

func Returned() Transition { return Transition{Kind: TransitionReturned} }

func Evaluated(ok bool) Transition { return Transition{Kind: TransitionEvaluated, Ok: ok} }

func Washed() Transition { return Transition{Kind: TransitionWashed} }

func Scanned() Transition { return Transition{Kind: TransitionScanned} }

func Analyzed() Transition { return Transition{Kind: TransitionAnalyzed} }

func Faulted() Transition { return Transition{Kind: TransitionFaulted} }

func Cancelled() Transition { return Transition{Kind: TransitionCancelled} }

// SlideState is the full state of one slide pass. Apply is the only way it
// advances; the struct is plain data so callers can snapshot and persist it.
type SlideState struct {
	Phase        ledger.Phase
	Quality      ledger.Quality
	LoopCount    int
	MaxWashLoops int
	Final        bool
	Reason       string
}

// NewSlideState returns the initial state for one pass. Final passes run the
// quality loop bounded by maxWashLoops; intermediate passes return to the
// rack after staining.
func NewSlideState(final bool, maxWashLoops int) SlideState {
	if maxWashLoops < 0 {
		maxWashLoops = 0
	}
	return SlideState{
		Phase:        ledger.PhasePending,
		Quality:      ledger.QualityUnknown,
		MaxWashLoops: maxWashLoops,
		Final:        final,
	}
}

// Terminal reports whether the pass has reached a final phase.
func (s SlideState) Terminal() bool {
	return s.Phase.Terminal()
}

// Apply computes the successor state for one transition. It performs no I/O
// and never mutates its input; illegal transitions return the unchanged state
// with an error.
//
// A failed evaluation at the wash bound rejects the slide, so a pass sees at
// most MaxWashLoops+1 evaluations.
func Apply(state SlideState, tr Transition) (SlideState, error) {
	if state.Phase.Terminal() {
		return state, fmt.Errorf("slide pass already terminal in phase %s", state.Phase)
	}

	switch tr.Kind {
	case TransitionFaulted:
		state.Phase = ledger.PhaseFailed
		state.Reason = ledger.ReasonDeviceFault
		return state, nil

	case TransitionCancelled:
		state.Phase = ledger.PhaseAborted
		state.Reason = ledger.ReasonRunAborted
		return state, nil

	case TransitionPicked:
		if state.Phase != ledger.PhasePending {
			return state, illegalTransition(tr, state)
		}
		state.Phase = ledger.PhaseStaining
		return state, nil

	case TransitionStained:
		if state.Phase != ledger.PhaseStaining {
			return state, illegalTransition(tr, state)
		}
		if !state.Final {
			return state, fmt.Errorf("intermediate passes do not evaluate quality")
		}
		state.Phase = ledger.PhaseEvaluating
		return state, nil

	case TransitionReturned:
		if state.Phase != ledger.PhaseStaining {
			return state, illegalTransition(tr, state)
		}
		if state.Final {
			return state, fmt.Errorf("final passes do not return to the rack")
		}
		state.Phase = ledger.PhaseReturned
		return state, nil

	case TransitionEvaluated:
		if state.Phase != ledger.PhaseEvaluating {
			return state, illegalTransition(tr, state)
		}
		if tr.Ok {
			state.Quality = ledger.QualityOk
			state.Phase = ledger.PhaseImaging
			return state, nil
		}
		state.Quality = ledger.QualityNotOk
		if state.LoopCount >= state.MaxWashLoops {
			state.Phase = ledger.PhaseRejected
			state.Reason = ledger.ReasonMaxWashLoopsExceeded
			return state, nil
		}
		state.Phase = ledger.PhaseWashing
		return state, nil

	case TransitionWashed:
		if state.Phase != ledger.PhaseWashing {
			return state, illegalTransition(tr, state)
		}
		state.LoopCount++
		state.Quality = ledger.QualityUnknown
		state.Phase = ledger.PhaseEvaluating
		return state, nil

	case TransitionScanned:
		if state.Phase != ledger.PhaseImaging {
			return state, illegalTransition(tr, state)
		}
		state.Phase = ledger.PhaseAnalyzing
		return state, nil

	case TransitionAnalyzed:
		if state.Phase != ledger.PhaseAnalyzing {
			return state, illegalTransition(tr, state)
		}
		state.Phase = ledger.PhaseAccepted
		return state, nil

	default:
		return state, fmt.Errorf("unknown transition %q", tr.Kind)
	}
}

func illegalTransition(tr Transition, state SlideState) error {
	return fmt.Errorf("cannot apply %s in phase %s", tr.Kind, state.Phase)
}
