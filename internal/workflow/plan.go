package workflow

import (
	"fmt"
	"strings"

	"histoflow/internal/config"
	"histoflow/internal/services"
)

// RunPlan describes one run: which slides pass through which protocols, the
// wash retry bound, and the bench slots involved. A plan with no slides is a
// valid degenerate run; the protocol sequence still executes and emits its
// lifecycle events.
type RunPlan struct {
	RunID        string
	Protocols    []string
	SlideIDs     []int64
	MaxWashLoops int
	PickupSlot   int
	HandlerSlot  int
	DropoffSlot  int
}

// PlanFromConfig builds a plan for the given slides using the configured
// bench parameters. The run ID is assigned by the manager at start.
func PlanFromConfig(cfg *config.Config, slideIDs []int64) RunPlan {
	plan := RunPlan{
		SlideIDs:     append([]int64(nil), slideIDs...),
		MaxWashLoops: cfg.Bench.MaxWashLoops,
		PickupSlot:   cfg.Bench.PickupSlot,
		HandlerSlot:  cfg.Bench.HandlerSlot,
		DropoffSlot:  cfg.Bench.DropoffSlot,
	}
	plan.Protocols = append(plan.Protocols, cfg.Bench.Protocols...)
	return plan
}

// Validate checks the plan for internal consistency. Validation runs before
// any device is touched; a rejected plan never becomes a run.
func (p RunPlan) Validate() error {
	if len(p.Protocols) == 0 {
		return planError("at least one protocol is required")
	}
	seenProtocols := make(map[string]struct{}, len(p.Protocols))
	for _, protocol := range p.Protocols {
		name := strings.TrimSpace(protocol)
		if name == "" {
			return planError("protocol names must not be blank")
		}
		if _, dup := seenProtocols[name]; dup {
			return planError(fmt.Sprintf("duplicate protocol %q", name))
		}
		seenProtocols[name] = struct{}{}
	}

	seenSlides := make(map[int64]struct{}, len(p.SlideIDs))
	for _, id := range p.SlideIDs {
		if id <= 0 {
			return planError(fmt.Sprintf("slide id %d must be positive", id))
		}
		if _, dup := seenSlides[id]; dup {
			return planError(fmt.Sprintf("duplicate slide id %d", id))
		}
		seenSlides[id] = struct{}{}
	}

	if p.MaxWashLoops < 0 {
		return planError("max wash loops must not be negative")
	}
	if p.PickupSlot < 1 || p.HandlerSlot < 1 || p.DropoffSlot < 1 {
		return planError("bench slots are 1-based")
	}
	return nil
}

// FinalProtocol returns the last protocol of the sequence, the only one whose
// passes run the quality loop.
func (p RunPlan) FinalProtocol() string {
	if len(p.Protocols) == 0 {
		return ""
	}
	return p.Protocols[len(p.Protocols)-1]
}

func planError(msg string) error {
	return services.Wrap(services.ErrValidation, "workflow", "validate plan", msg, nil)
}
