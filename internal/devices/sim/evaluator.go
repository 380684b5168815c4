package sim

import (
	"context"
	"math/rand/v2"
	"sync"
)

// Evaluator answers the quality question for a slide. Implementations
// decide only pass/fail; routing the slide afterwards is workflow business.
type Evaluator interface {
	Evaluate(ctx context.Context, slideID int64) (bool, error)
}

// RandomEvaluator passes slides with a fixed probability from a seeded
// generator, mirroring how staining quality behaves on a real bench.
type RandomEvaluator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	passRate float64
}

// NewRandomEvaluator constructs an evaluator with the given seed and pass
// probability. Pass rates outside [0, 1] are clamped.
func NewRandomEvaluator(seed int64, passRate float64) *RandomEvaluator {
	if passRate < 0 {
		passRate = 0
	}
	if passRate > 1 {
		passRate = 1
	}
	return &RandomEvaluator{
		rng:      rand.New(rand.NewPCG(uint64(seed), uint64(seed)+2)),
		passRate: passRate,
	}
}

func (e *RandomEvaluator) Evaluate(_ context.Context, _ int64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() < e.passRate, nil
}

// FailFirst fails the first n evaluations of each slide and passes every
// one after. Deterministic, so tests can force exact wash loop counts.
type FailFirst struct {
	mu       sync.Mutex
	failures int
	seen     map[int64]int
}

// NewFailFirst constructs an evaluator failing the first n evaluations per
// slide.
func NewFailFirst(n int) *FailFirst {
	return &FailFirst{failures: n, seen: make(map[int64]int)}
}

func (f *FailFirst) Evaluate(_ context.Context, slideID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := f.seen[slideID]
	f.seen[slideID] = count + 1
	return count >= f.failures, nil
}
