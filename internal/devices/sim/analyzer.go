package sim

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"histoflow/internal/devices"
	"histoflow/internal/events"
)

var malignancyGrades = []string{"low", "medium", "high"}

// Analyzer simulates the image analysis station. Reports are synthetic but
// shaped exactly like production output so downstream consumers exercise
// the full schema.
type Analyzer struct {
	base

	mu  sync.Mutex
	rng *rand.Rand
}

var _ devices.Analyzer = (*Analyzer)(nil)

func (a *Analyzer) Analyze(ctx context.Context, slideID int64) (devices.Report, error) {
	if err := a.step(ctx, events.AnalyzerAnalyze, events.Payload{"slide": slideID}); err != nil {
		return devices.Report{}, err
	}

	report := a.generate(slideID)

	if err := a.step(ctx, events.AnalyzerReport, events.Payload{
		"slide": slideID,
		"score": report.QualityScore,
	}); err != nil {
		return devices.Report{}, err
	}
	return report, nil
}

func (a *Analyzer) generate(slideID int64) devices.Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	panel := devices.AntibodyPanel{
		Coverage:   a.uniform(0.2, 0.9),
		Intensity:  a.uniform(0.3, 1.0),
		Uniformity: a.uniform(0.4, 0.95),
		Background: a.uniform(0.05, 0.3),
	}

	detection := devices.Detection{Detected: a.rng.Float64() > 0.6}
	if detection.Detected {
		detection.Confidence = a.uniform(0.7, 0.99)
		detection.CellCount = a.rng.IntN(151)
		detection.Grade = malignancyGrades[a.rng.IntN(len(malignancyGrades))]
		detection.TumorAreaPct = a.uniform(5.0, 45.0)
	} else {
		detection.Confidence = a.uniform(0.1, 0.4)
	}

	return devices.Report{
		SlideID:      slideID,
		Antibody:     panel,
		Detection:    detection,
		QualityScore: panel.Score(),
		GeneratedAt:  time.Now().UTC(),
	}
}

func (a *Analyzer) uniform(low, high float64) float64 {
	return low + a.rng.Float64()*(high-low)
}
