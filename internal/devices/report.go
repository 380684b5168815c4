package devices

import "time"

// AntibodyPanel quantifies staining quality across the slide surface.
type AntibodyPanel struct {
	Coverage   float64 `json:"antibody_coverage"`
	Intensity  float64 `json:"staining_intensity"`
	Uniformity float64 `json:"uniformity_score"`
	Background float64 `json:"background_noise"`
}

// Score folds the panel into a single staining quality figure. Coverage
// carries the most weight; background noise is informational only.
func (p AntibodyPanel) Score() float64 {
	return p.Coverage*0.4 + p.Intensity*0.3 + p.Uniformity*0.3
}

// Detection summarizes cell classification results for a slide.
type Detection struct {
	Detected     bool    `json:"detected"`
	Confidence   float64 `json:"confidence_score"`
	CellCount    int     `json:"cell_count"`
	Grade        string  `json:"malignancy_grade,omitempty"`
	TumorAreaPct float64 `json:"tumor_area_percentage"`
}

// Report is the analyzer's complete output for one slide.
type Report struct {
	SlideID      int64         `json:"slide_id"`
	Antibody     AntibodyPanel `json:"antibody_analysis"`
	Detection    Detection     `json:"detection_analysis"`
	QualityScore float64       `json:"overall_quality_score"`
	GeneratedAt  time.Time     `json:"generated_at"`
}
