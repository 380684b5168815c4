package api

import (
	"encoding/json"
	"time"

	"histoflow/internal/devices"
	"histoflow/internal/ledger"
	"histoflow/internal/workflow"
)

// FromRun converts a ledger run to its API representation.
func FromRun(run *ledger.Run) Run {
	if run == nil {
		return Run{}
	}
	dto := Run{
		ID:           run.ID,
		Status:       string(run.Status),
		Protocols:    append([]string(nil), run.Protocols...),
		SlideIDs:     append([]int64(nil), run.SlideIDs...),
		MaxWashLoops: run.MaxWashLoops,
		ErrorMessage: run.ErrorMessage,
		CreatedAt:    FormatTime(run.CreatedAt),
		UpdatedAt:    FormatTime(run.UpdatedAt),
	}
	if run.FinishedAt != nil {
		dto.FinishedAt = FormatTime(*run.FinishedAt)
	}
	if run.LastHeartbeat != nil {
		dto.LastHeartbeat = FormatTime(*run.LastHeartbeat)
	}
	return dto
}

// FromSlide converts a slide pass record to its API representation.
func FromSlide(slide *ledger.Slide) Slide {
	if slide == nil {
		return Slide{}
	}
	dto := Slide{
		ID:            slide.ID,
		RunID:         slide.RunID,
		SlideID:       slide.SlideID,
		Protocol:      slide.Protocol,
		Final:         slide.Final,
		Phase:         string(slide.Phase),
		Quality:       string(slide.Quality),
		LoopCount:     slide.LoopCount,
		FailureReason: slide.FailureReason,
		CreatedAt:     FormatTime(slide.CreatedAt),
		UpdatedAt:     FormatTime(slide.UpdatedAt),
	}
	if raw := slide.ReportJSON; raw != "" {
		dto.Report = json.RawMessage(raw)
	}
	return dto
}

// FromSlides converts a slice of slide records into API DTOs.
func FromSlides(slides []*ledger.Slide) []Slide {
	if len(slides) == 0 {
		return nil
	}
	out := make([]Slide, 0, len(slides))
	for _, slide := range slides {
		out = append(out, FromSlide(slide))
	}
	return out
}

// FromEvent converts a persisted event to its API representation.
func FromEvent(event *ledger.Event) Event {
	if event == nil {
		return Event{}
	}
	dto := Event{
		Seq:       event.Seq,
		RunID:     event.RunID,
		Name:      event.Name,
		EmittedAt: FormatTime(event.EmittedAt),
	}
	if raw := event.PayloadJSON; raw != "" {
		dto.Payload = json.RawMessage(raw)
	}
	return dto
}

// FromEvents converts a slice of persisted events into API DTOs.
func FromEvents(events []*ledger.Event) []Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, 0, len(events))
	for _, event := range events {
		out = append(out, FromEvent(event))
	}
	return out
}

// FromRunResult converts an in-memory run result to API payload.
func FromRunResult(result *workflow.RunResult) *RunResult {
	if result == nil {
		return nil
	}
	dto := &RunResult{
		RunID:           result.RunID,
		Accepted:        result.Accepted,
		Rejected:        result.Rejected,
		Failed:          result.Failed,
		Aborted:         result.Aborted,
		DurationSeconds: result.Duration.Seconds(),
	}
	if len(result.Outcomes) > 0 {
		dto.Outcomes = make([]SlideOutcome, 0, len(result.Outcomes))
		for _, outcome := range result.Outcomes {
			converted := SlideOutcome{
				SlideID:  outcome.SlideID,
				Protocol: outcome.Protocol,
				Phase:    string(outcome.Phase),
				Quality:  string(outcome.Quality),
				Loops:    outcome.Loops,
				Reason:   outcome.Reason,
			}
			if outcome.Report != nil {
				converted.Score = outcome.Report.QualityScore
			}
			dto.Outcomes = append(dto.Outcomes, converted)
		}
	}
	return dto
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:    summary.Running,
		SlideStats: MergeSlideStats(summary.SlideStats),
		Devices:    DeviceHealthSlice(summary.Devices),
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.Run != nil {
		run := FromRun(summary.Run)
		wf.Run = &run
	}
	if summary.LastResult != nil {
		wf.LastResult = FromRunResult(summary.LastResult)
	}
	return wf
}

// MergeSlideStats produces a string-keyed representation of slide phase counts.
func MergeSlideStats(stats map[ledger.Phase]int) map[string]int {
	out := make(map[string]int, len(stats))
	for phase, count := range stats {
		out[string(phase)] = count
	}
	return out
}

// DeviceHealthSlice converts bench health records into API DTOs. Order is
// preserved: health checkers report devices in bench order.
func DeviceHealthSlice(health []devices.Health) []DeviceHealth {
	if len(health) == 0 {
		return nil
	}
	out := make([]DeviceHealth, 0, len(health))
	for _, h := range health {
		out = append(out, DeviceHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
