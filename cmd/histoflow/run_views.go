package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"histoflow/internal/api"
	"histoflow/internal/ledger"
)

// buildSlideStatsRows orders phase counters by pipeline position so the
// status table reads top to bottom the way a slide moves through the bench.
func buildSlideStatsRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(stats))
	rows := make([][]string, 0, len(stats))
	for _, phase := range ledger.AllPhases() {
		key := string(phase)
		count, ok := stats[key]
		if !ok {
			continue
		}
		seen[key] = true
		rows = append(rows, []string{formatPhaseLabel(key), fmt.Sprintf("%d", count)})
	}

	extras := make([]string, 0)
	for key := range stats {
		if !seen[key] {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		rows = append(rows, []string{formatPhaseLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildSlideRows(slides []api.Slide) [][]string {
	if len(slides) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(slides))
	for _, slide := range slides {
		rows = append(rows, []string{
			fmt.Sprintf("%d", slide.SlideID),
			slide.Protocol,
			yesNo(slide.Final),
			formatPhaseLabel(slide.Phase),
			formatQualityLabel(slide.Quality),
			fmt.Sprintf("%d", slide.LoopCount),
			slide.FailureReason,
			formatDisplayTime(slide.UpdatedAt),
		})
	}
	return rows
}

func formatPhaseLabel(phase string) string {
	phase = strings.TrimSpace(phase)
	if phase == "" {
		return ""
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(phase, "_", " "))
}

func formatQualityLabel(quality string) string {
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "ok":
		return "OK"
	case "not_ok":
		return "Not OK"
	case "", "unknown":
		return "-"
	default:
		return quality
	}
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func formatEventLine(evt api.Event) string {
	ts := formatEventTime(evt.EmittedAt)
	line := fmt.Sprintf("%s  %-36s", ts, evt.Name)
	if len(evt.Payload) > 0 {
		line += " " + strings.TrimSpace(string(evt.Payload))
	}
	return strings.TrimRight(line, " ")
}

func formatEventTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return strings.Repeat(" ", 19)
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	return value
}

func describeRunSummary(run api.Run) []string {
	lines := []string{
		fmt.Sprintf("Run:        %s", run.ID),
		fmt.Sprintf("Status:     %s", formatPhaseLabel(run.Status)),
		fmt.Sprintf("Protocols:  %s", strings.Join(run.Protocols, ", ")),
		fmt.Sprintf("Slides:     %s", formatSlideIDs(run.SlideIDs)),
	}
	if run.ErrorMessage != "" {
		lines = append(lines, fmt.Sprintf("Error:      %s", run.ErrorMessage))
	}
	if created := formatDisplayTime(run.CreatedAt); created != "" {
		lines = append(lines, fmt.Sprintf("Created:    %s", created))
	}
	if finished := formatDisplayTime(run.FinishedAt); finished != "" {
		lines = append(lines, fmt.Sprintf("Finished:   %s", finished))
	}
	return lines
}

func formatSlideIDs(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ", ")
}

func formatRunResultLine(result *api.RunResult) string {
	if result == nil {
		return ""
	}
	return fmt.Sprintf("Last run %s: %d accepted, %d rejected, %d failed, %d aborted (%.1fs)",
		result.RunID, result.Accepted, result.Rejected, result.Failed, result.Aborted, result.DurationSeconds)
}
