package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Histoflow", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Histoflow:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Histoflow", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestStatusKindFromSeverity(t *testing.T) {
	cases := map[string]statusKind{
		"ok":      statusOK,
		"OK":      statusOK,
		"warn":    statusWarn,
		"warning": statusWarn,
		"error":   statusError,
		"info":    statusInfo,
		"":        statusInfo,
		"other":   statusInfo,
	}
	for severity, want := range cases {
		if got := statusKindFromSeverity(severity); got != want {
			t.Fatalf("statusKindFromSeverity(%q) = %v, want %v", severity, got, want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestBuildSlideStatsRowsOrdering(t *testing.T) {
	rows := buildSlideStatsRows(map[string]int{
		"accepted": 2,
		"staining": 1,
		"mystery":  3,
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Staining" || rows[1][0] != "Accepted" {
		t.Fatalf("expected pipeline ordering, got %v", rows)
	}
	if rows[2][0] != "Mystery" || rows[2][1] != "3" {
		t.Fatalf("expected unknown phases appended last, got %v", rows)
	}
}

func TestFormatPhaseLabel(t *testing.T) {
	if got := formatPhaseLabel("not_ok"); got != "Not Ok" {
		t.Fatalf("formatPhaseLabel(not_ok) = %q", got)
	}
	if got := formatPhaseLabel("accepted"); got != "Accepted" {
		t.Fatalf("formatPhaseLabel(accepted) = %q", got)
	}
	if got := formatPhaseLabel(""); got != "" {
		t.Fatalf("formatPhaseLabel(empty) = %q", got)
	}
}
