package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Run describes a workflow run in a transport-friendly format.
type Run struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Protocols     []string `json:"protocols"`
	SlideIDs      []int64  `json:"slideIds"`
	MaxWashLoops  int      `json:"maxWashLoops"`
	ErrorMessage  string   `json:"errorMessage,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt,omitempty"`
	FinishedAt    string   `json:"finishedAt,omitempty"`
	LastHeartbeat string   `json:"lastHeartbeat,omitempty"`
}

// Slide describes one (protocol, slide) pass of a run.
type Slide struct {
	ID            int64           `json:"id"`
	RunID         string          `json:"runId"`
	SlideID       int64           `json:"slideId"`
	Protocol      string          `json:"protocol"`
	Final         bool            `json:"final"`
	Phase         string          `json:"phase"`
	Quality       string          `json:"quality"`
	LoopCount     int             `json:"loopCount"`
	FailureReason string          `json:"failureReason,omitempty"`
	Report        json.RawMessage `json:"report,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
	UpdatedAt     string          `json:"updatedAt,omitempty"`
}

// Event is one entry from the run's append-only event stream.
type Event struct {
	Seq       int64           `json:"seq"`
	RunID     string          `json:"runId"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	EmittedAt string          `json:"emittedAt,omitempty"`
}

// DeviceHealth mirrors readiness reporting for bench devices.
type DeviceHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// SlideOutcome summarizes a slide's last pass in a finished run.
type SlideOutcome struct {
	SlideID  int64   `json:"slideId"`
	Protocol string  `json:"protocol"`
	Phase    string  `json:"phase"`
	Quality  string  `json:"quality"`
	Loops    int     `json:"loops"`
	Reason   string  `json:"reason,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// RunResult aggregates final slide dispositions for a finished run.
type RunResult struct {
	RunID           string         `json:"runId"`
	Accepted        int            `json:"accepted"`
	Rejected        int            `json:"rejected"`
	Failed          int            `json:"failed"`
	Aborted         int            `json:"aborted"`
	DurationSeconds float64        `json:"durationSeconds"`
	Outcomes        []SlideOutcome `json:"outcomes,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	LastError  string         `json:"lastError,omitempty"`
	Run        *Run           `json:"run,omitempty"`
	LastResult *RunResult     `json:"lastResult,omitempty"`
	SlideStats map[string]int `json:"slideStats"`
	Devices    []DeviceHealth `json:"devices"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// RunResponse wraps a single run.
type RunResponse struct {
	Run Run `json:"run"`
}

// StartRunRequest is the payload for launching a run over HTTP. The pointer
// fields override the configured plan for this run only.
type StartRunRequest struct {
	SlideIDs     []int64  `json:"slideIds"`
	Protocols    []string `json:"protocols,omitempty"`
	MaxWashLoops *int     `json:"maxWashLoops,omitempty"`
	PickupSlot   *int     `json:"pickupSlot,omitempty"`
	HandlerSlot  *int     `json:"handlerSlot,omitempty"`
	DropoffSlot  *int     `json:"dropoffSlot,omitempty"`
}

// AbortRunResponse reports the outcome of an abort request.
type AbortRunResponse struct {
	Aborted bool   `json:"aborted"`
	RunID   string `json:"runId"`
}

// SlideListResponse wraps slide passes for API responses.
type SlideListResponse struct {
	Slides []Slide `json:"slides"`
}

// EventListResponse wraps events together with the next read cursor.
type EventListResponse struct {
	Events []Event `json:"events"`
	Next   int64   `json:"next"`
}

// StatusLine is a labelled severity line for status UIs.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}
