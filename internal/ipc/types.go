package ipc

import "histoflow/internal/api"

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Run mirrors the HTTP API run DTO for internal IPC callers.
type Run = api.Run

// Slide mirrors the HTTP API slide DTO for internal IPC callers.
type Slide = api.Slide

// Event mirrors the HTTP API event DTO for internal IPC callers.
type Event = api.Event

// RunResult mirrors the HTTP API run result DTO for internal IPC callers.
type RunResult = api.RunResult

// DeviceHealth describes readiness of a bench device.
type DeviceHealth = api.DeviceHealth

// StatusLine is a labelled severity line for status UIs.
type StatusLine = api.StatusLine

// StatusResponse represents combined daemon/workflow status information.
// SystemChecks and PathChecks are filled client-side by daemonctl when
// building status snapshots; the server leaves them empty.
type StatusResponse struct {
	Running      bool           `json:"running"`
	SlideStats   map[string]int `json:"slide_stats"`
	LastError    string         `json:"last_error"`
	Run          *Run           `json:"run"`
	LastResult   *RunResult     `json:"last_result"`
	Devices      []DeviceHealth `json:"devices"`
	LockPath     string         `json:"lock_path"`
	LedgerDBPath string         `json:"ledger_db_path"`
	PID          int            `json:"pid"`
	SystemChecks []StatusLine   `json:"system_checks,omitempty"`
	PathChecks   []StatusLine   `json:"path_checks,omitempty"`
}

// RunStartRequest launches a new processing run over the given slides. The
// optional fields override the configured plan for this run only.
type RunStartRequest struct {
	SlideIDs     []int64  `json:"slide_ids"`
	Protocols    []string `json:"protocols"`
	MaxWashLoops *int     `json:"max_wash_loops,omitempty"`
	PickupSlot   *int     `json:"pickup_slot,omitempty"`
	HandlerSlot  *int     `json:"handler_slot,omitempty"`
	DropoffSlot  *int     `json:"dropoff_slot,omitempty"`
}

// RunStartResponse contains the created run.
type RunStartResponse struct {
	Run     Run    `json:"run"`
	Message string `json:"message"`
}

// RunAbortRequest aborts the active run.
type RunAbortRequest struct{}

// RunAbortResponse reports abort outcome.
type RunAbortResponse struct {
	Aborted bool   `json:"aborted"`
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

// RunDescribeRequest fetches a single run by id. Empty id means the
// most recent run.
type RunDescribeRequest struct {
	RunID string `json:"run_id"`
}

// RunDescribeResponse contains a run and its slide passes.
type RunDescribeResponse struct {
	Run    Run     `json:"run"`
	Slides []Slide `json:"slides"`
}

// SlideListRequest filters slide listing by phase.
type SlideListRequest struct {
	RunID  string   `json:"run_id"`
	Phases []string `json:"phases"`
}

// SlideListResponse contains slide passes.
type SlideListResponse struct {
	Slides []Slide `json:"slides"`
}

// EventTailRequest fetches ledger events after a sequence cursor. A
// negative cursor tails the newest events.
type EventTailRequest struct {
	RunID string `json:"run_id"`
	After int64  `json:"after"`
	Limit int    `json:"limit"`
}

// EventTailResponse returns events and the cursor for the next read.
type EventTailResponse struct {
	Events []Event `json:"events"`
	Next   int64   `json:"next"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// DatabaseHealthRequest fetches detailed ledger database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports ledger database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	TablesPresent    []string `json:"tables_present"`
	MissingTables    []string `json:"missing_tables"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalEvents      int      `json:"total_events"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
