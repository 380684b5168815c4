package ledger

import (
	"strings"
	"time"
)

// RunStatus represents the lifecycle of a workflow run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunAborted   RunStatus = "aborted"
)

var allRunStatuses = []RunStatus{RunRunning, RunCompleted, RunFailed, RunAborted}

// Terminal reports whether the run has reached a final status.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunAborted
}

// ParseRunStatus converts a string into a known RunStatus.
func ParseRunStatus(value string) (RunStatus, bool) {
	normalized := RunStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allRunStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Phase represents where a slide sits inside one protocol pass.
type Phase string

const (
	PhasePending    Phase = "pending"
	PhaseStaining   Phase = "staining"
	PhaseEvaluating Phase = "evaluating"
	PhaseWashing    Phase = "washing"
	PhaseImaging    Phase = "imaging"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseReturned   Phase = "returned"
	PhaseAccepted   Phase = "accepted"
	PhaseRejected   Phase = "rejected"
	PhaseFailed     Phase = "failed"
	PhaseAborted    Phase = "aborted"
)

var allPhases = []Phase{
	PhasePending,
	PhaseStaining,
	PhaseEvaluating,
	PhaseWashing,
	PhaseImaging,
	PhaseAnalyzing,
	PhaseReturned,
	PhaseAccepted,
	PhaseRejected,
	PhaseFailed,
	PhaseAborted,
}

var terminalPhases = map[Phase]struct{}{
	PhaseReturned: {},
	PhaseAccepted: {},
	PhaseRejected: {},
	PhaseFailed:   {},
	PhaseAborted:  {},
}

// AllPhases returns the ordered list of known phases.
func AllPhases() []Phase {
	cp := make([]Phase, len(allPhases))
	copy(cp, allPhases)
	return cp
}

// ParsePhase converts a string into a known Phase.
func ParsePhase(value string) (Phase, bool) {
	normalized := Phase(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	for _, phase := range allPhases {
		if phase == normalized {
			return phase, true
		}
	}
	return "", false
}

// Terminal reports whether the phase ends the slide's pass. Returned is
// terminal for intermediate passes; Accepted, Rejected, Failed, and Aborted
// are the final-pass outcomes.
func (p Phase) Terminal() bool {
	_, ok := terminalPhases[p]
	return ok
}

// Quality is the evaluated staining quality of a slide.
type Quality string

const (
	QualityUnknown Quality = "unknown"
	QualityOk      Quality = "ok"
	QualityNotOk   Quality = "not_ok"
)

// Failure reasons recorded on slides and event payloads.
const (
	ReasonDeviceFault           = "device_fault"
	ReasonMaxWashLoopsExceeded  = "max_wash_loops_exceeded"
	ReasonRunAborted            = "run_aborted"
	ReasonHeartbeatExpired      = "run heartbeat expired"
	ReasonDaemonRestartedDetail = "daemon restarted while run was in flight"
)

// Run is a persisted workflow run. The ledger keeps exactly one run at a
// time; starting a new run prunes everything from the previous one.
type Run struct {
	ID            string
	Status        RunStatus
	Protocols     []string
	SlideIDs      []int64
	MaxWashLoops  int
	PickupSlot    int
	HandlerSlot   int
	DropoffSlot   int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	FinishedAt    *time.Time
	LastHeartbeat *time.Time
}

// Slide is one (run, protocol, slide) pass persisted in SQLite.
type Slide struct {
	ID            int64
	RunID         string
	SlideID       int64
	Protocol      string
	Final         bool
	Phase         Phase
	Quality       Quality
	LoopCount     int
	FailureReason string
	ReportJSON    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Event is one append-only entry in the run's event stream.
type Event struct {
	Seq         int64
	RunID       string
	Name        string
	PayloadJSON string
	EmittedAt   time.Time
}

// HealthSummary describes aggregated slide counts for the current run.
type HealthSummary struct {
	Total    int
	Active   int
	Returned int
	Accepted int
	Rejected int
	Failed   int
	Aborted  int
}

// DatabaseHealth captures diagnostic information about the ledger database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	TotalEvents      int
	Error            string
}
