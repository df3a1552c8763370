package models

import "time"

// Reasons an execution run ended.
const (
	StopNoWork        = "no runnable tasks"
	StopMaxIterations = "max iterations reached"
	StopRequested     = "stopped"
	StopTaskFailed    = "task failed"
	StopStoreError    = "store error"
)

// RunSummary is the outcome of one execution loop run.
type RunSummary struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Iterations int           `json:"iterations"`
	Attempts   int           `json:"attempts"`
	// Completed and Failed hold task ids in attempt order. A task retried
	// in several iterations appears once per failed attempt.
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
	// Recovered lists tasks reset from a previous run's in_progress state.
	Recovered []string `json:"recovered,omitempty"`
	// Blocked counts pending tasks left unrunnable when the run ended.
	Blocked    int    `json:"blocked"`
	StopReason string `json:"stopReason"`
}

// Succeeded reports whether the run ended without a task failure.
func (s RunSummary) Succeeded() bool {
	return len(s.Failed) == 0
}
