package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chibuenyim/Agentic-Toolkit/internal/resolver"
	"github.com/chibuenyim/Agentic-Toolkit/internal/rules"
	"github.com/chibuenyim/Agentic-Toolkit/internal/store"
)

var (
	// ErrLoopAlreadyRunning is returned by Run while another run holds the
	// task document, in this process or another one.
	ErrLoopAlreadyRunning = errors.New("execution loop already running")
	// ErrApprovalDenied indicates the approver refused a task.
	ErrApprovalDenied = errors.New("task execution denied by approver")
	// ErrStopped indicates a task was interrupted by Stop or cancellation.
	ErrStopped = errors.New("execution stopped")
)

// PolicyBlockedError reports a blocking rule violation in one of a task's
// output files. The backend was not invoked.
type PolicyBlockedError struct {
	TaskID    string
	Violation rules.Violation
}

func (e *PolicyBlockedError) Error() string {
	return fmt.Sprintf("task %s blocked by rule %s in %s: %s",
		e.TaskID, e.Violation.RuleID, e.Violation.File, e.Violation.Description)
}

// BackendFailureError reports a failed backend execution.
type BackendFailureError struct {
	TaskID string
	Err    error
}

func (e *BackendFailureError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Err)
}

func (e *BackendFailureError) Unwrap() error { return e.Err }

// NoRunnableError explains why no pending task can run.
type NoRunnableError struct {
	Blockers []resolver.Blocker
}

func (e *NoRunnableError) Error() string {
	if len(e.Blockers) == 0 {
		return "no pending tasks"
	}
	parts := make([]string, 0, len(e.Blockers))
	for _, b := range e.Blockers {
		parts = append(parts, fmt.Sprintf("%s (%s: %s)", b.TaskID, b.Kind, strings.Join(b.On, ", ")))
	}
	return "no runnable task: " + strings.Join(parts, "; ")
}

// FailureKind groups errors by who has to act on them.
type FailureKind string

const (
	// KindDependency: the task could not run yet.
	KindDependency FailureKind = "dependency"
	// KindTask: the task ran, or was about to, and failed.
	KindTask FailureKind = "task"
	// KindStore: task state could not be loaded or persisted.
	KindStore FailureKind = "store"
	// KindSystem: anything else, including stops.
	KindSystem FailureKind = "system"
)

// Classify maps err onto a FailureKind.
func Classify(err error) FailureKind {
	var (
		policyErr  *PolicyBlockedError
		backendErr *BackendFailureError
		noRunErr   *NoRunnableError
		loadErr    *store.LoadError
		persistErr *store.PersistError
	)
	switch {
	case errors.As(err, &noRunErr):
		return KindDependency
	case errors.As(err, &policyErr), errors.As(err, &backendErr), errors.Is(err, ErrApprovalDenied):
		return KindTask
	case errors.As(err, &loadErr), errors.As(err, &persistErr),
		errors.Is(err, store.ErrTaskNotFound), errors.Is(err, store.ErrInvalidTransition):
		return KindStore
	default:
		return KindSystem
	}
}

// Describe renders err for an operator, saying whether the task could not
// run yet, ran and failed, or whether state could not be loaded or saved.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	switch Classify(err) {
	case KindDependency:
		return "task could not run yet: " + err.Error()
	case KindTask:
		return "task ran and failed: " + err.Error()
	case KindStore:
		return "could not load or persist task state: " + err.Error()
	default:
		return err.Error()
	}
}
