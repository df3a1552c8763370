// Package executor drives tasks to completion: each iteration reloads the
// task document, selects runnable work, runs it through the policy gate and
// the backend, and records the outcome in the store and the execution log.
//
// Selection may batch independent tasks, but their execution is always
// sequential. A task that keeps failing is retried every iteration until
// the iteration cap; there is no per-task retry limit.
package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/chibuenyim/Agentic-Toolkit/internal/backend"
	"github.com/chibuenyim/Agentic-Toolkit/internal/execlog"
	"github.com/chibuenyim/Agentic-Toolkit/internal/filelock"
	"github.com/chibuenyim/Agentic-Toolkit/internal/history"
	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
	"github.com/chibuenyim/Agentic-Toolkit/internal/rules"
)

// TracerName identifies spans emitted by the loop.
const TracerName = "github.com/chibuenyim/Agentic-Toolkit/internal/executor"

// TaskStore is the part of the task store the loop needs.
// *store.Store satisfies it.
type TaskStore interface {
	Path() string
	Load() error
	Tasks() []models.Task
	UpdateStatus(id string, status models.Status) (models.Task, error)
}

// Journal receives execution log entries. *execlog.Log satisfies it.
type Journal interface {
	Append(e execlog.Entry) (execlog.Entry, error)
}

// PolicyGate checks a file written by a task. *rules.Engine satisfies it.
type PolicyGate interface {
	ValidateFile(path string) []rules.Violation
}

// Recorder keeps per-attempt history. *history.Store satisfies it.
type Recorder interface {
	StartRun(ctx context.Context, run history.Run) error
	FinishRun(ctx context.Context, run history.Run) error
	RecordAttempt(ctx context.Context, a *history.Attempt) error
}

// Logger receives operator-facing progress.
type Logger interface {
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogTaskStart(task models.Task)
	LogTaskComplete(task models.Task, duration time.Duration)
	LogTaskFail(task models.Task, err error)
	LogSummary(summary models.RunSummary)
}

// Approver decides whether a task may run. Returning false fails the task
// with ErrApprovalDenied.
type Approver func(ctx context.Context, task models.Task) (bool, error)

// Rollback is invoked after a task fails, before the failure is recorded.
type Rollback func(ctx context.Context, task models.Task, cause error) error

// Options configure a single Run.
type Options struct {
	MaxIterations   int
	Delay           time.Duration
	RulesCheck      bool
	Parallel        bool
	ContinueOnError bool
	// MaxBatch bounds the tasks selected per iteration when Parallel is set.
	MaxBatch int
	// TaskTimeout bounds each backend call; 0 means no limit.
	TaskTimeout time.Duration
}

// DefaultOptions returns the defaults used by the auto command.
func DefaultOptions() Options {
	return Options{
		MaxIterations: 100,
		Delay:         2 * time.Second,
		RulesCheck:    true,
		MaxBatch:      3,
	}
}

// Validate checks option bounds.
func (o Options) Validate() error {
	if o.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", o.MaxIterations)
	}
	if o.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %s", o.Delay)
	}
	if o.TaskTimeout < 0 {
		return fmt.Errorf("task timeout must not be negative, got %s", o.TaskTimeout)
	}
	return nil
}

// Loop is the execution loop. Only one Run may be active per task document.
type Loop struct {
	store    TaskStore
	backend  backend.Backend
	journal  Journal
	gate     PolicyGate
	recorder Recorder
	logger   Logger
	approver Approver
	rollback Rollback
	tracer   trace.Tracer
	now      func() time.Time
	lockPath string

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// Option configures a Loop.
type Option func(*Loop)

// WithJournal sets the execution log.
func WithJournal(j Journal) Option {
	return func(l *Loop) { l.journal = j }
}

// WithPolicyGate sets the gate consulted when Options.RulesCheck is set.
func WithPolicyGate(g PolicyGate) Option {
	return func(l *Loop) { l.gate = g }
}

// WithRecorder sets the attempt history.
func WithRecorder(r Recorder) Option {
	return func(l *Loop) { l.recorder = r }
}

// WithLogger sets the progress logger.
func WithLogger(lg Logger) Option {
	return func(l *Loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithApprover requires approval before each task runs.
func WithApprover(a Approver) Option {
	return func(l *Loop) { l.approver = a }
}

// WithRollback registers a hook run after each failed task.
func WithRollback(r Rollback) Option {
	return func(l *Loop) { l.rollback = r }
}

// WithTracerProvider sets the provider spans are created from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Loop) {
		if tp != nil {
			l.tracer = tp.Tracer(TracerName)
		}
	}
}

// WithClock overrides the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithLockPath overrides the run lock file, which defaults to the task
// document path plus ".run.lock".
func WithLockPath(path string) Option {
	return func(l *Loop) { l.lockPath = path }
}

// New creates a Loop over s that executes tasks with b.
func New(s TaskStore, b backend.Backend, opts ...Option) *Loop {
	if s == nil {
		panic("task store cannot be nil")
	}
	if b == nil {
		panic("backend cannot be nil")
	}
	l := &Loop{
		store:   s,
		backend: b,
		logger:  nopLogger{},
		tracer:  otel.Tracer(TracerName),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.lockPath == "" {
		l.lockPath = s.Path() + ".run.lock"
	}
	return l
}

// IsRunning reports whether Run is active on this Loop.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Stop asks the active run to end. The task currently executing, if any,
// is returned to pending. Stop on an idle Loop does nothing.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

// Run executes iterations until no work remains, the iteration cap is
// reached, a task fails with ContinueOnError unset, or the run is stopped.
// A stop is not an error. The summary is returned even when err is non-nil.
func (l *Loop) Run(ctx context.Context, opts Options) (*models.RunSummary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// running and cancel change together so a Stop that observes a run
	// always reaches it.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.mu.Lock()
	if l.running.Load() {
		l.mu.Unlock()
		return nil, ErrLoopAlreadyRunning
	}
	l.running.Store(true)
	l.cancel = cancel
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.cancel = nil
		l.running.Store(false)
		l.mu.Unlock()
	}()

	lock := filelock.NewFileLock(l.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrLoopAlreadyRunning
	}
	defer lock.Unlock()

	r := &run{
		loop: l,
		opts: opts,
		exec: backend.WithTimeout(l.backend, opts.TaskTimeout),
		summary: &models.RunSummary{
			RunID:     uuid.New().String(),
			StartedAt: l.now(),
		},
	}
	return r.execute(ctx)
}

type nopLogger struct{}

func (nopLogger) LogInfo(string)                            {}
func (nopLogger) LogWarn(string)                            {}
func (nopLogger) LogError(string)                           {}
func (nopLogger) LogTaskStart(models.Task)                  {}
func (nopLogger) LogTaskComplete(models.Task, time.Duration) {}
func (nopLogger) LogTaskFail(models.Task, error)            {}
func (nopLogger) LogSummary(models.RunSummary)              {}
