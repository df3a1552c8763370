package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chibuenyim/Agentic-Toolkit/internal/backend"
	"github.com/chibuenyim/Agentic-Toolkit/internal/execlog"
	"github.com/chibuenyim/Agentic-Toolkit/internal/history"
	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
	"github.com/chibuenyim/Agentic-Toolkit/internal/resolver"
	"github.com/chibuenyim/Agentic-Toolkit/internal/rules"
)

// maxResultLen bounds the backend output copied into a log entry.
const maxResultLen = 200

// run holds the state of one Loop.Run call.
type run struct {
	loop      *Loop
	opts      Options
	exec      backend.Backend
	summary   *models.RunSummary
	iteration int
}

func (r *run) execute(ctx context.Context) (*models.RunSummary, error) {
	l := r.loop
	ctx, span := l.tracer.Start(ctx, "agentic.loop", trace.WithAttributes(
		attribute.String("run.id", r.summary.RunID),
		attribute.String("tasks.file", l.store.Path()),
		attribute.Int("max_iterations", r.opts.MaxIterations),
		attribute.Bool("parallel", r.opts.Parallel),
	))
	defer span.End()

	// Bookkeeping after a stop must still reach the recorder.
	bg := context.WithoutCancel(ctx)
	if l.recorder != nil {
		err := l.recorder.StartRun(bg, history.Run{
			ID:        r.summary.RunID,
			TasksFile: l.store.Path(),
			StartedAt: r.summary.StartedAt,
		})
		if err != nil {
			l.logger.LogWarn(fmt.Sprintf("failed to record run start: %v", err))
		}
	}

	l.logger.LogInfo(fmt.Sprintf("Starting run %s on %s", r.summary.RunID, l.store.Path()))
	r.recoverStale()
	err := r.iterate(ctx)

	if r.summary.StopReason != models.StopStoreError {
		r.summary.Blocked = len(resolver.FromSource(l.store).Analyze().Blocked)
	}
	r.summary.Duration = l.now().Sub(r.summary.StartedAt)

	span.SetAttributes(
		attribute.Int("iterations", r.summary.Iterations),
		attribute.Int("completed", len(r.summary.Completed)),
		attribute.Int("failed", len(r.summary.Failed)),
		attribute.String("stop_reason", r.summary.StopReason),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if l.recorder != nil {
		ferr := l.recorder.FinishRun(bg, history.Run{
			ID:         r.summary.RunID,
			TasksFile:  l.store.Path(),
			StartedAt:  r.summary.StartedAt,
			FinishedAt: l.now(),
			Iterations: r.summary.Iterations,
			Completed:  len(r.summary.Completed),
			Failed:     len(r.summary.Failed),
			StopReason: r.summary.StopReason,
		})
		if ferr != nil {
			l.logger.LogWarn(fmt.Sprintf("failed to record run finish: %v", ferr))
		}
	}
	l.logger.LogSummary(*r.summary)
	return r.summary, err
}

// recoverStale resets tasks a crashed run left in_progress. The run lock
// guarantees no other loop owns them.
func (r *run) recoverStale() {
	l := r.loop
	if err := l.store.Load(); err != nil {
		// The first iteration reports load failures.
		return
	}
	for _, t := range l.store.Tasks() {
		if t.Status != models.StatusInProgress {
			continue
		}
		if _, err := l.store.UpdateStatus(t.ID, models.StatusPending); err != nil {
			l.logger.LogError(fmt.Sprintf("failed to reset stale task %s: %s", t.ID, Describe(err)))
			continue
		}
		r.summary.Recovered = append(r.summary.Recovered, t.ID)
		l.logger.LogWarn(fmt.Sprintf("Reset stale in_progress task %s to pending", t.ID))
	}
}

func (r *run) iterate(ctx context.Context) error {
	for r.iteration = 1; r.iteration <= r.opts.MaxIterations; r.iteration++ {
		if ctx.Err() != nil {
			r.summary.StopReason = models.StopRequested
			return nil
		}
		r.summary.Iterations = r.iteration

		done, err := r.step(ctx)
		if done || err != nil {
			return err
		}
		if r.iteration < r.opts.MaxIterations && !sleep(ctx, r.opts.Delay) {
			r.summary.StopReason = models.StopRequested
			return nil
		}
	}
	r.summary.StopReason = models.StopMaxIterations
	return nil
}

// step runs one iteration and reports whether the run is over.
func (r *run) step(ctx context.Context) (bool, error) {
	l := r.loop
	ctx, span := l.tracer.Start(ctx, "agentic.iteration",
		trace.WithAttributes(attribute.Int("iteration", r.iteration)))
	defer span.End()

	if err := l.store.Load(); err != nil {
		span.RecordError(err)
		l.logger.LogError(Describe(err))
		r.journal(execlog.Entry{
			Type:     execlog.TypeError,
			Message:  "Failed to load tasks",
			Metadata: execlog.Metadata{Error: err.Error(), Kind: string(Classify(err))},
		})
		if r.opts.ContinueOnError {
			return false, nil
		}
		r.summary.StopReason = models.StopStoreError
		return true, err
	}

	graph := resolver.FromSource(l.store)
	var batch []models.Task
	if r.opts.Parallel {
		batch = graph.ParallelBatch(r.opts.MaxBatch)
	} else if t, ok := graph.NextTask(); ok {
		batch = []models.Task{t}
	}
	span.SetAttributes(attribute.Int("batch.size", len(batch)))

	if len(batch) == 0 {
		l.logger.LogInfo("No runnable tasks remain")
		r.summary.StopReason = models.StopNoWork
		return true, nil
	}

	for _, task := range batch {
		if ctx.Err() != nil {
			r.summary.StopReason = models.StopRequested
			return true, nil
		}
		err := r.runTask(ctx, task)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrStopped) {
			r.summary.StopReason = models.StopRequested
			return true, nil
		}
		if !r.opts.ContinueOnError {
			r.summary.StopReason = models.StopTaskFailed
			if Classify(err) == KindStore {
				r.summary.StopReason = models.StopStoreError
			}
			return true, err
		}
	}
	return false, nil
}

func (r *run) runTask(ctx context.Context, task models.Task) error {
	l := r.loop
	ctx, span := l.tracer.Start(ctx, "agentic.task", trace.WithAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.title", task.Title),
		attribute.String("task.agent_type", task.AgentType),
	))
	defer span.End()

	started, err := l.store.UpdateStatus(task.ID, models.StatusInProgress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.LogError(Describe(err))
		r.journal(execlog.Entry{
			Type:     execlog.TypeError,
			Message:  fmt.Sprintf("Failed to start task: %s", task.Title),
			Metadata: execlog.Metadata{TaskID: task.ID, Error: err.Error(), Kind: string(Classify(err))},
		})
		return err
	}
	task = started
	r.summary.Attempts++

	span.AddEvent("task.started")
	l.logger.LogTaskStart(task)
	r.journal(execlog.Entry{
		Type:     execlog.TypeStart,
		Message:  fmt.Sprintf("Starting task: %s", task.Title),
		Metadata: execlog.Metadata{TaskID: task.ID},
	})

	begin := l.now()
	result, err := r.attempt(ctx, task)
	elapsed := l.now().Sub(begin)

	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ErrStopped) {
			err = fmt.Errorf("%w: task %s interrupted: %v", ErrStopped, task.ID, err)
		}
		return r.fail(ctx, span, task, err, elapsed)
	}
	return r.complete(ctx, span, task, result, elapsed)
}

// attempt applies the policy gate and the approver, then runs the backend.
func (r *run) attempt(ctx context.Context, task models.Task) (*backend.Result, error) {
	l := r.loop
	if r.opts.RulesCheck && l.gate != nil {
		if err := r.checkPolicy(task); err != nil {
			return nil, err
		}
	}
	if l.approver != nil {
		ok, err := l.approver(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("approval for task %s: %w", task.ID, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrApprovalDenied, task.ID)
		}
	}
	result, err := r.exec.Execute(ctx, task)
	if err != nil {
		return result, &BackendFailureError{TaskID: task.ID, Err: err}
	}
	return result, nil
}

// checkPolicy validates the task's declared output files that exist.
// Non-blocking violations are reported and ignored.
func (r *run) checkPolicy(task models.Task) error {
	l := r.loop
	for _, path := range task.OutputFiles() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		violations := l.gate.ValidateFile(path)
		if v, ok := rules.FirstBlocking(violations); ok {
			return &PolicyBlockedError{TaskID: task.ID, Violation: v}
		}
		for _, v := range violations {
			l.logger.LogWarn(fmt.Sprintf("%s: %s (%s, line %d)", v.RuleName, v.Description, v.File, v.Line))
		}
	}
	return nil
}

func (r *run) complete(ctx context.Context, span trace.Span, task models.Task, result *backend.Result, elapsed time.Duration) error {
	l := r.loop
	if _, err := l.store.UpdateStatus(task.ID, models.StatusCompleted); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.LogError(Describe(err))
		r.journal(execlog.Entry{
			Type:     execlog.TypeError,
			Message:  fmt.Sprintf("Failed to record completion of task: %s", task.Title),
			Metadata: execlog.Metadata{TaskID: task.ID, Error: err.Error(), Kind: string(Classify(err))},
		})
		r.record(ctx, task, err, elapsed)
		return err
	}

	r.summary.Completed = append(r.summary.Completed, task.ID)
	span.AddEvent("task.completed", trace.WithAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds())))
	l.logger.LogTaskComplete(task, elapsed)

	var output string
	if result != nil {
		output = truncate(result.Output, maxResultLen)
	}
	r.journal(execlog.Entry{
		Type:    execlog.TypeComplete,
		Message: fmt.Sprintf("Completed task: %s", task.Title),
		Metadata: execlog.Metadata{
			TaskID:   task.ID,
			Duration: elapsed.Milliseconds(),
			Result:   output,
		},
	})
	r.record(ctx, task, nil, elapsed)
	return nil
}

// fail returns the task to pending and records cause. An interrupted task
// is reset without running the rollback hook and is not counted as failed.
func (r *run) fail(ctx context.Context, span trace.Span, task models.Task, cause error, elapsed time.Duration) error {
	l := r.loop
	stopped := errors.Is(cause, ErrStopped)
	kind := Classify(cause)

	if !stopped && l.rollback != nil {
		if err := l.rollback(context.WithoutCancel(ctx), task, cause); err != nil {
			l.logger.LogWarn(fmt.Sprintf("rollback for task %s failed: %v", task.ID, err))
		}
	}

	if _, err := l.store.UpdateStatus(task.ID, models.StatusPending); err != nil {
		l.logger.LogError(fmt.Sprintf("failed to reset task %s: %s", task.ID, Describe(err)))
		r.journal(execlog.Entry{
			Type:     execlog.TypeError,
			Message:  fmt.Sprintf("Failed to reset task: %s", task.Title),
			Metadata: execlog.Metadata{TaskID: task.ID, Error: err.Error(), Kind: string(Classify(err))},
		})
	}

	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	span.AddEvent("task.failed", trace.WithAttributes(attribute.String("kind", string(kind))))

	message := fmt.Sprintf("Task failed: %s", task.Title)
	if stopped {
		message = fmt.Sprintf("Task interrupted: %s", task.Title)
	} else {
		r.summary.Failed = append(r.summary.Failed, task.ID)
	}
	l.logger.LogTaskFail(task, cause)
	r.journal(execlog.Entry{
		Type:    execlog.TypeFail,
		Message: message,
		Metadata: execlog.Metadata{
			TaskID:   task.ID,
			Duration: elapsed.Milliseconds(),
			Error:    cause.Error(),
			Kind:     string(kind),
		},
	})
	r.record(ctx, task, cause, elapsed)
	return cause
}

// journal appends e stamped with the run id and iteration. A journal
// failure is reported but never fails the task.
func (r *run) journal(e execlog.Entry) {
	l := r.loop
	if l.journal == nil {
		return
	}
	e.Metadata.RunID = r.summary.RunID
	e.Metadata.Iteration = r.iteration
	if _, err := l.journal.Append(e); err != nil {
		l.logger.LogWarn(fmt.Sprintf("failed to write execution log: %v", err))
	}
}

func (r *run) record(ctx context.Context, task models.Task, cause error, elapsed time.Duration) {
	l := r.loop
	if l.recorder == nil {
		return
	}
	a := &history.Attempt{
		RunID:      r.summary.RunID,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		AgentType:  task.AgentType,
		Iteration:  r.iteration,
		Success:    cause == nil,
		Duration:   elapsed,
		RecordedAt: l.now(),
	}
	if cause != nil {
		a.ErrorMessage = cause.Error()
		a.FailureKind = string(Classify(cause))
	}
	if err := l.recorder.RecordAttempt(context.WithoutCancel(ctx), a); err != nil {
		l.logger.LogWarn(fmt.Sprintf("failed to record attempt for task %s: %v", task.ID, err))
	}
}

// sleep waits d or until ctx is done, reporting whether the run may go on.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
