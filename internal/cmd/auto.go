package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/backend"
	"github.com/chibuenyim/Agentic-Toolkit/internal/config"
	"github.com/chibuenyim/Agentic-Toolkit/internal/executor"
	"github.com/chibuenyim/Agentic-Toolkit/internal/store"
	"github.com/chibuenyim/Agentic-Toolkit/internal/telemetry"
)

const telemetryFlushTimeout = 5 * time.Second

// NewAutoCommand creates the auto command
func NewAutoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Execute runnable tasks until none are left",
		Long: `Run the execution loop over the task document.

Each iteration selects the next runnable task (or, with --parallel, a
batch of mutually independent runnable tasks), marks it in_progress,
checks its output files against the policy rules, hands it to the
backend for its agent type, and marks it completed or returns it to
pending. The loop ends when nothing is runnable, the iteration limit is
reached, a task fails (unless --continue-on-error), or on Ctrl-C.

With --require-approval (or auto.require_approval) each task is confirmed
on stdin first; a refusal fails the task. auto.rollback_command runs after
every failed task.

Agent types without a configured backend command use the built-in
simulated backend.

Examples:
  agentic auto
  agentic auto --parallel --max-batch 5
  agentic auto --max-iterations 10 --delay 0 --continue-on-error
  agentic auto --timeout 10m --no-rules
  agentic auto --require-approval`,
		Args: cobra.NoArgs,
		RunE: runAuto,
	}

	cmd.Flags().Bool("parallel", false, "Select a batch of independent tasks per iteration")
	cmd.Flags().Int("max-iterations", 0, "Maximum loop iterations (default from config: 100)")
	cmd.Flags().Int("delay", 0, "Pause between iterations in milliseconds (default from config: 2000)")
	cmd.Flags().Bool("no-rules", false, "Skip the policy check on task output files")
	cmd.Flags().Bool("continue-on-error", false, "Keep going after a task fails")
	cmd.Flags().Int("max-batch", 0, "Maximum tasks per parallel batch (default from config: 3)")
	cmd.Flags().Duration("timeout", 0, "Per-task backend timeout, e.g. 5m (0 = none)")
	cmd.Flags().Bool("require-approval", false, "Ask for confirmation before each task runs")

	return cmd
}

// autoFlags collects the flags the user actually set.
func autoFlags(cmd *cobra.Command) config.AutoFlags {
	var f config.AutoFlags
	flags := cmd.Flags()
	if flags.Changed("max-iterations") {
		v, _ := flags.GetInt("max-iterations")
		f.MaxIterations = &v
	}
	if flags.Changed("delay") {
		ms, _ := flags.GetInt("delay")
		d := time.Duration(ms) * time.Millisecond
		f.Delay = &d
	}
	if flags.Changed("no-rules") {
		v, _ := flags.GetBool("no-rules")
		f.NoRules = &v
	}
	if flags.Changed("parallel") {
		v, _ := flags.GetBool("parallel")
		f.Parallel = &v
	}
	if flags.Changed("max-batch") {
		v, _ := flags.GetInt("max-batch")
		f.MaxBatch = &v
	}
	if flags.Changed("continue-on-error") {
		v, _ := flags.GetBool("continue-on-error")
		f.ContinueOnError = &v
	}
	if flags.Changed("timeout") {
		v, _ := flags.GetDuration("timeout")
		f.TaskTimeout = &v
	}
	if flags.Changed("require-approval") {
		v, _ := flags.GetBool("require-approval")
		f.RequireApproval = &v
	}
	return f
}

func runAuto(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	a.cfg.MergeAutoFlags(autoFlags(cmd))
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	auto := a.cfg.Auto

	ctx := cmd.Context()

	tp, shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        a.cfg.Telemetry.Enabled,
		ServiceName:    a.cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		OTLPEndpoint:   a.cfg.Telemetry.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			a.log.LogWarn(fmt.Sprintf("Telemetry flush failed: %v", err))
		}
	}()

	opts := []executor.Option{
		executor.WithJournal(a.openLog()),
		executor.WithLogger(a.log),
		executor.WithTracerProvider(tp),
	}

	if auto.RulesCheck {
		engine, err := a.loadRules()
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
		opts = append(opts, executor.WithPolicyGate(engine))
	}

	if auto.RequireApproval {
		opts = append(opts, executor.WithApprover(promptApprover(cmd.InOrStdin(), a.errOut)))
	}
	if len(auto.RollbackCommand) > 0 {
		opts = append(opts, executor.WithRollback(commandRollback(auto.RollbackCommand)))
	}

	h, err := a.openHistory()
	if err != nil {
		return err
	}
	if h != nil {
		defer h.Close()
		opts = append(opts, executor.WithRecorder(h))
	}

	dispatcher := backend.FromCommands(a.cfg.BackendCommands(), &backend.Simulated{})
	for _, agent := range dispatcher.Routes() {
		a.log.LogDebug(fmt.Sprintf("Backend route: %s", agent))
	}

	s := store.New(a.tasksPath())
	loop := executor.New(s, dispatcher, opts...)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCh:
			a.log.LogWarn("Interrupt received, stopping")
			loop.Stop()
		case <-done:
		}
	}()

	summary, err := loop.Run(ctx, executor.Options{
		MaxIterations:   auto.MaxIterations,
		Delay:           auto.Delay,
		RulesCheck:      auto.RulesCheck,
		Parallel:        auto.Parallel,
		ContinueOnError: auto.ContinueOnError,
		MaxBatch:        auto.MaxBatch,
		TaskTimeout:     auto.TaskTimeout,
	})
	if summary != nil {
		a.log.LogProgress(s.Tasks())
	}
	if err != nil {
		return describe(err)
	}
	return nil
}
