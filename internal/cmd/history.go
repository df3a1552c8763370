package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/display"
	"github.com/chibuenyim/Agentic-Toolkit/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded task attempts across runs",
		Long: `Show task attempts from the history database.

Without filters, lists the most recent attempts, attempt counts per task
and recent runs.

Examples:
  agentic history
  agentic history --task 2.1
  agentic history --run 3f2a9c1e-...`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().String("task", "", "Only attempts for this task id")
	cmd.Flags().String("run", "", "Only attempts from this run id")
	cmd.Flags().Int("limit", 20, "Maximum attempts and runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	h, err := a.openHistory()
	if err != nil {
		return err
	}
	if h == nil {
		fmt.Fprintln(a.out, "History is disabled (history.enabled: false).")
		return nil
	}
	defer h.Close()

	ctx := cmd.Context()
	taskID, _ := cmd.Flags().GetString("task")
	runID, _ := cmd.Flags().GetString("run")
	limit, _ := cmd.Flags().GetInt("limit")

	var attempts []history.Attempt
	switch {
	case taskID != "":
		attempts, err = h.TaskAttempts(ctx, taskID)
	case runID != "":
		attempts, err = h.RunAttempts(ctx, runID)
	default:
		attempts, err = h.RecentAttempts(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("failed to query history: %w", err)
	}
	display.Attempts(a.out, attempts)

	if taskID != "" || runID != "" {
		return nil
	}

	counts, err := h.AttemptCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to query history: %w", err)
	}
	display.TaskCounts(a.out, counts)

	runs, err := h.Runs(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to query history: %w", err)
	}
	display.Runs(a.out, runs)
	return nil
}
