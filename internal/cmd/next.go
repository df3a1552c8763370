package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/display"
	"github.com/chibuenyim/Agentic-Toolkit/internal/executor"
	"github.com/chibuenyim/Agentic-Toolkit/internal/resolver"
)

// NewNextCommand creates the next command
func NewNextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next runnable task",
		Long: `Show the first pending task, in document order, whose dependencies
are all completed. When nothing is runnable, explain what each pending
task is waiting on.`,
		Args: cobra.NoArgs,
		RunE: runNext,
	}
	cmd.Flags().Bool("json", false, "Print the task as JSON")
	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	s, _ := a.openStore()
	graph := resolver.FromSource(s)

	if task, ok := graph.NextTask(); ok {
		if asJSON {
			return printJSON(a.out, task)
		}
		display.TaskDetail(a.out, task)
		return nil
	}

	if asJSON {
		return printJSON(a.out, nil)
	}

	report := graph.Analyze()
	if len(report.Blocked) == 0 {
		if s.Len() == 0 {
			fmt.Fprintln(a.out, "No tasks. Run 'agentic plan <plan.md>' to create some.")
		} else {
			fmt.Fprintln(a.out, "All tasks are completed or in progress.")
		}
		return nil
	}

	fmt.Fprintln(a.out, executor.Describe(&executor.NoRunnableError{Blockers: report.Blocked}))
	if report.Stalled() {
		display.WarnStalled(report.Blocked).Display(a.errOut)
	}
	return nil
}
