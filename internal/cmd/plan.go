package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/display"
	"github.com/chibuenyim/Agentic-Toolkit/internal/planner"
)

// NewPlanCommand creates the plan command
func NewPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <plan.md>",
		Short: "Generate the task document from a markdown plan",
		Long: `Parse a markdown plan into the task document.

"## Phase N: Name" headings open phases. "### Task" headings and list
items under a phase become tasks. Lines such as "Priority: high",
"Depends on: 1.2, Set up repository", "Agent: testing", "Estimate: 4h"
and "Files: a.go, b.go" set fields explicitly; anything left unset is
inferred from the task text.

Examples:
  agentic plan docs/plan.md
  agentic plan docs/plan.md --force      # replace an existing tasks.json
  agentic plan docs/plan.md --dry-run    # show the tasks without writing`,
		Args: cobra.ExactArgs(1),
		RunE: runPlan,
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing task document")
	cmd.Flags().Bool("dry-run", false, "Print the parsed tasks without writing them")

	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	plan, err := planner.New().ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to parse plan: %w", err)
	}
	if len(plan.Warnings) > 0 {
		display.WarnPlan(plan.Warnings).Display(a.errOut)
	}

	tasks := plan.Tasks()
	if dryRun {
		display.Tasks(a.out, tasks)
		return nil
	}

	dest := a.tasksPath()
	if _, err := os.Stat(dest); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
	}
	if err := plan.Save(dest); err != nil {
		return fmt.Errorf("failed to write task document: %w", err)
	}

	fmt.Fprintf(a.out, "Wrote %d tasks in %d phases to %s\n", len(tasks), len(plan.Document.Phases), dest)
	return nil
}
