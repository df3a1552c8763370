package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/display"
	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
	"github.com/chibuenyim/Agentic-Toolkit/internal/store"
)

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks in document order, optionally filtered.

Examples:
  agentic list --status pending
  agentic list --priority high --phase Build`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().String("status", "", "Filter by status (pending, in_progress, completed)")
	cmd.Flags().String("priority", "", "Filter by priority (critical, high, medium, low)")
	cmd.Flags().String("phase", "", "Filter by phase name or id")
	cmd.Flags().Bool("json", false, "Print tasks as JSON")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	var f store.Filter
	if v, _ := cmd.Flags().GetString("status"); v != "" {
		if f.Status, err = models.ParseStatus(v); err != nil {
			return err
		}
	}
	if v, _ := cmd.Flags().GetString("priority"); v != "" {
		if f.Priority, err = models.ParsePriority(v); err != nil {
			return err
		}
	}
	f.Phase, _ = cmd.Flags().GetString("phase")

	s, _ := a.openStore()
	tasks := s.List(f)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if tasks == nil {
			tasks = []models.Task{}
		}
		return printJSON(a.out, tasks)
	}
	display.Tasks(a.out, tasks)
	return nil
}
