package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/display"
	"github.com/chibuenyim/Agentic-Toolkit/internal/execlog"
	"github.com/chibuenyim/Agentic-Toolkit/internal/store"
)

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task progress and execution statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	cmd.Flags().Bool("json", false, "Print statistics as JSON")
	return cmd
}

type statsOutput struct {
	Tasks      store.Stats   `json:"tasks"`
	Executions execlog.Stats `json:"executions"`
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	s, _ := a.openStore()
	exec, err := a.openLog().Stats()
	if err != nil {
		return fmt.Errorf("failed to read execution log: %w", err)
	}
	out := statsOutput{Tasks: s.Stats(), Executions: exec}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(a.out, out)
	}
	display.StoreStats(a.out, out.Tasks)
	display.ExecStats(a.out, out.Executions)
	return nil
}
