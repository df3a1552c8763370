package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/display"
)

// NewReportCommand creates the report command
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the execution report",
		Long: `Summarize the execution log: success rate, average duration, the last
day's activity and recommendations.`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	report, err := a.openLog().Report()
	if err != nil {
		return fmt.Errorf("failed to read execution log: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(a.out, report)
	}
	display.ExecReport(a.out, report)
	return nil
}
