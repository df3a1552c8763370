package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/display"
	"github.com/chibuenyim/Agentic-Toolkit/internal/execlog"
)

// NewLogCommand creates the log command
func NewLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show execution log entries",
		Long: `Show entries from the execution log, oldest first.

Examples:
  agentic log --type fail
  agentic log --since 2h --task 2.1
  agentic log --limit 20`,
		Args: cobra.NoArgs,
		RunE: runLog,
	}

	cmd.Flags().String("type", "", "Entry type: start, complete, fail, error")
	cmd.Flags().Duration("since", 0, "Only entries newer than this, e.g. 30m or 24h")
	cmd.Flags().String("task", "", "Only entries for this task id")
	cmd.Flags().Int("limit", 50, "Show at most this many of the newest entries (0 = all)")
	cmd.Flags().Bool("json", false, "Print entries as JSON")

	return cmd
}

func runLog(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	var f execlog.Filter
	if v, _ := cmd.Flags().GetString("type"); v != "" {
		if f.Type, err = execlog.ParseType(v); err != nil {
			return err
		}
	}
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		f.Since = time.Now().Add(-since)
	}
	f.TaskID, _ = cmd.Flags().GetString("task")
	f.Limit, _ = cmd.Flags().GetInt("limit")

	entries, err := a.openLog().Entries(f)
	if err != nil {
		return fmt.Errorf("failed to read execution log: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if entries == nil {
			entries = []execlog.Entry{}
		}
		return printJSON(a.out, entries)
	}
	display.LogEntries(a.out, entries)
	return nil
}
