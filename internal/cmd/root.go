package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for agentic
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentic",
		Short: "Dependency-aware task scheduler for agent workflows",
		Long: `Agentic keeps a task document (tasks.json) and works through it in
dependency order, handing each runnable task to an execution backend.

Tasks come from a markdown plan ('agentic plan'), are inspected with
'next', 'list' and 'analyze', and are executed one by one or in
independent batches by 'agentic auto'. Every attempt is recorded in the
execution log and, when enabled, the SQLite history database.

Configuration is loaded from .agentic/config.yaml and .env in the
working directory. CLI flags override configuration file settings.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("dir", "C", ".", "Working directory holding .agentic/ and the task document")
	cmd.PersistentFlags().String("config", "", "Path to config file (default: <dir>/.agentic/config.yaml)")
	cmd.PersistentFlags().String("tasks", "", "Task document path (overrides tasks_file)")
	cmd.PersistentFlags().String("log-level", "", "Console log level: trace, debug, info, warn, error")

	cmd.AddCommand(NewPlanCommand())
	cmd.AddCommand(NewNextCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewUpdateCommand())
	cmd.AddCommand(NewAnalyzeCommand())
	cmd.AddCommand(NewAutoCommand())
	cmd.AddCommand(NewStatsCommand())
	cmd.AddCommand(NewLogCommand())
	cmd.AddCommand(NewReportCommand())
	cmd.AddCommand(NewRulesCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
