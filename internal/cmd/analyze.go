package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/complexity"
	"github.com/chibuenyim/Agentic-Toolkit/internal/display"
	"github.com/chibuenyim/Agentic-Toolkit/internal/resolver"
)

// NewAnalyzeCommand creates the analyze command
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score task complexity and inspect dependencies",
		Args:  cobra.NoArgs,
		RunE:  runAnalyze,
	}
	cmd.Flags().Bool("deps", false, "Include the dependency analysis")
	cmd.Flags().Bool("json", false, "Print the analysis as JSON")
	return cmd
}

type analysisOutput struct {
	Complexity   complexity.Analysis `json:"complexity"`
	Dependencies *resolver.Report    `json:"dependencies,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	withDeps, _ := cmd.Flags().GetBool("deps")

	s, _ := a.openStore()
	out := analysisOutput{Complexity: complexity.Analyze(s.Tasks())}
	if withDeps {
		report := resolver.FromSource(s).Analyze()
		out.Dependencies = &report
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(a.out, out)
	}
	display.Complexity(a.out, out.Complexity)
	if out.Dependencies != nil {
		display.Dependencies(a.out, *out.Dependencies)
	}
	return nil
}
