package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/display"
	"github.com/chibuenyim/Agentic-Toolkit/internal/fileutil"
	"github.com/chibuenyim/Agentic-Toolkit/internal/rules"
)

// NewRulesCommand creates the rules command group
func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage and apply the policy rules",
		Long: `Manage the regex policy rules the auto command checks task output
files against. The built-in rules are overlaid with the rules file
(rules.file, default .agentic/rules.yaml); changes are written there.`,
	}

	cmd.AddCommand(newRulesListCommand())
	cmd.AddCommand(newRulesCheckCommand())
	cmd.AddCommand(newRulesExportCommand())
	cmd.AddCommand(newRulesImportCommand())
	cmd.AddCommand(newRulesToggleCommand("enable", "Enable a rule", true))
	cmd.AddCommand(newRulesToggleCommand("disable", "Disable a rule", false))

	return cmd
}

func newRulesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			e, err := a.loadRules()
			if err != nil {
				return err
			}
			display.Rules(a.out, e.Rules())
			return nil
		},
	}
}

func newRulesCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file-or-dir>...",
		Short: "Check files against the enabled rules",
		Long: `Check files, or every source file under a directory, against the
enabled rules. Exits non-zero when any violation blocks.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRulesCheck,
	}
	cmd.Flags().Bool("report", false, "Print the compliance report after the check")
	return cmd
}

// checkTargets expands directories into the source files under them.
func checkTargets(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			files = append(files, p)
			continue
		}
		res, err := fileutil.Scan(p, fileutil.ScanOptions{
			Extensions:  fileutil.SourceExtensions,
			ExcludeDirs: fileutil.DefaultExcludeDirs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", p, err)
		}
		files = append(files, res.Files...)
	}
	return files, nil
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	e, err := a.loadRules()
	if err != nil {
		return err
	}
	files, err := checkTargets(args)
	if err != nil {
		return err
	}

	progress := display.NewProgressIndicator(a.errOut, len(files))
	progress.Start()
	var all []rules.Violation
	for _, f := range files {
		vs := e.ValidateFile(f)
		progress.Step(f, len(vs))
		all = append(all, vs...)
	}
	progress.Complete(len(all))

	display.Violations(a.out, all)
	if withReport, _ := cmd.Flags().GetBool("report"); withReport {
		display.Compliance(a.out, e.ComplianceReport())
	}

	if v, blocked := rules.FirstBlocking(all); blocked {
		return fmt.Errorf("blocking violation: %s in %s", v.RuleName, v.File)
	}
	return nil
}

func newRulesExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the rule set as YAML (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			e, err := a.loadRules()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return e.Export(a.out)
			}
			if err := e.SaveFile(args[0]); err != nil {
				return fmt.Errorf("failed to export rules: %w", err)
			}
			fmt.Fprintf(a.out, "Exported %d rules to %s\n", len(e.Rules()), args[0])
			return nil
		},
	}
}

func newRulesImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add or replace rules from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			e, err := a.loadRules()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open rules: %w", err)
			}
			defer f.Close()
			n, err := e.Import(f)
			if err != nil {
				return fmt.Errorf("failed to import rules: %w", err)
			}
			if err := e.SaveFile(a.rulesPath()); err != nil {
				return fmt.Errorf("failed to save rules: %w", err)
			}
			fmt.Fprintf(a.out, "Imported %d rules\n", n)
			return nil
		},
	}
}

func newRulesToggleCommand(use, short string, enable bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			e, err := a.loadRules()
			if err != nil {
				return err
			}
			if enable {
				err = e.Enable(args[0])
			} else {
				err = e.Disable(args[0])
			}
			if err != nil {
				return err
			}
			if err := e.SaveFile(a.rulesPath()); err != nil {
				return fmt.Errorf("failed to save rules: %w", err)
			}
			fmt.Fprintf(a.out, "Rule %s %sd\n", args[0], use)
			return nil
		},
	}
}
