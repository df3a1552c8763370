package display

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/chibuenyim/Agentic-Toolkit/internal/execlog"
	"github.com/chibuenyim/Agentic-Toolkit/internal/history"
	"github.com/chibuenyim/Agentic-Toolkit/internal/rules"
)

const (
	timeLayout   = "2006-01-02 15:04:05"
	messageWidth = 60
)

// LogEntries renders execution log entries oldest first.
func LogEntries(w io.Writer, entries []execlog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No log entries.")
		return
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Time", "Type", "Task", "Message", "Duration"})
	for _, e := range entries {
		dur := ""
		if e.Metadata.Duration > 0 {
			dur = e.DurationValue().String()
		}
		tw.AppendRow(table.Row{
			e.Timestamp.Local().Format(timeLayout),
			e.Type,
			e.Metadata.TaskID,
			clip(e.Message, messageWidth),
			dur,
		})
	}
	tw.Render()
}

// ExecStats renders execution log statistics.
func ExecStats(w io.Writer, st execlog.Stats) {
	tw := newTable(w)
	tw.SetTitle("Executions")
	tw.AppendHeader(table.Row{"Entries", "Successful", "Failed", "Success Rate", "Avg Duration"})
	tw.AppendRow(table.Row{st.Total, st.Successful, st.Failed, fmt.Sprintf("%.1f%%", st.SuccessRate), formatMillis(st.AverageDuration)})
	tw.Render()
}

// ExecReport renders the execution report.
func ExecReport(w io.Writer, r execlog.Report) {
	fmt.Fprintf(w, "Execution report (%s)\n", r.Timestamp.Local().Format(timeLayout))
	ExecStats(w, r.Summary)
	if len(r.RecentActivity) > 0 {
		fmt.Fprintln(w, "Recent activity:")
		LogEntries(w, r.RecentActivity)
	}
	Recommendations(w, r.Recommendations)
}

// Rules renders the rule set.
func Rules(w io.Writer, rs []rules.Rule) {
	if len(rs) == 0 {
		fmt.Fprintln(w, "No rules configured.")
		return
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Name", "Category", "Severity", "Action", "Enabled"})
	for _, r := range rs {
		enabled := "yes"
		if !r.Enabled {
			enabled = "no"
		}
		tw.AppendRow(table.Row{r.ID, r.Name, r.Category, r.Severity, r.Action, enabled})
	}
	tw.Render()
}

// Violations renders policy violations. Blocking rows are listed as-is;
// callers decide the exit status.
func Violations(w io.Writer, vs []rules.Violation) {
	if len(vs) == 0 {
		fmt.Fprintln(w, "No violations.")
		return
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"File", "Line", "Rule", "Severity", "Action", "Description"})
	for _, v := range vs {
		line := ""
		if v.Line > 0 {
			line = fmt.Sprint(v.Line)
		}
		tw.AppendRow(table.Row{v.File, line, v.RuleID, v.Severity, v.Action, clip(v.Description, messageWidth)})
	}
	tw.Render()
}

// Compliance renders a compliance report.
func Compliance(w io.Writer, r rules.ComplianceReport) {
	tw := newTable(w)
	tw.SetTitle("Compliance: %s", r.Overall)
	tw.AppendRow(table.Row{"Violations", r.ViolationCount})
	tw.AppendRow(table.Row{"Rules", fmt.Sprintf("%d (%d enabled)", r.Rules.Total, r.Rules.Enabled)})
	for _, c := range r.Rules.Categories() {
		tw.AppendRow(table.Row{"  " + c, r.Rules.ByCategory[c]})
	}
	tw.Render()
	if len(r.Violations) > 0 {
		Violations(w, r.Violations)
	}
	Recommendations(w, r.Recommendations)
}

// Attempts renders recorded task attempts.
func Attempts(w io.Writer, as []history.Attempt) {
	if len(as) == 0 {
		fmt.Fprintln(w, "No recorded attempts.")
		return
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Time", "Run", "Task", "Agent", "Result", "Duration", "Error"})
	for _, a := range as {
		result := "ok"
		if !a.Success {
			result = "failed"
			if a.FailureKind != "" {
				result = "failed (" + a.FailureKind + ")"
			}
		}
		tw.AppendRow(table.Row{
			a.RecordedAt.Local().Format(timeLayout),
			shortID(a.RunID),
			a.TaskID,
			a.AgentType,
			result,
			a.Duration.Round(time.Millisecond),
			clip(a.ErrorMessage, messageWidth),
		})
	}
	tw.Render()
}

// TaskCounts renders per-task attempt totals.
func TaskCounts(w io.Writer, counts []history.TaskCount) {
	if len(counts) == 0 {
		return
	}
	tw := newTable(w)
	tw.SetTitle("Attempts per task")
	tw.AppendHeader(table.Row{"Task", "Title", "Attempts", "Successes", "Failures", "Last"})
	for _, c := range counts {
		tw.AppendRow(table.Row{c.TaskID, clip(c.TaskTitle, titleWidth), c.Attempts, c.Successes, c.Failures, c.LastAttempt.Local().Format(timeLayout)})
	}
	tw.Render()
}

// Runs renders recorded loop runs, newest first.
func Runs(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		return
	}
	tw := newTable(w)
	tw.SetTitle("Runs")
	tw.AppendHeader(table.Row{"Run", "Started", "Iterations", "Completed", "Failed", "Stopped"})
	for _, r := range runs {
		tw.AppendRow(table.Row{shortID(r.ID), r.StartedAt.Local().Format(timeLayout), r.Iterations, r.Completed, r.Failed, r.StopReason})
	}
	tw.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
