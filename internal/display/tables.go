package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/chibuenyim/Agentic-Toolkit/internal/complexity"
	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
	"github.com/chibuenyim/Agentic-Toolkit/internal/resolver"
	"github.com/chibuenyim/Agentic-Toolkit/internal/store"
)

const titleWidth = 48

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

// Tasks renders one row per task in document order.
func Tasks(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Agent", "Depends On", "Phase"})
	for _, t := range tasks {
		tw.AppendRow(table.Row{
			t.ID,
			clip(t.Title, titleWidth),
			t.Status,
			t.Priority,
			t.AgentType,
			strings.Join(t.Dependencies, ", "),
			t.Phase,
		})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d tasks", len(tasks))})
	tw.Render()
}

// TaskDetail renders a single task as key/value rows.
func TaskDetail(w io.Writer, t models.Task) {
	tw := newTable(w)
	tw.SetTitle("Task %s", t.ID)
	tw.AppendRow(table.Row{"Title", t.Title})
	if t.Description != "" {
		tw.AppendRow(table.Row{"Description", t.Description})
	}
	tw.AppendRow(table.Row{"Status", t.Status})
	tw.AppendRow(table.Row{"Priority", t.Priority})
	if t.AgentType != "" {
		tw.AppendRow(table.Row{"Agent", t.AgentType})
	}
	if len(t.Dependencies) > 0 {
		tw.AppendRow(table.Row{"Depends On", strings.Join(t.Dependencies, ", ")})
	}
	if t.EstimatedHours > 0 {
		tw.AppendRow(table.Row{"Estimate", fmt.Sprintf("%gh", t.EstimatedHours)})
	}
	if t.Phase != "" {
		tw.AppendRow(table.Row{"Phase", t.Phase})
	}
	if files := t.OutputFiles(); len(files) > 0 {
		tw.AppendRow(table.Row{"Files", strings.Join(files, ", ")})
	}
	tw.Render()
}

// StoreStats renders task counts by status.
func StoreStats(w io.Writer, st store.Stats) {
	tw := newTable(w)
	tw.SetTitle("Tasks")
	tw.AppendHeader(table.Row{"Total", "Completed", "In Progress", "Pending", "Completion"})
	tw.AppendRow(table.Row{st.Total, st.Completed, st.InProgress, st.Pending, fmt.Sprintf("%.1f%%", st.CompletionRate)})
	tw.Render()
}

// Dependencies renders the dependency analysis: a summary table followed
// by one row per blocked task.
func Dependencies(w io.Writer, r resolver.Report) {
	tw := newTable(w)
	tw.SetTitle("Dependencies")
	tw.AppendRow(table.Row{"Total dependencies", r.TotalDependencies})
	tw.AppendRow(table.Row{"Longest chain", r.LongestChain})
	tw.AppendRow(table.Row{"Entry points", joinOrDash(r.EntryPoints)})
	tw.AppendRow(table.Row{"Runnable", joinOrDash(r.Runnable)})
	tw.AppendRow(table.Row{"Cycles", joinOrDash(r.Cycles)})
	tw.AppendRow(table.Row{"Missing", len(r.Missing)})
	tw.Render()

	if len(r.Blocked) == 0 {
		return
	}
	bt := newTable(w)
	bt.SetTitle("Blocked")
	bt.AppendHeader(table.Row{"Task", "Reason", "On"})
	for _, b := range r.Blocked {
		bt.AppendRow(table.Row{b.TaskID, b.Kind, strings.Join(b.On, ", ")})
	}
	bt.Render()
}

// Complexity renders the project score, per-task breakdown and recommendations.
func Complexity(w io.Writer, a complexity.Analysis) {
	tw := newTable(w)
	tw.SetTitle("Complexity %.1f (%s)", a.Score, a.Level)
	tw.AppendHeader(table.Row{"ID", "Title", "Score", "Level", "Deps", "Desc", "Priority", "Technical"})
	for _, b := range a.Tasks {
		tw.AppendRow(table.Row{
			b.TaskID,
			clip(b.Title, titleWidth),
			fmt.Sprintf("%.1f", b.Score),
			b.Level,
			fmt.Sprintf("%.1f", b.Factors.Dependencies),
			fmt.Sprintf("%.1f", b.Factors.Description),
			fmt.Sprintf("%.1f", b.Factors.Priority),
			fmt.Sprintf("%.1f", b.Factors.Technical),
		})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d tasks, %d high priority, %d complex", a.TotalTasks, a.HighPriorityTasks, len(a.ComplexTasks))})
	tw.Render()
	Recommendations(w, a.Recommendations)
}

// Recommendations prints a bulleted list, or nothing when recs is empty.
func Recommendations(w io.Writer, recs []string) {
	if len(recs) == 0 {
		return
	}
	fmt.Fprintln(w, "Recommendations:")
	for _, r := range recs {
		fmt.Fprintf(w, "  - %s\n", r)
	}
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func formatMillis(ms float64) string {
	return time.Duration(ms * float64(time.Millisecond)).Round(time.Millisecond).String()
}
