package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/chibuenyim/Agentic-Toolkit/internal/resolver"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Items      []string // Related tasks or files (optional)
	ItemLabel  string   // Heading for Items, "item" when empty
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		fmt.Fprintf(&b, "    %s\n", w.Message)
	}

	if len(w.Items) > 0 {
		label := w.ItemLabel
		if label == "" {
			label = "item"
		}
		if len(w.Items) == 1 {
			fmt.Fprintf(&b, "    Affected %s:\n", label)
		} else {
			fmt.Fprintf(&b, "    Affected %ss:\n", label)
		}
		for i, item := range w.Items {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, item)
		}
	}

	if w.Suggestion != "" {
		fmt.Fprintf(&b, "    Suggestion:\n    %s\n", w.Suggestion)
	}

	color.New(color.FgYellow).Fprint(out, b.String())
}

// WarnPlan creates a warning for plan ingestion problems such as
// dependency references that matched no task.
func WarnPlan(problems []string) Warning {
	return Warning{
		Title:      "Plan has unresolved references",
		Items:      problems,
		ItemLabel:  "reference",
		Suggestion: "Fix the names in the plan or edit the task dependencies before running",
	}
}

// WarnStalled creates a warning for pending work that can never run
// without editing the task document.
func WarnStalled(blocked []resolver.Blocker) Warning {
	items := make([]string, 0, len(blocked))
	for _, b := range blocked {
		items = append(items, fmt.Sprintf("%s (%s: %s)", b.TaskID, b.Kind, strings.Join(b.On, ", ")))
	}
	return Warning{
		Title:      "No task can ever become runnable",
		Message:    "Every pending task depends on a missing task or sits on a dependency cycle.",
		Items:      items,
		ItemLabel:  "task",
		Suggestion: "Run 'agentic analyze --deps' and repair the dependencies",
	}
}
