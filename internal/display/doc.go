// Package display renders agentic's CLI output.
//
// Lists and reports are go-pretty tables written to an io.Writer:
//
//	display.Tasks(os.Stdout, s.List(store.Filter{Status: models.StatusPending}))
//	display.Dependencies(os.Stdout, resolver.FromSource(s).Analyze())
//
// Warnings and the file-check progress indicator use fatih/color, which
// drops escape codes when stdout is not a terminal or NO_COLOR is set.
package display
