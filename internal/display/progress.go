package display

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
)

// ProgressIndicator reports a multi-file policy check one file at a time.
type ProgressIndicator struct {
	writer     io.Writer
	totalFiles int
	current    int
}

// NewProgressIndicator creates a new progress indicator
func NewProgressIndicator(w io.Writer, total int) *ProgressIndicator {
	return &ProgressIndicator{
		writer:     w,
		totalFiles: total,
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "Checking %d files:\n", p.totalFiles)
}

// Step displays progress for current file: [N/Total] name (violations)
func (p *ProgressIndicator) Step(filename string, violations int) {
	p.current++
	line := fmt.Sprintf("  [%d/%d] %s", p.current, p.totalFiles, filepath.Base(filename))
	if violations == 0 {
		color.New(color.FgCyan).Fprintln(p.writer, line)
		return
	}
	color.New(color.FgYellow).Fprintf(p.writer, "%s (%d violations)\n", line, violations)
}

// Complete displays the closing line with the total violation count.
func (p *ProgressIndicator) Complete(violations int) {
	if violations == 0 {
		fmt.Fprintf(p.writer, "%s Checked %d files, no violations\n", color.GreenString("✓"), p.totalFiles)
		return
	}
	fmt.Fprintf(p.writer, "%s Checked %d files, %d violations\n", color.RedString("✗"), p.totalFiles, violations)
}
