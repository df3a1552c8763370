package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

const defaultBarWidth = 10

// Progress is a completed/total snapshot of the task document.
type Progress struct {
	Completed int
	Total     int
	Width     int
}

// ProgressOf counts completed tasks.
func ProgressOf(tasks []models.Task) Progress {
	p := Progress{Total: len(tasks), Width: defaultBarWidth}
	for i := range tasks {
		if tasks[i].IsCompleted() {
			p.Completed++
		}
	}
	return p
}

// Percent is clamped to 0-100. An empty document is 0%.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return clamp(p.Completed*100/p.Total, 0, 100)
}

// Render draws "[====      ] 4/10 (40%)", cyan while work remains and
// green once everything is completed.
func (p Progress) Render(enableColor bool) string {
	width := p.Width
	if width < 1 {
		width = defaultBarWidth
	}
	perc := p.Percent()
	filled := clamp(perc*width/100, 0, width)

	out := fmt.Sprintf("[%s%s] %d/%d (%d%%)",
		strings.Repeat("=", filled), strings.Repeat(" ", width-filled),
		p.Completed, p.Total, perc)
	if !enableColor {
		return out
	}

	c := color.New(color.FgCyan)
	if perc == 100 {
		c = color.New(color.FgGreen)
	}
	c.EnableColor()
	return c.Sprint(out)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
