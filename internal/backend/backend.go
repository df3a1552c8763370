// Package backend runs a single task. The execution loop only sees the
// Backend interface; what actually happens is chosen per agent type.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

var (
	// ErrCommandFailed indicates a command backend exited non-zero.
	ErrCommandFailed = errors.New("backend command failed")
	// ErrTimeout indicates a task exceeded its per-task timeout.
	ErrTimeout = errors.New("backend timed out")
	// ErrNoCommand indicates a command backend with an empty argv.
	ErrNoCommand = errors.New("backend command is empty")
)

// Result describes a successful execution.
type Result struct {
	Output   string
	ExitCode int
	Duration time.Duration
	// Artifacts lists files the backend reports having written.
	Artifacts []string
}

// Backend executes one task. A non-nil error means the task failed; the
// Result may still carry partial output.
type Backend interface {
	Execute(ctx context.Context, task models.Task) (*Result, error)
}

// Func adapts a function to Backend.
type Func func(ctx context.Context, task models.Task) (*Result, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, task models.Task) (*Result, error) {
	return f(ctx, task)
}
