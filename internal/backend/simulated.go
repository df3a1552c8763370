package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// Simulated stands in for a real agent. Its output depends only on the
// task, and it succeeds unless Fail says otherwise.
type Simulated struct {
	// Delay is slept before returning, honouring cancellation.
	Delay time.Duration
	// Fail, when set, may veto a task with an error.
	Fail func(task models.Task) error
}

// Execute produces a canned report for the task's agent type.
func (s *Simulated) Execute(ctx context.Context, task models.Task) (*Result, error) {
	start := time.Now()
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Output:    simulatedOutput(task),
		Duration:  time.Since(start),
		Artifacts: task.OutputFiles(),
	}
	if s.Fail != nil {
		if err := s.Fail(task); err != nil {
			return result, err
		}
	}
	return result, nil
}

func simulatedOutput(task models.Task) string {
	ctx := task.Context
	if ctx == nil {
		ctx = &models.ExecutionContext{}
	}

	switch task.AgentType {
	case models.AgentPlanning:
		return "requirements analyzed; specifications created; next: implementation planning, resource allocation"
	case models.AgentImplementation, "":
		stack := "general"
		if len(ctx.TechStack) > 0 {
			stack = strings.Join(ctx.TechStack, ", ")
		}
		out := fmt.Sprintf("implemented core functionality with %s; error handling added", stack)
		if files := task.OutputFiles(); len(files) > 0 {
			out += "; files: " + strings.Join(files, ", ")
		}
		if ctx.TestingRequired {
			out += "; unit tests created"
		}
		return out
	case models.AgentTesting:
		return "test suite executed; all tests passed"
	case models.AgentDeployment:
		env := ctx.Infrastructure
		if env == "" {
			env = "development"
		}
		return fmt.Sprintf("deployed to %s; health checks configured; logging enabled", env)
	default:
		return "task executed successfully"
	}
}
