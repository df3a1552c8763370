package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chibuenyim/Agentic-Toolkit/internal/backend"
	"github.com/chibuenyim/Agentic-Toolkit/internal/executor"
	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// promptApprover asks on out and reads the answer from in. Only "y" or
// "yes" approve; end of input denies.
func promptApprover(in io.Reader, out io.Writer) executor.Approver {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, task models.Task) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Run task %s: %s (%s)? [y/N] ", task.ID, task.Title, task.AgentType)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, fmt.Errorf("failed to read approval: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// commandRollback runs argv for a failed task. The failure text is passed
// in AGENTIC_FAILURE.
func commandRollback(argv []string) executor.Rollback {
	return func(ctx context.Context, task models.Task, cause error) error {
		c := backend.NewCommand(argv)
		c.Env = []string{"AGENTIC_FAILURE=" + cause.Error()}
		if _, err := c.Execute(ctx, task); err != nil {
			return fmt.Errorf("rollback command: %w", err)
		}
		return nil
	}
}
