package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

const (
	// maxErrorOutput bounds how much command output is quoted in an error.
	maxErrorOutput = 512
	// waitDelay bounds how long output pipes are drained after the process
	// group is killed.
	waitDelay = 2 * time.Second
)

// Command runs an external program for each task. Argv may contain the
// placeholders {id}, {title}, {agent} and {phase}.
type Command struct {
	Argv []string
	Dir  string
	// Env is appended to the current environment.
	Env []string
}

// NewCommand creates a Command backend.
func NewCommand(argv []string) *Command {
	return &Command{Argv: argv}
}

// Args expands the placeholders in Argv for task.
func (c *Command) Args(task models.Task) []string {
	r := strings.NewReplacer(
		"{id}", task.ID,
		"{title}", task.Title,
		"{agent}", task.AgentType,
		"{phase}", task.Phase,
	)
	out := make([]string, len(c.Argv))
	for i, a := range c.Argv {
		out[i] = r.Replace(a)
	}
	return out
}

// TaskEnv describes task to the child process.
func TaskEnv(task models.Task) []string {
	env := []string{
		"AGENTIC_TASK_ID=" + task.ID,
		"AGENTIC_TASK_TITLE=" + task.Title,
		"AGENTIC_TASK_DESCRIPTION=" + task.Description,
		"AGENTIC_TASK_PRIORITY=" + string(task.Priority),
		"AGENTIC_AGENT_TYPE=" + task.AgentType,
		"AGENTIC_TASK_PHASE=" + task.Phase,
		"AGENTIC_OUTPUT_FILES=" + strings.Join(task.OutputFiles(), ","),
	}
	if data, err := json.Marshal(task); err == nil {
		env = append(env, "AGENTIC_TASK_JSON="+string(data))
	}
	return env
}

// Execute runs the command. A non-zero exit is a failure wrapping
// ErrCommandFailed; cancellation kills the command's whole process group
// and returns the context error.
func (c *Command) Execute(ctx context.Context, task models.Task) (*Result, error) {
	args := c.Args(task)
	if len(args) == 0 || args[0] == "" {
		return nil, ErrNoCommand
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = append(append(os.Environ(), TaskEnv(task)...), c.Env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay
	killGroupOnCancel(cmd)

	err := cmd.Run()
	result := &Result{
		Output:    out.String(),
		Duration:  time.Since(start),
		Artifacts: task.OutputFiles(),
	}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, fmt.Errorf("%w: %s exited %d: %s", ErrCommandFailed, args[0], result.ExitCode, tail(result.Output))
	}
	return result, fmt.Errorf("run %s: %w", args[0], err)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrorOutput {
		return s
	}
	start := len(s) - maxErrorOutput
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return "..." + s[start:]
}
