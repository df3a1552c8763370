// Package logger provides operator-facing console logging for agentic.
//
// The execution log file is the audit trail; this package only reports
// progress. Implementations are thread-safe.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs execution progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
// Color output is enabled only when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	now         func() time.Time
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
		now:         time.Now,
	}
}

// isTerminal reports whether w is a TTY that should get color.
// NO_COLOR disables color through color.NoColor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	fd := f.Fd()
	return (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && !color.NoColor
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if _, ok := levels[normalized]; ok {
		return normalized
	}
	return "info"
}

var levels = map[string]int{
	"trace": levelTrace,
	"debug": levelDebug,
	"info":  levelInfo,
	"warn":  levelWarn,
	"error": levelError,
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return levels[messageLevel] >= levels[cl.logLevel]
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := level
	if cl.colorOutput {
		label = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", cl.timestamp(), label, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

// LogTaskStart logs a task picked up by the execution loop at INFO level.
// Format: "[HH:MM:SS] Starting task <id>: <title> (<agent>)"
func (cl *ConsoleLogger) LogTaskStart(task models.Task) {
	agent := task.AgentType
	if agent == "" {
		agent = models.AgentImplementation
	}
	cl.writeLine("info", color.FgCyan, fmt.Sprintf("Starting task %s: %s (%s)", task.ID, task.Title, agent))
}

// LogTaskComplete logs a completed task at INFO level.
func (cl *ConsoleLogger) LogTaskComplete(task models.Task, duration time.Duration) {
	cl.writeLine("info", color.FgGreen, fmt.Sprintf("Completed task %s: %s (%s)", task.ID, task.Title, formatDuration(duration)))
}

// LogTaskFail logs a failed or interrupted task at WARN level.
func (cl *ConsoleLogger) LogTaskFail(task models.Task, err error) {
	cl.writeLine("warn", color.FgRed, fmt.Sprintf("Task %s failed: %v", task.ID, err))
}

// writeLine writes one timestamped line, colored as a whole on terminals.
func (cl *ConsoleLogger) writeLine(level string, attr color.Attribute, message string) {
	if cl.writer == nil || !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput {
		message = color.New(attr).Sprint(message)
	}
	fmt.Fprintf(cl.writer, "[%s] %s\n", cl.timestamp(), message)
}

// LogSummary logs the run summary at INFO level.
func (cl *ConsoleLogger) LogSummary(summary models.RunSummary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := cl.timestamp()
	bold := func(s string) string { return s }
	green, red := bold, bold
	if cl.colorOutput {
		bold = func(s string) string { return color.New(color.Bold).Sprint(s) }
		green = func(s string) string { return color.New(color.FgGreen).Sprint(s) }
		red = func(s string) string { return color.New(color.FgRed).Sprint(s) }
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, bold("=== Run Summary ==="))
	fmt.Fprintf(&b, "[%s] Iterations: %d\n", ts, summary.Iterations)
	fmt.Fprintf(&b, "[%s] %s\n", ts, green(fmt.Sprintf("Completed: %d", len(summary.Completed))))
	if len(summary.Failed) > 0 {
		fmt.Fprintf(&b, "[%s] %s\n", ts, red(fmt.Sprintf("Failed attempts: %d", len(summary.Failed))))
	} else {
		fmt.Fprintf(&b, "[%s] Failed attempts: 0\n", ts)
	}
	if len(summary.Recovered) > 0 {
		fmt.Fprintf(&b, "[%s] Recovered: %s\n", ts, strings.Join(summary.Recovered, ", "))
	}
	if summary.Blocked > 0 {
		fmt.Fprintf(&b, "[%s] Blocked: %d\n", ts, summary.Blocked)
	}
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(summary.Duration))
	fmt.Fprintf(&b, "[%s] Stopped: %s\n", ts, summary.StopReason)

	io.WriteString(cl.writer, b.String())
}

// LogProgress logs the share of completed tasks as a progress bar.
// Format: "[HH:MM:SS] Progress: [====      ] 4/10 (40%)"
func (cl *ConsoleLogger) LogProgress(tasks []models.Task) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	bar := ProgressOf(tasks).Render(cl.colorOutput)

	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	fmt.Fprintf(cl.writer, "[%s] Progress: %s\n", cl.timestamp(), bar)
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func (cl *ConsoleLogger) timestamp() string {
	return cl.now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "250ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string)                             {}
func (n *NoOpLogger) LogDebug(string)                             {}
func (n *NoOpLogger) LogInfo(string)                              {}
func (n *NoOpLogger) LogWarn(string)                              {}
func (n *NoOpLogger) LogError(string)                             {}
func (n *NoOpLogger) LogTaskStart(models.Task)                    {}
func (n *NoOpLogger) LogTaskComplete(models.Task, time.Duration)  {}
func (n *NoOpLogger) LogTaskFail(models.Task, error)              {}
func (n *NoOpLogger) LogSummary(models.RunSummary)                {}
func (n *NoOpLogger) LogProgress([]models.Task)                   {}
