package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chibuenyim/Agentic-Toolkit/internal/execlog"
	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
	"github.com/chibuenyim/Agentic-Toolkit/internal/store"
)

const samplePlan = `# Shop

## Phase 1: Planning

### Gather requirements

Priority: high

## Phase 2: Build

### Implement API

Depends on: 1.1

### Write API tests

Depends on: Implement API
`

// execute runs the root command against dir and returns stdout and stderr.
func execute(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--dir", dir}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.md")
	require.NoError(t, os.WriteFile(planPath, []byte(samplePlan), 0644))
	_, _, err := execute(t, dir, "plan", planPath)
	require.NoError(t, err)
	return dir
}

func writeTasks(t *testing.T, dir string, tasks []models.Task) {
	t.Helper()
	s := store.New(filepath.Join(dir, "tasks.json"))
	require.NoError(t, s.Replace(tasks))
}

func listJSON(t *testing.T, dir string, args ...string) []models.Task {
	t.Helper()
	out, _, err := execute(t, dir, append([]string{"list", "--json"}, args...)...)
	require.NoError(t, err)
	var tasks []models.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	return tasks
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "agentic", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"plan", "next", "list", "update", "analyze", "auto", "stats", "log", "report", "rules", "history"} {
		assert.Contains(t, names, want)
	}

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), Version)
}

func TestPlanCommand(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.md")
	require.NoError(t, os.WriteFile(planPath, []byte(samplePlan), 0644))

	out, _, err := execute(t, dir, "plan", planPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Implement API")
	assert.NoFileExists(t, filepath.Join(dir, "tasks.json"))

	out, _, err = execute(t, dir, "plan", planPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 tasks in 2 phases")

	_, _, err = execute(t, dir, "plan", planPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, _, err = execute(t, dir, "plan", planPath, "--force")
	assert.NoError(t, err)
}

func TestNextCommand(t *testing.T) {
	dir := workspace(t)

	out, _, err := execute(t, dir, "next")
	require.NoError(t, err)
	assert.Contains(t, out, "Gather requirements")

	out, _, err = execute(t, dir, "next", "--json")
	require.NoError(t, err)
	var task models.Task
	require.NoError(t, json.Unmarshal([]byte(out), &task))
	assert.Equal(t, "1.1", task.ID)
}

func TestNextCommand_ExplainsBlockedWork(t *testing.T) {
	dir := t.TempDir()
	writeTasks(t, dir, []models.Task{
		{ID: "a", Title: "A", Dependencies: []string{"b"}},
		{ID: "b", Title: "B", Dependencies: []string{"a"}},
	})

	out, errOut, err := execute(t, dir, "next")
	require.NoError(t, err)
	assert.Contains(t, out, "task could not run yet")
	assert.Contains(t, out, "cycle")
	assert.Contains(t, errOut, "No task can ever become runnable")
}

func TestNextCommand_NoTasks(t *testing.T) {
	out, _, err := execute(t, t.TempDir(), "next")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks")
}

func TestListCommandFilters(t *testing.T) {
	dir := workspace(t)

	assert.Len(t, listJSON(t, dir), 3)
	high := listJSON(t, dir, "--priority", "high")
	require.NotEmpty(t, high)
	for _, task := range high {
		assert.Equal(t, models.PriorityHigh, task.Priority)
	}
	assert.Len(t, listJSON(t, dir, "--phase", "Build"), 2)
	assert.Empty(t, listJSON(t, dir, "--status", "completed"))

	_, _, err := execute(t, dir, "list", "--status", "done")
	assert.Error(t, err)
}

func TestUpdateCommand(t *testing.T) {
	dir := workspace(t)

	out, _, err := execute(t, dir, "update", "1.1", "in_progress")
	require.NoError(t, err)
	assert.Equal(t, "Task 1.1: pending -> in_progress\n", out)

	_, _, err = execute(t, dir, "update", "2.1", "completed")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	_, _, err = execute(t, dir, "update", "2.1", "completed", "--force")
	require.NoError(t, err)

	_, _, err = execute(t, dir, "update", "9.9", "completed")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.Contains(t, err.Error(), "could not load or persist task state")
}

func TestUpdateCommand_RefusesCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.json"), []byte("{not json"), 0644))

	_, _, err := execute(t, dir, "update", "1", "in_progress")
	require.Error(t, err)

	data, readErr := os.ReadFile(filepath.Join(dir, "tasks.json"))
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(data), "a corrupt document must not be overwritten")
}

func TestAnalyzeCommand(t *testing.T) {
	dir := workspace(t)

	out, _, err := execute(t, dir, "analyze", "--deps", "--json")
	require.NoError(t, err)

	var got analysisOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Complexity.TotalTasks)
	require.NotNil(t, got.Dependencies)
	assert.Equal(t, 3, got.Dependencies.LongestChain)
	assert.Equal(t, []string{"1.1"}, got.Dependencies.Runnable)

	out, _, err = execute(t, dir, "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "Recommendations:")
}

func TestAutoCommand_RunsToCompletion(t *testing.T) {
	dir := workspace(t)

	_, errOut, err := execute(t, dir, "auto", "--delay", "0", "--max-iterations", "10")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Run Summary")
	assert.Contains(t, errOut, "Stopped: no runnable tasks")
	assert.Contains(t, errOut, "Progress: [==========] 3/3 (100%)")

	assert.Empty(t, listJSON(t, dir, "--status", "pending"))

	out, _, err := execute(t, dir, "log", "--json", "--type", "complete")
	require.NoError(t, err)
	var entries []execlog.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "1.1", entries[0].Metadata.TaskID)

	out, _, err = execute(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Write API tests")

	out, _, err = execute(t, dir, "stats", "--json")
	require.NoError(t, err)
	var st statsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 3, st.Tasks.Completed)
	assert.Equal(t, 3, st.Executions.Successful)

	out, _, err = execute(t, dir, "report")
	require.NoError(t, err)
	assert.Contains(t, out, "Execution report")
}

func TestAutoCommand_InvalidFlags(t *testing.T) {
	dir := workspace(t)
	_, _, err := execute(t, dir, "auto", "--max-iterations", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestHistoryCommand_Disabled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".agentic"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".agentic", "config.yaml"), []byte("history:\n  enabled: false\n"), 0644))

	out, _, err := execute(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "History is disabled")
}

func TestRulesCommands(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, dir, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "security-no-hardcoded-secrets")

	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "config.go"), []byte(`var password = "hunter2"`+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "clean.go"), []byte("package src\n"), 0644))

	out, errOut, err := execute(t, dir, "rules", "check", src, "--report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocking violation")
	assert.Contains(t, out, "config.go")
	assert.Contains(t, strings.ToLower(out), "compliance: fail")
	assert.Contains(t, errOut, "Checking 2 files")

	_, _, err = execute(t, dir, "rules", "disable", "security-no-hardcoded-secrets")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, ".agentic", "rules.yaml"))

	_, _, err = execute(t, dir, "rules", "check", filepath.Join(src, "config.go"))
	assert.NoError(t, err, "disabled rule no longer blocks")

	_, _, err = execute(t, dir, "rules", "enable", "no-such-rule")
	assert.Error(t, err)
}

func TestRulesExportImport(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, dir, "rules", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "rules:")

	custom := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(custom, []byte(`rules:
  - id: no-todo
    name: No TODO
    category: maintainability
    severity: low
    description: Leftover TODO
    pattern: TODO
    action: warn
    enabled: true
`), 0644))

	out, _, err = execute(t, dir, "rules", "import", custom)
	require.NoError(t, err)
	assert.Equal(t, "Imported 1 rules\n", out)

	out, _, err = execute(t, dir, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no-todo")
}
