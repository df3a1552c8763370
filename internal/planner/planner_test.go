package planner

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
	"github.com/chibuenyim/Agentic-Toolkit/internal/store"
)

const shopPlan = "# Shop\n" +
	"\n" +
	"## Phase 1: Planning\n" +
	"\n" +
	"Scope the work.\n" +
	"\n" +
	"### Gather requirements\n" +
	"\n" +
	"Talk to stakeholders.\n" +
	"\n" +
	"- **Priority**: high\n" +
	"- Estimate: 1d\n" +
	"\n" +
	"## Phase 2: Build\n" +
	"\n" +
	"### [x] Set up repository\n" +
	"\n" +
	"Files: `go.mod`, cmd/main.go\n" +
	"\n" +
	"### Implement API\n" +
	"\n" +
	"Depends on: Set up repository, 1.1\n" +
	"Tech: go, sqlite\n" +
	"\n" +
	"- Add handlers\n" +
	"\n" +
	"```\n" +
	"Priority: low\n" +
	"```\n" +
	"\n" +
	"## Phase 3: Release\n" +
	"\n" +
	"- Write release notes\n" +
	"- Deploy to staging\n" +
	"  - Depends on: Implement API, Missing thing\n"

func parse(t *testing.T, src string) *Plan {
	t.Helper()
	plan, err := New().Parse(strings.NewReader(src))
	require.NoError(t, err)
	return plan
}

func byID(tasks []models.Task) map[string]models.Task {
	out := make(map[string]models.Task, len(tasks))
	for _, task := range tasks {
		out[task.ID] = task
	}
	return out
}

func TestParse_PhasesAndTasks(t *testing.T) {
	plan := parse(t, shopPlan)

	assert.Equal(t, "Shop", plan.Title)
	require.Len(t, plan.Document.Phases, 3)
	assert.Equal(t, "Planning", plan.Document.Phases[0].Name)
	assert.Equal(t, "phase-1", plan.Document.Phases[0].ID)
	assert.Equal(t, "Scope the work.", plan.Document.Phases[0].Description)
	assert.Equal(t, "Build", plan.Document.Phases[1].Name)
	assert.Equal(t, "Release", plan.Document.Phases[2].Name)

	tasks := plan.Tasks()
	var ids []string
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"1.1", "2.1", "2.2", "3.1", "3.2"}, ids)
	assert.Equal(t, 5, plan.Document.Metadata.TotalTasks)
	assert.Equal(t, 1, plan.Document.Metadata.CompletedTasks)
}

func TestParse_Fields(t *testing.T) {
	tasks := byID(parse(t, shopPlan).Tasks())

	gather := tasks["1.1"]
	assert.Equal(t, "Gather requirements", gather.Title)
	assert.Equal(t, "Talk to stakeholders.", gather.Description)
	assert.Equal(t, models.PriorityHigh, gather.Priority)
	assert.Equal(t, 8.0, gather.EstimatedHours)
	assert.Equal(t, models.AgentPlanning, gather.AgentType)
	assert.Equal(t, "planning", gather.Category)
	assert.Equal(t, "Planning", gather.Phase)

	repo := tasks["2.1"]
	assert.Equal(t, "Set up repository", repo.Title)
	assert.Equal(t, models.StatusCompleted, repo.Status)
	assert.Equal(t, []string{"go.mod", "cmd/main.go"}, repo.OutputFiles())
	assert.Equal(t, models.AgentImplementation, repo.AgentType)
	assert.Equal(t, 4.0, repo.EstimatedHours)

	api := tasks["2.2"]
	assert.Equal(t, []string{"2.1", "1.1"}, api.Dependencies)
	assert.Equal(t, []string{"go", "sqlite"}, api.Context.TechStack)
	assert.Equal(t, models.PriorityHigh, api.Priority, "inferred from the api keyword, not the code block")
	assert.Equal(t, "Add handlers", api.Description)

	notes := tasks["3.1"]
	assert.Equal(t, models.AgentDeployment, notes.AgentType)
	assert.Empty(t, notes.Dependencies)
	assert.Equal(t, models.StatusPending, notes.Status)
}

func TestParse_UnresolvedDependencyIsKeptAndWarned(t *testing.T) {
	plan := parse(t, shopPlan)
	deploy := byID(plan.Tasks())["3.2"]

	assert.Equal(t, []string{"2.2", "Missing thing"}, deploy.Dependencies)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "Missing thing")
}

func TestParse_TasksBeforeAnyPhase(t *testing.T) {
	plan := parse(t, "- Write tests\n- Fix typo in docs\n")

	require.Len(t, plan.Document.Phases, 1)
	assert.Equal(t, DefaultPhase, plan.Document.Phases[0].Name)

	tasks := plan.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, models.AgentTesting, tasks[0].AgentType)
	assert.Equal(t, models.PriorityLow, tasks[1].Priority)
}

func TestParse_NoTasks(t *testing.T) {
	_, err := New().Parse(strings.NewReader("# Empty\n\n## Phase 1: Nothing\n\nJust prose.\n"))
	assert.ErrorIs(t, err, ErrNoTasks)
}

func TestParseEstimate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4h", 4, true},
		{"2.5 hours", 2.5, true},
		{"2d", 16, true},
		{"3", 3, true},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseEstimate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferPriority(t *testing.T) {
	tests := []struct {
		text string
		want models.Priority
	}{
		{"Fix critical login bug", models.PriorityCritical},
		{"Build core scheduler", models.PriorityHigh},
		{"Polish the README", models.PriorityLow},
		{"Rapid prototype", models.PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, inferPriority(tt.text))
		})
	}
}

func TestNormalizeAgent(t *testing.T) {
	assert.Equal(t, "testing_agent", normalizeAgent("Testing"))
	assert.Equal(t, "deployment_agent", normalizeAgent("deployment_agent"))
	assert.Equal(t, "security_review_agent", normalizeAgent("security review"))
}

func TestSave_LoadsIntoStore(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	plan, err := New(WithClock(func() time.Time { return now })).Parse(strings.NewReader(shopPlan))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, plan.Save(path))

	s := store.New(path)
	require.NoError(t, s.Load())
	assert.Equal(t, 5, s.Len())

	api, ok := s.Get("2.2")
	require.True(t, ok)
	assert.Equal(t, "Build", api.Phase)
	assert.Equal(t, "phase-2", api.PhaseID)
	assert.True(t, plan.Document.Metadata.LastUpdated.Equal(now))
}
